package risk

import (
	"context"
	"math"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"riskradar/crowd"
	"riskradar/model"
	"riskradar/notify"
)

// Recommendations shown for each risk level.
const (
	RecommendationHigh = "Avoid isolated routes"
	RecommendationLow  = "Area looks relatively safe"
)

const defaultAlertTimeout = 10 * time.Second

/*
Result is the payload returned for a prediction request
*/
type Result struct {
	City            string          `json:"city"`
	Area            string          `json:"area"`
	RiskLevel       model.RiskLevel `json:"risk_level"`
	RiskProbability float64         `json:"risk_probability"`
	CrowdStatus     crowd.Density   `json:"crowd_status"`
	CrowdAlert      string          `json:"crowd_alert"`
	Recommendation  string          `json:"recommendation"`
}

/*
Service runs the prediction pipeline: features, inference, crowd estimate, result
*/
type Service struct {
	predictor    *model.Predictor
	notifier     notify.Notifier
	alertTimeout time.Duration
	pending      sync.WaitGroup
}

/*
NewService creates a service; notifier may be nil to disable alerts
*/
func NewService(predictor *model.Predictor, notifier notify.Notifier) *Service {
	return &Service{
		predictor:    predictor,
		notifier:     notifier,
		alertTimeout: defaultAlertTimeout,
	}
}

// SetAlertTimeout bounds each alert delivery; non-positive values keep the default.
func (s *Service) SetAlertTimeout(d time.Duration) {
	if d > 0 {
		s.alertTimeout = d
	}
}

/*
Wait blocks until alerts already handed to the notifier have been delivered or timed out
*/
func (s *Service) Wait() {
	s.pending.Wait()
}

// Ready reports whether predictions can be served.
func (s *Service) Ready() bool {
	return s.predictor.Ready()
}

// Status reports which artifacts are loaded.
func (s *Service) Status() model.Status {
	return s.predictor.Status()
}

/*
Assess produces the risk result for a parsed request
*/
func (s *Service) Assess(ctx context.Context, req model.Request) (Result, error) {
	pred, err := s.predictor.Predict(model.BuildFeatures(req))
	if err != nil {
		return Result{}, err
	}

	density := crowd.Estimate(req.Hour, req.AreaType)
	result := Assemble(req, pred, density)

	log.WithFields(log.Fields{
		"city":        req.City,
		"area":        req.Area,
		"hour":        req.Hour,
		"probability": pred.Probability,
		"risk_level":  pred.Level,
		"crowd":       density,
	}).Debug("Assessed risk")

	if pred.Level == model.RiskHigh && s.notifier != nil {
		s.dispatch(ctx, notify.NewAlert(result.City, result.Area, string(result.RiskLevel), result.RiskProbability, result.Recommendation))
	}

	return result, nil
}

/*
dispatch sends the alert in the background.

The delivery outlives the request: it keeps the request's values but not its
cancellation, and is bounded by the alert timeout instead.
*/
func (s *Service) dispatch(ctx context.Context, alert notify.Alert) {
	s.pending.Add(1)
	go func(ctx context.Context) {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(ctx, s.alertTimeout)
		defer cancel()

		if err := s.notifier.Send(ctx, alert); err != nil {
			log.WithField("alert_id", alert.ID).Error("Failed to send risk alert: ", err)
		}
	}(context.WithoutCancel(ctx))
}

/*
Assemble combines a prediction and crowd estimate into a Result.

The level is taken from the prediction, which was decided on the unrounded
probability; only the reported probability is rounded.
*/
func Assemble(req model.Request, pred model.Prediction, density crowd.Density) Result {
	recommendation := RecommendationLow
	if pred.Level == model.RiskHigh {
		recommendation = RecommendationHigh
	}

	return Result{
		City:            req.City,
		Area:            req.Area,
		RiskLevel:       pred.Level,
		RiskProbability: round2(pred.Probability),
		CrowdStatus:     density,
		CrowdAlert:      crowd.Alert(density),
		Recommendation:  recommendation,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
