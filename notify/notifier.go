package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	log "github.com/sirupsen/logrus"

	"riskradar/config"
)

/*
Alert is sent when a prediction comes back HIGH
*/
type Alert struct {
	ID          string    `json:"id"`
	City        string    `json:"city"`
	Area        string    `json:"area"`
	RiskLevel   string    `json:"risk_level"`
	Probability float64   `json:"risk_probability"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

/*
NewAlert creates an alert with a fresh ID
*/
func NewAlert(city, area, level string, probability float64, message string) Alert {
	return Alert{
		ID:          uuid.NewString(),
		City:        city,
		Area:        area,
		RiskLevel:   level,
		Probability: probability,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	}
}

/*
Notifier delivers alerts
*/
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

/*
New returns the notifier selected by cfg, or nil when alerts are disabled
*/
func New(cfg config.NotifyConfig) Notifier {
	switch cfg.Type {
	case config.NotifierTypeLog:
		return LogNotifier{}
	case config.NotifierTypeWebhook:
		return NewWebhookNotifier(cfg.WebhookURL, time.Duration(cfg.TimeoutSeconds)*time.Second)
	default:
		return nil
	}
}

/*
LogNotifier writes alerts to the log instead of delivering them
*/
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, alert Alert) error {
	log.WithFields(log.Fields{
		"alert_id":    alert.ID,
		"city":        alert.City,
		"area":        alert.Area,
		"risk_level":  alert.RiskLevel,
		"probability": alert.Probability,
	}).Info("Risk alert: ", alert.Message)
	return nil
}

/*
WebhookNotifier POSTs alerts as JSON to a fixed URL
*/
type WebhookNotifier struct {
	url    string
	client *http.Client
}

/*
NewWebhookNotifier creates a webhook notifier with a per-request timeout
*/
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (n *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "encode alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", alert.ID)

	resp, err := n.client.Do(req)
	if err != nil {
		return eris.Wrapf(err, "post alert %s", alert.ID)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return eris.Errorf("webhook returned status %d for alert %s", resp.StatusCode, alert.ID)
	}
	return nil
}
