package risk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskradar/config"
	"riskradar/crowd"
	"riskradar/model"
	"riskradar/notify"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []notify.Alert
	err    error
}

func (n *recordingNotifier) Send(_ context.Context, alert notify.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return n.err
}

func (n *recordingNotifier) sent() []notify.Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Alert(nil), n.alerts...)
}

// blockingNotifier holds every Send until release is closed.
type blockingNotifier struct {
	started chan context.Context
	release chan struct{}
}

func (n *blockingNotifier) Send(ctx context.Context, _ notify.Alert) error {
	n.started <- ctx
	select {
	case <-n.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newSampleService(t *testing.T, notifier notify.Notifier) *Service {
	t.Helper()
	cfg := config.DefaultConfig().Model
	cfg.Dir = "../testdata"
	artifacts, err := model.LoadArtifacts(context.Background(), cfg)
	require.NoError(t, err)
	return NewService(model.NewPredictor(artifacts), notifier)
}

func TestAssessChennaiNight(t *testing.T) {
	s := newSampleService(t, nil)
	require.True(t, s.Ready())

	req := model.Request{City: "Chennai", Area: "T Nagar", AreaType: "Residential", Hour: 22, Day: 3, Month: 6, VictimAge: 25}
	result, err := s.Assess(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, Result{
		City:            "Chennai",
		Area:            "T Nagar",
		RiskLevel:       model.RiskHigh,
		RiskProbability: 0.67,
		CrowdStatus:     crowd.Low,
		CrowdAlert:      crowd.Alert(crowd.Low),
		Recommendation:  RecommendationHigh,
	}, result)
}

func TestAssessLowRisk(t *testing.T) {
	s := newSampleService(t, nil)

	req := model.Request{City: "Salem", Area: "Fairlands", AreaType: "Commercial", Hour: 14, Day: 3, Month: 6, VictimAge: 40}
	result, err := s.Assess(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, model.RiskLow, result.RiskLevel)
	assert.InDelta(t, 0.33, result.RiskProbability, 1e-9)
	assert.Equal(t, crowd.High, result.CrowdStatus)
	assert.Equal(t, RecommendationLow, result.Recommendation)
}

func TestAssessNotLoaded(t *testing.T) {
	s := NewService(model.NewPredictor(nil), nil)

	assert.False(t, s.Ready())
	_, err := s.Assess(context.Background(), model.Request{City: "Erode", Area: "Perundurai"})
	assert.ErrorIs(t, err, model.ErrModelNotLoaded)
}

func TestAssessNotifiesHighRisk(t *testing.T) {
	notifier := &recordingNotifier{}
	s := newSampleService(t, notifier)

	_, err := s.Assess(context.Background(), model.Request{City: "Chennai", Area: "Velachery", Hour: 23, VictimAge: 20})
	require.NoError(t, err)
	_, err = s.Assess(context.Background(), model.Request{City: "Chennai", Area: "Velachery", Hour: 13, VictimAge: 50})
	require.NoError(t, err)
	s.Wait()

	alerts := notifier.sent()
	require.Len(t, alerts, 1)
	assert.Equal(t, "Velachery", alerts[0].Area)
	assert.Equal(t, "HIGH", alerts[0].RiskLevel)
	assert.Equal(t, RecommendationHigh, alerts[0].Message)
}

func TestAssessNotifierFailureIgnored(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("push gateway down")}
	s := newSampleService(t, notifier)

	result, err := s.Assess(context.Background(), model.Request{City: "Chennai", Area: "Velachery", Hour: 23, VictimAge: 20})
	require.NoError(t, err)
	assert.Equal(t, model.RiskHigh, result.RiskLevel)
	s.Wait()
	assert.Len(t, notifier.sent(), 1)
}

func TestAssessDoesNotWaitForNotifier(t *testing.T) {
	notifier := &blockingNotifier{started: make(chan context.Context, 1), release: make(chan struct{})}
	s := newSampleService(t, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() {
		result, err := s.Assess(ctx, model.Request{City: "Chennai", Area: "Velachery", Hour: 23, VictimAge: 20})
		assert.NoError(t, err)
		done <- result
	}()

	select {
	case result := <-done:
		assert.Equal(t, model.RiskHigh, result.RiskLevel)
	case <-time.After(2 * time.Second):
		t.Fatal("Assess blocked on the notifier")
	}

	// the request ending must not cancel the delivery
	var sendCtx context.Context
	select {
	case sendCtx = <-notifier.started:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was never called")
	}
	cancel()
	assert.NoError(t, sendCtx.Err())
	_, hasDeadline := sendCtx.Deadline()
	assert.True(t, hasDeadline)

	close(notifier.release)
	s.Wait()
}

func TestAssessAlertTimeout(t *testing.T) {
	notifier := &blockingNotifier{started: make(chan context.Context, 1), release: make(chan struct{})}
	s := newSampleService(t, notifier)
	s.SetAlertTimeout(50 * time.Millisecond)

	_, err := s.Assess(context.Background(), model.Request{City: "Chennai", Area: "Velachery", Hour: 23, VictimAge: 20})
	require.NoError(t, err)

	sendCtx := <-notifier.started
	s.Wait()
	assert.ErrorIs(t, sendCtx.Err(), context.DeadlineExceeded)
}

func TestAssembleRounding(t *testing.T) {
	req := model.Request{City: "Coimbatore", Area: "Ukkadam"}

	// 0.3999 reports as 0.4 but stays LOW
	result := Assemble(req, model.Prediction{Probability: 0.3999, Level: model.Classify(0.3999)}, crowd.Medium)
	assert.Equal(t, model.RiskLow, result.RiskLevel)
	assert.InDelta(t, 0.4, result.RiskProbability, 1e-12)
	assert.Equal(t, RecommendationLow, result.Recommendation)
	assert.Equal(t, crowd.Alert(crowd.Medium), result.CrowdAlert)

	result = Assemble(req, model.Prediction{Probability: 0.40131, Level: model.RiskHigh}, crowd.High)
	assert.InDelta(t, 0.4, result.RiskProbability, 1e-12)
	assert.Equal(t, RecommendationHigh, result.Recommendation)
}
