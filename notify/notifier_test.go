package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskradar/config"
)

func TestNew(t *testing.T) {
	assert.Nil(t, New(config.NotifyConfig{Type: config.NotifierTypeNone}))
	assert.IsType(t, LogNotifier{}, New(config.NotifyConfig{Type: config.NotifierTypeLog}))
	assert.IsType(t, &WebhookNotifier{}, New(config.NotifyConfig{
		Type:           config.NotifierTypeWebhook,
		WebhookURL:     "http://localhost/hook",
		TimeoutSeconds: 1,
	}))
}

func TestNewAlert(t *testing.T) {
	a := NewAlert("Chennai", "T Nagar", "HIGH", 0.67, "Avoid isolated routes")
	b := NewAlert("Chennai", "T Nagar", "HIGH", 0.67, "Avoid isolated routes")

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.CreatedAt.IsZero())
}

func TestLogNotifier(t *testing.T) {
	err := LogNotifier{}.Send(context.Background(), NewAlert("Salem", "Fairlands", "HIGH", 0.9, "Avoid isolated routes"))
	assert.NoError(t, err)
}

func TestWebhookNotifier(t *testing.T) {
	var received Alert
	var idempotencyKey string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		idempotencyKey = r.Header.Get("Idempotency-Key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	alert := NewAlert("Madurai", "Periyar", "HIGH", 0.81, "Avoid isolated routes")
	n := NewWebhookNotifier(ts.URL, time.Second)
	require.NoError(t, n.Send(context.Background(), alert))

	assert.Equal(t, alert.ID, received.ID)
	assert.Equal(t, alert.ID, idempotencyKey)
	assert.Equal(t, "Periyar", received.Area)
	assert.InDelta(t, 0.81, received.Probability, 1e-9)
}

func TestWebhookNotifierErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	n := NewWebhookNotifier(ts.URL, time.Second)
	err := n.Send(context.Background(), NewAlert("Erode", "Perundurai", "HIGH", 0.5, "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookNotifierUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	n := NewWebhookNotifier(url, time.Second)
	assert.Error(t, n.Send(context.Background(), NewAlert("Erode", "Perundurai", "HIGH", 0.5, "x")))
}
