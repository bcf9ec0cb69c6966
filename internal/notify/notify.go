// Package notify delivers fire-and-forget outbound notifications for intake
// events. Delivery failures are logged and swallowed; they never reach the
// request path.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/altozano-realty/intake-cli/internal/config"
)

// EventType identifies the kind of event.
type EventType string

const (
	// EventVisitRequested fires when a visitor books a showing through the
	// public form.
	EventVisitRequested EventType = "visit_requested"
)

// Event represents a single outbound notification.
type Event struct {
	Type      EventType      `json:"type"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Notifier sends a single event. Callers never consult the result on the
// request path; the error return exists for the dispatcher's logging.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Webhook posts events as JSON to a configured URL.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook Notifier from config.
func NewWebhook(cfg config.NotifierConfig) *Webhook {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{
		url:    cfg.WebhookURL,
		client: &http.Client{Timeout: timeout},
	}
}

// Notify posts a single event to the webhook URL.
func (w *Webhook) Notify(ctx context.Context, ev Event) error {
	if w.url == "" {
		return nil
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "notify: marshal event")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
