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

	"github.com/altozano-realty/intake-cli/internal/config"
)

func TestWebhookNotify(t *testing.T) {
	var received Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(config.NotifierConfig{WebhookURL: srv.URL, TimeoutSecs: 5})
	err := wh.Notify(context.Background(), Event{
		Type:    EventVisitRequested,
		Message: "visit requested for Casa Güemes",
		Details: map[string]any{"visit_id": "v1"},
	})
	require.NoError(t, err)
	assert.Equal(t, EventVisitRequested, received.Type)
	assert.Equal(t, "v1", received.Details["visit_id"])
}

func TestWebhookNotify_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	wh := NewWebhook(config.NotifierConfig{WebhookURL: srv.URL})
	err := wh.Notify(context.Background(), Event{Type: EventVisitRequested})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestWebhookNotify_NoURLIsNoop(t *testing.T) {
	wh := NewWebhook(config.NotifierConfig{})
	assert.NoError(t, wh.Notify(context.Background(), Event{Type: EventVisitRequested}))
}

// recordingNotifier captures events for dispatcher tests.
type recordingNotifier struct {
	got chan Event
}

func (r *recordingNotifier) Notify(_ context.Context, ev Event) error {
	r.got <- ev
	return nil
}

func TestDispatcherDeliversInBackground(t *testing.T) {
	rec := &recordingNotifier{got: make(chan Event, 1)}
	d := NewDispatcher(rec, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx) //nolint:errcheck

	d.Dispatch(Event{Type: EventVisitRequested, Message: "m"})

	select {
	case ev := <-rec.got:
		assert.Equal(t, EventVisitRequested, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	// No Run loop consuming, capacity 1: the second dispatch must not block.
	d := NewDispatcher(&recordingNotifier{got: make(chan Event, 1)}, 1)

	done := make(chan struct{})
	go func() {
		d.Dispatch(Event{Type: EventVisitRequested})
		d.Dispatch(Event{Type: EventVisitRequested})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}
}

func TestDispatcherRunStopsOnCancel(t *testing.T) {
	d := NewDispatcher(&recordingNotifier{got: make(chan Event, 1)}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
