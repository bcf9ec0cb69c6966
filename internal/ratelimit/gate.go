// Package ratelimit implements the abuse gate in front of the public intake
// forms: a fixed-window per-client request limiter and the honeypot check.
package ratelimit

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// FallbackClientID is the shared bucket for requests without a forwarded
// address. Distinct clients behind it share one window; that approximation is
// intentional and must not be changed without an alternative identity source.
const FallbackClientID = "unknown"

type window struct {
	count   int
	expires time.Time
}

// Gate admits or rejects requests per client within a fixed time window.
// Expired windows are replaced lazily on the next request from that client,
// so the map stays bounded by recently active clients.
type Gate struct {
	mu      sync.Mutex
	windows map[string]*window

	windowDur time.Duration
	limit     int

	now func() time.Time // injectable for tests
}

// NewGate creates a Gate allowing at most limit requests per client per window.
func NewGate(windowDur time.Duration, limit int) *Gate {
	return &Gate{
		windows:   make(map[string]*window),
		windowDur: windowDur,
		limit:     limit,
		now:       time.Now,
	}
}

// Admit records a request from clientID and reports whether it is allowed.
// When rejected, retryAfter is the time remaining until the window expires.
// The check-and-increment runs under one lock so two racing requests can
// never both claim the last slot.
func (g *Gate) Admit(clientID string) (allowed bool, retryAfter time.Duration) {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	w, ok := g.windows[clientID]
	if !ok || now.After(w.expires) {
		g.windows[clientID] = &window{count: 1, expires: now.Add(g.windowDur)}
		return true, 0
	}

	if w.count >= g.limit {
		return false, w.expires.Sub(now)
	}

	w.count++
	return true, 0
}

// ClientID derives the rate-limit bucket for a request from the first entry
// of the X-Forwarded-For header, falling back to FallbackClientID.
func ClientID(r *http.Request) string {
	fwd := r.Header.Get("X-Forwarded-For")
	if fwd == "" {
		return FallbackClientID
	}
	first, _, _ := strings.Cut(fwd, ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return FallbackClientID
	}
	return first
}

// IsHoneypot reports whether the hidden form field was filled in. Humans
// never see the field; a value means an automated submitter.
func IsHoneypot(trap string) bool {
	return strings.TrimSpace(trap) != ""
}
