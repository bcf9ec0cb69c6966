// Package geocode resolves free-text neighborhood queries to coordinates via
// a Nominatim-style endpoint, throttled to the provider's documented ceiling.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client resolves a location query to a best-match coordinate pair.
type Client interface {
	// Geocode resolves a single query. An empty upstream result is not an
	// error; it comes back as Result{Matched: false}.
	Geocode(ctx context.Context, q Query) (*Result, error)
}

// Query represents a location to geocode. Empty parts are omitted from the
// generated free-text search string.
type Query struct {
	Neighborhood string
	City         string
	Region       string
	Country      string
}

// Result holds the geocoding output for a query.
type Result struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
	Matched     bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithBaseURL overrides the endpoint, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(g *geocoder) {
		g.baseURL = baseURL
	}
}

// WithUserAgent sets the caller-identifying User-Agent the provider requires.
func WithUserAgent(ua string) Option {
	return func(g *geocoder) {
		g.userAgent = ua
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithMinInterval sets the minimum spacing between upstream calls. The
// provider documents a one-request-per-second ceiling; the default leaves
// headroom above it.
func WithMinInterval(d time.Duration) Option {
	return func(g *geocoder) {
		if d > 0 {
			g.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithTimeout bounds each upstream call.
func WithTimeout(d time.Duration) Option {
	return func(g *geocoder) {
		g.httpClient.Timeout = d
	}
}

type geocoder struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *queryCache
}

// NewClient creates a geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		baseURL:    "https://nominatim.openstreetmap.org",
		userAgent:  "altozano-intake/1.0",
		httpClient: &http.Client{Timeout: 8 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(1150*time.Millisecond), 1),
		cache:      newQueryCache(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode resolves a query, consulting the in-process cache before spending
// an upstream call on it.
func (g *geocoder) Geocode(ctx context.Context, q Query) (*Result, error) {
	key := cacheKey(q)
	if cached := g.cache.get(key); cached != nil {
		return cached, nil
	}

	result, err := g.geocodeNominatim(ctx, q)
	if err != nil {
		return nil, err
	}

	g.cache.set(key, result)
	return result, nil
}
