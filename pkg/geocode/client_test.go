package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient points a client at a stub server with a negligible throttle.
func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(
		WithBaseURL(srv.URL),
		WithUserAgent("intake-test/1.0"),
		WithMinInterval(time.Millisecond),
	)
}

func TestGeocode_Match(t *testing.T) {
	var gotUA, gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat":"-31.4201","lon":"-64.1888","display_name":"Güemes, Córdoba, Argentina"}]`))
	})

	result, err := client.Geocode(context.Background(), Query{
		Neighborhood: "Güemes",
		City:         "Córdoba",
		Country:      "Argentina",
	})
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.InDelta(t, -31.4201, result.Latitude, 0.0001)
	assert.InDelta(t, -64.1888, result.Longitude, 0.0001)
	assert.Equal(t, "intake-test/1.0", gotUA)
	assert.Equal(t, "Güemes, Córdoba, Argentina", gotQuery)
}

func TestGeocode_EmptyResultIsNotAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	result, err := client.Geocode(context.Background(), Query{Neighborhood: "Nowhere"})
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestGeocode_UpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Geocode(context.Background(), Query{Neighborhood: "Centro"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestGeocode_EmptyQuerySkipsUpstream(t *testing.T) {
	var calls atomic.Int64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[]`))
	})

	result, err := client.Geocode(context.Background(), Query{})
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Zero(t, calls.Load())
}

func TestGeocode_CachesRepeatQueries(t *testing.T) {
	var calls atomic.Int64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[{"lat":"-31.4","lon":"-64.1","display_name":"Centro"}]`))
	})

	q := Query{Neighborhood: "Centro", City: "Córdoba"}
	_, err := client.Geocode(context.Background(), q)
	require.NoError(t, err)

	result, err := client.Geocode(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.EqualValues(t, 1, calls.Load(), "second lookup should come from cache")
}

func TestFormatQuery(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want string
	}{
		{"all parts", Query{"Güemes", "Córdoba", "Córdoba", "Argentina"}, "Güemes, Córdoba, Córdoba, Argentina"},
		{"missing city", Query{Neighborhood: "Centro", Country: "Argentina"}, "Centro, Argentina"},
		{"whitespace parts dropped", Query{Neighborhood: "  ", City: "Córdoba"}, "Córdoba"},
		{"empty", Query{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatQuery(tt.q))
		})
	}
}

func TestCacheKey_FoldsDiacriticsAndCase(t *testing.T) {
	a := cacheKey(Query{Neighborhood: "Güemes", City: "Córdoba"})
	b := cacheKey(Query{Neighborhood: "guemes", City: "cordoba"})
	assert.Equal(t, a, b)

	c := cacheKey(Query{Neighborhood: "Centro", City: "Córdoba"})
	assert.NotEqual(t, a, c)
}
