package geocode

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFold strips diacritics so "Güemes" and "Guemes" share one cache entry.
// Neighborhood names come from free-form operator input and arrive in both
// spellings.
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// cacheKey returns SHA-256 hex of the normalized query.
func cacheKey(q Query) string {
	normalized := fmt.Sprintf("%s|%s|%s|%s",
		foldPart(q.Neighborhood), foldPart(q.City), foldPart(q.Region), foldPart(q.Country))
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

func foldPart(s string) string {
	folded, _, err := transform.String(asciiFold, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return folded
}

// queryCache is a process-lifetime cache of geocode results. Negative results
// are cached too, so a batch never spends two upstream calls on the same
// unresolvable neighborhood.
type queryCache struct {
	mu      sync.RWMutex
	entries map[string]*Result
}

func newQueryCache() *queryCache {
	return &queryCache{entries: make(map[string]*Result)}
}

func (c *queryCache) get(key string) *Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.entries[key]; ok {
		copied := *r
		return &copied
	}
	return nil
}

func (c *queryCache) set(key string, r *Result) {
	if r == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *r
	c.entries[key] = &copied
}
