package intake

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports the required fields a submission is missing. It
// surfaces to the caller as a 400 with the field names enumerated.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// RateLimitError reports a rejection by the abuse gate. It surfaces as a 429;
// RetryAfter is advisory only.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %s", e.RetryAfter.Round(time.Second))
}
