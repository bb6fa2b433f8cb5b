package transport

import (
	"math/rand/v2"
	"net/http"
	"time"
)

// RetryPolicy bounds the retry behavior of a Transport. It is plain
// configuration; the Transport holds no retry state across calls.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the backoff before the first retry. Each further retry
	// doubles it.
	BaseDelay time.Duration
	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
	// Jitter is the fraction of the computed delay added or subtracted at
	// random, spreading retries across clients. 0.25 means +-25%.
	Jitter float64
}

// DefaultRetryPolicy mirrors the venue defaults: four attempts starting at
// 100ms, capped at 10s, with +-25% jitter.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 4,
	BaseDelay:   100 * time.Millisecond,
	MaxDelay:    10 * time.Second,
	Jitter:      0.25,
}

// Backoff returns the delay to wait after the given failed attempt
// (1-based). The delay grows exponentially from BaseDelay, is capped at
// MaxDelay, and carries random jitter.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	delay := p.BaseDelay << (attempt - 1)
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}

	if p.Jitter > 0 {
		jitter := time.Duration(float64(delay) * p.Jitter * rand.Float64())
		if rand.IntN(2) == 0 {
			delay += jitter
		} else {
			delay -= jitter
		}
	}
	return delay
}

// RetryableStatus reports whether an HTTP status is a classified-transient
// failure. Only 429 and 5xx qualify; other 4xx are rejections that will
// not change on retry.
func RetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
