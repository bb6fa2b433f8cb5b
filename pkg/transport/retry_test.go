package transport

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_GrowsExponentiallyWithoutJitter(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}

	assert.Equal(t, 100*time.Millisecond, policy.Backoff(1))
	assert.Equal(t, 200*time.Millisecond, policy.Backoff(2))
	assert.Equal(t, 400*time.Millisecond, policy.Backoff(3))
	assert.Equal(t, 800*time.Millisecond, policy.Backoff(4))
}

func TestBackoff_CapsAtMaxDelay(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 20,
		BaseDelay:   time.Second,
		MaxDelay:    5 * time.Second,
	}

	assert.Equal(t, 5*time.Second, policy.Backoff(10))
	// Shift overflow falls back to the cap too.
	assert.Equal(t, 5*time.Second, policy.Backoff(64))
}

func TestBackoff_JitterStaysWithinBounds(t *testing.T) {
	policy := DefaultRetryPolicy

	for attempt := 1; attempt <= 4; attempt++ {
		base := RetryPolicy{
			MaxAttempts: policy.MaxAttempts,
			BaseDelay:   policy.BaseDelay,
			MaxDelay:    policy.MaxDelay,
		}.Backoff(attempt)

		for i := 0; i < 100; i++ {
			delay := policy.Backoff(attempt)
			assert.GreaterOrEqual(t, delay, time.Duration(float64(base)*(1-policy.Jitter)))
			assert.LessOrEqual(t, delay, time.Duration(float64(base)*(1+policy.Jitter)))
		}
	}
}

func TestRetryableStatus(t *testing.T) {
	assert.True(t, RetryableStatus(http.StatusTooManyRequests))
	assert.True(t, RetryableStatus(http.StatusInternalServerError))
	assert.True(t, RetryableStatus(http.StatusBadGateway))
	assert.False(t, RetryableStatus(http.StatusBadRequest))
	assert.False(t, RetryableStatus(http.StatusUnauthorized))
	assert.False(t, RetryableStatus(http.StatusNotFound))
	assert.False(t, RetryableStatus(http.StatusOK))
}
