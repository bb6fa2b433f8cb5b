package transport

import (
	"fmt"
	"time"
)

// Error is a transport-level failure surfaced after the retry budget is
// exhausted. It always carries the last observed failure, not a generic
// timeout: either the final HTTP status or the underlying network error.
type Error struct {
	// Status is the last observed HTTP status, or 0 if no attempt ever
	// produced a response.
	Status int
	// Message is the venue's error message, when one was decoded.
	Message string
	// Attempts is the number of attempts made before giving up.
	Attempts int
	// Err is the underlying network error from the last attempt, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport: request failed after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("transport: request failed after %d attempts: status %d: %s", e.Attempts, e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// RateLimitError reports that the venue kept answering 429 for every
// attempt in the retry budget. It is distinguished from Error so callers
// can apply domain-specific backoff before minting a fresh request.
type RateLimitError struct {
	// Attempts is the number of attempts made before giving up.
	Attempts int
	// RetryAfter is the venue's advised wait, zero when not provided.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("transport: rate limited after %d attempts, retry after %s", e.Attempts, e.RetryAfter)
	}
	return fmt.Sprintf("transport: rate limited after %d attempts", e.Attempts)
}

// APIError is a non-retryable rejection from the venue (4xx other than
// 401/403/429). The request reached the venue and was refused; reissuing
// it unchanged would fail identically.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %d - %s", e.Status, e.Message)
}

// AuthError is a remote authorization rejection (401/403), typically a
// stale nonce or a bad signature. It is never retried automatically:
// retrying with the same nonce fails identically, so the caller must mint
// a fresh request. Nonce is the nonce the rejected request carried, or 0
// for unsigned requests.
type AuthError struct {
	Status  int
	Message string
	Nonce   uint64
}

func (e *AuthError) Error() string {
	if e.Nonce != 0 {
		return fmt.Sprintf("auth rejected: %d - %s (nonce %d)", e.Status, e.Message, e.Nonce)
	}
	return fmt.Sprintf("auth rejected: %d - %s", e.Status, e.Message)
}
