// Package transport executes REST calls against the venue with bounded
// retry, per-attempt timeouts, and structured error classification, and
// composes the signing layer that stamps identity, nonce, and signature
// onto requests requiring authorization.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lighter-xyz/lighter-go/pkg/log"
)

// Config configures a Transport. All values are plain configuration
// supplied by the caller; the Transport never reads the environment.
type Config struct {
	// BaseURL is the venue's REST base, including any version path
	// (e.g. "https://api.lighter.xyz/v1").
	BaseURL string
	// RequestTimeout bounds each individual attempt. It should be shorter
	// than the caller's overall deadline so retries fit inside it.
	RequestTimeout time.Duration
	// Retry bounds the retry loop.
	Retry RetryPolicy
	// UserAgent is sent with every request.
	UserAgent string
}

// Transport executes HTTP calls with timeout, retry, and error
// classification. It is stateless across calls apart from the pooled
// connections of its http.Client and is safe for concurrent use.
type Transport struct {
	client  *http.Client
	baseURL *url.URL
	cfg     Config
	lg      log.Logger
	metrics *Metrics
}

// Option customizes a Transport.
type Option func(*Transport)

// WithLogger attaches a structured logger. Defaults to a noop logger.
func WithLogger(lg log.Logger) Option {
	return func(t *Transport) { t.lg = lg.WithName("transport") }
}

// WithMetrics attaches request metrics. Defaults to none.
func WithMetrics(m *Metrics) Option {
	return func(t *Transport) { t.metrics = m }
}

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
// The client's own timeout is left untouched; per-attempt timeouts are
// enforced through the request context.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Transport) { t.client = client }
}

// New creates a Transport for the given base URL.
func New(cfg Config, opts ...Option) (*Transport, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "lighter-go/" + Version
	}

	t := &Transport{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL: baseURL,
		cfg:     cfg,
		lg:      log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Get executes a GET request and decodes the JSON response into out.
func (t *Transport) Get(ctx context.Context, path string, out any) error {
	return t.Execute(ctx, http.MethodGet, path, nil, nil, out)
}

// Post executes a POST request with a JSON body and decodes the response.
func (t *Transport) Post(ctx context.Context, path string, body, out any) error {
	return t.Execute(ctx, http.MethodPost, path, body, nil, out)
}

// Put executes a PUT request with a JSON body and decodes the response.
func (t *Transport) Put(ctx context.Context, path string, body, out any) error {
	return t.Execute(ctx, http.MethodPut, path, body, nil, out)
}

// Delete executes a DELETE request and decodes the JSON response into out.
func (t *Transport) Delete(ctx context.Context, path string, out any) error {
	return t.Execute(ctx, http.MethodDelete, path, nil, nil, out)
}

// Execute sends one logical request, retrying classified-transient
// failures (network errors, timeouts, 429, 5xx) with exponential backoff
// until the retry budget is spent. Non-transient rejections return
// immediately as *APIError or *AuthError. After the final attempt the last
// observed error is surfaced, typed per its classification.
//
// body is JSON-marshaled when non-nil; out receives the decoded response
// body when non-nil.
func (t *Transport) Execute(ctx context.Context, method, path string, body any, header http.Header, out any) error {
	endpoint, err := t.buildURL(path)
	if err != nil {
		return err
	}

	var bodyBytes []byte
	if body != nil {
		if bodyBytes, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= t.cfg.Retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			t.metrics.countRetry(method)
			if err := t.waitBackoff(ctx, attempt-1); err != nil {
				return err
			}
		}

		done, err := t.attempt(ctx, method, endpoint, bodyBytes, header, out, attempt)
		if done {
			return err
		}
		lastErr = err
		t.lg.Warn("request failed, will retry",
			"method", method, "path", path, "attempt", attempt,
			"maxAttempts", t.cfg.Retry.MaxAttempts, "error", err)
	}

	t.lg.Error("request failed, retry budget exhausted",
		"method", method, "path", path, "attempts", t.cfg.Retry.MaxAttempts)
	return lastErr
}

// attempt performs a single HTTP attempt. It returns done=true when the
// outcome is final (success or a non-retryable error); otherwise err holds
// the retryable failure, already shaped as the error the caller would see
// if this attempt were the last.
func (t *Transport) attempt(ctx context.Context, method string, endpoint *url.URL, bodyBytes []byte, header http.Header, out any, attempt int) (done bool, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, t.cfg.RequestTimeout)
	defer cancel()

	var bodyReader io.Reader
	if bodyBytes != nil {
		bodyReader = bytes.NewReader(bodyBytes)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, endpoint.String(), bodyReader)
	if err != nil {
		return true, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", t.cfg.UserAgent)
	for name, values := range header {
		for _, v := range values {
			req.Header.Set(name, v)
		}
	}

	t.metrics.countRequest(method)

	resp, err := t.client.Do(req)
	if err != nil {
		// Give up immediately when the caller's context is gone; only the
		// per-attempt timeout is worth retrying.
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		return false, &Error{Attempts: attempt, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		return false, &Error{Attempts: attempt, Err: fmt.Errorf("reading response body: %w", err)}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil || len(respBody) == 0 {
			return true, nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return true, fmt.Errorf("decoding response body: %w", err)
		}
		return true, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		t.metrics.countRateLimited()
		return false, &RateLimitError{
			Attempts:   attempt,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return true, &AuthError{Status: resp.StatusCode, Message: errorMessage(respBody)}

	case resp.StatusCode >= 500:
		return false, &Error{
			Status:   resp.StatusCode,
			Message:  errorMessage(respBody),
			Attempts: attempt,
		}

	default:
		return true, &APIError{Status: resp.StatusCode, Message: errorMessage(respBody)}
	}
}

func (t *Transport) waitBackoff(ctx context.Context, failedAttempt int) error {
	delay := t.cfg.Retry.Backoff(failedAttempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *Transport) buildURL(path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid request path %q: %w", path, err)
	}

	endpoint := t.baseURL.JoinPath(ref.Path)
	endpoint.RawQuery = ref.RawQuery
	return endpoint, nil
}

// errorMessage extracts the venue's error message from a response body.
// Bodies are expected to be JSON with an "error" or "message" field; the
// raw body is used as a fallback.
func errorMessage(body []byte) string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}

	const maxLen = 256
	if len(body) > maxLen {
		body = body[:maxLen]
	}
	return string(body)
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
