package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastRetry keeps test retries near-instant.
var fastRetry = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   time.Millisecond,
	MaxDelay:    5 * time.Millisecond,
	Jitter:      0,
}

func newTestTransport(t *testing.T, baseURL string) *Transport {
	t.Helper()
	tport, err := New(Config{
		BaseURL:        baseURL,
		RequestTimeout: 2 * time.Second,
		Retry:          fastRetry,
	})
	require.NoError(t, err)
	return tport
}

func TestExecute_DecodesSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/ticker/BTC-USDC", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"BTC-USDC","price":"64000.5"}`))
	}))
	defer server.Close()

	tport := newTestTransport(t, server.URL+"/v1")

	var out struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	require.NoError(t, tport.Get(context.Background(), "/ticker/BTC-USDC", &out))
	assert.Equal(t, "BTC-USDC", out.Symbol)
	assert.Equal(t, "64000.5", out.Price)
}

func TestExecute_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, `{"error":"upstream unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tport := newTestTransport(t, server.URL)

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, tport.Get(context.Background(), "/health", &out))
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), calls.Load())
}

func TestExecute_ExhaustsRetryBudget(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"still broken"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	tport := newTestTransport(t, server.URL)

	err := tport.Get(context.Background(), "/health", nil)
	require.Error(t, err)
	assert.Equal(t, int32(fastRetry.MaxAttempts), calls.Load())

	var tErr *Error
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, http.StatusInternalServerError, tErr.Status)
	assert.Equal(t, fastRetry.MaxAttempts, tErr.Attempts)
	assert.Equal(t, "still broken", tErr.Message)
}

func TestExecute_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"unknown symbol"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	tport := newTestTransport(t, server.URL)

	err := tport.Get(context.Background(), "/ticker/NOPE", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "unknown symbol", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load(), "client rejections must not be retried")
}

func TestExecute_RateLimited(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	tport := newTestTransport(t, server.URL)

	err := tport.Get(context.Background(), "/orders", nil)
	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, fastRetry.MaxAttempts, rlErr.Attempts)
	assert.Equal(t, 7*time.Second, rlErr.RetryAfter)
	assert.Equal(t, int32(fastRetry.MaxAttempts), calls.Load(), "429 is retryable")
}

func TestExecute_AuthRejectionIsFinal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad signature"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	tport := newTestTransport(t, server.URL)

	err := tport.Get(context.Background(), "/account", nil)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	assert.Equal(t, "bad signature", authErr.Message)
	assert.Equal(t, int32(1), calls.Load(), "auth rejections must not be retried")
}

func TestExecute_NetworkErrorsRetry(t *testing.T) {
	// Nothing listens here; every attempt fails at the dial.
	tport := newTestTransport(t, "http://127.0.0.1:1")

	err := tport.Get(context.Background(), "/health", nil)
	var tErr *Error
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, fastRetry.MaxAttempts, tErr.Attempts)
}

func TestExecute_ContextCancelStopsRetrying(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tport, err := New(Config{
		BaseURL: server.URL,
		Retry:   RetryPolicy{MaxAttempts: 10, BaseDelay: time.Hour, MaxDelay: time.Hour},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = tport.Get(ctx, "/health", nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecute_SendsBodyAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "lighter-go/"+Version, r.Header.Get("User-Agent"))
		assert.Equal(t, "value", r.Header.Get("X-Custom"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "BTC-USDC", body["symbol"])
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	tport := newTestTransport(t, server.URL)

	header := http.Header{}
	header.Set("X-Custom", "value")
	err := tport.Execute(context.Background(), http.MethodPost, "/orders",
		map[string]string{"symbol": "BTC-USDC"}, header, nil)
	require.NoError(t, err)
}

func TestBuildURL_PreservesVersionPathAndQuery(t *testing.T) {
	tport := newTestTransport(t, "https://api.example.com/v1")

	endpoint, err := tport.buildURL("/orders?symbol=BTC-USDC&page=2")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/orders?symbol=BTC-USDC&page=2", endpoint.String())
}

func TestErrorMessage_Fallbacks(t *testing.T) {
	assert.Equal(t, "boom", errorMessage([]byte(`{"error":"boom"}`)))
	assert.Equal(t, "boom", errorMessage([]byte(`{"message":"boom"}`)))
	assert.Equal(t, "plain text", errorMessage([]byte("plain text")))
}
