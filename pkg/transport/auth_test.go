package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lighter-xyz/lighter-go/pkg/nonce"
	"github.com/lighter-xyz/lighter-go/pkg/sign"
)

func newTestSigner(t *testing.T) *sign.PrivateKeySigner {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	return sign.NewPrivateKeySignerFromECDSA(key)
}

func newTestAuthTransport(t *testing.T, baseURL string, signer sign.Signer) *AuthTransport {
	t.Helper()
	return NewAuthTransport(newTestTransport(t, baseURL), signer, nonce.NewSource(), AuthConfig{})
}

func TestAuthTransport_SignsRequests(t *testing.T) {
	signer := newTestSigner(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, signer.Address().Hex(), r.Header.Get(DefaultAddressHeader))

		n, err := strconv.ParseUint(r.Header.Get(DefaultNonceHeader), 10, 64)
		require.NoError(t, err)
		ts, err := strconv.ParseInt(r.Header.Get(DefaultTimestampHeader), 10, 64)
		require.NoError(t, err)
		sig, err := hexutil.Decode(r.Header.Get(DefaultSignatureHeader))
		require.NoError(t, err)

		payload, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		// The venue verifies the signature over the canonical message.
		message := canonicalMessage(r.Method, "/orders", n, ts, payload)
		recovered, err := sign.RecoverAddress(message, sig)
		require.NoError(t, err)
		assert.Equal(t, signer.Address(), recovered)

		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	auth := newTestAuthTransport(t, server.URL, signer)
	require.NoError(t, auth.Post(context.Background(), "/orders", map[string]string{"symbol": "BTC-USDC"}, nil))
}

func TestAuthTransport_NoncesStrictlyIncrease(t *testing.T) {
	var nonces []uint64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.ParseUint(r.Header.Get(DefaultNonceHeader), 10, 64)
		require.NoError(t, err)
		nonces = append(nonces, n)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	auth := newTestAuthTransport(t, server.URL, newTestSigner(t))
	for i := 0; i < 5; i++ {
		require.NoError(t, auth.Get(context.Background(), "/account", nil))
	}

	require.Len(t, nonces, 5)
	for i := 1; i < len(nonces); i++ {
		assert.Greater(t, nonces[i], nonces[i-1])
	}
}

func TestAuthTransport_AuthErrorCarriesNonce(t *testing.T) {
	var (
		calls     atomic.Int32
		seenNonce atomic.Uint64
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		n, _ := strconv.ParseUint(r.Header.Get(DefaultNonceHeader), 10, 64)
		seenNonce.Store(n)
		http.Error(w, `{"error":"nonce already used"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	auth := newTestAuthTransport(t, server.URL, newTestSigner(t))

	err := auth.Get(context.Background(), "/account", nil)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, seenNonce.Load(), authErr.Nonce)
	assert.Equal(t, "nonce already used", authErr.Message)
	assert.Equal(t, int32(1), calls.Load(), "auth rejections are never retried")
}

func TestAuthTransport_SigningFailureSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	signer := newTestSigner(t)
	signer.Zero()
	auth := newTestAuthTransport(t, server.URL, signer)

	err := auth.Get(context.Background(), "/account", nil)
	var sigErr *sign.SigningError
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, int32(0), calls.Load(), "no request may leave the process on signing failure")
}

func mintTestToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "session",
		"exp": time.Now().Add(expiresIn).Unix(),
	}).SignedString([]byte("venue-secret"))
	require.NoError(t, err)
	return token
}

func TestSessionToken_CachedUntilExpiry(t *testing.T) {
	var mints atomic.Int32
	token := mintTestToken(t, time.Hour)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/token", r.URL.Path)
		mints.Add(1)
		_, _ = w.Write([]byte(`{"token":"` + token + `"}`))
	}))
	defer server.Close()

	auth := newTestAuthTransport(t, server.URL, newTestSigner(t))

	first, err := auth.SessionToken(context.Background())
	require.NoError(t, err)
	second, err := auth.SessionToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, token, first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), mints.Load(), "a live token must be served from cache")
}

func TestSessionToken_RefreshesNearExpiry(t *testing.T) {
	var mints atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mints.Add(1)
		// Expires inside the refresh margin, forcing a mint per call.
		_, _ = w.Write([]byte(`{"token":"` + mintTestToken(t, 10*time.Second) + `"}`))
	}))
	defer server.Close()

	auth := newTestAuthTransport(t, server.URL, newTestSigner(t))

	_, err := auth.SessionToken(context.Background())
	require.NoError(t, err)
	_, err = auth.SessionToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), mints.Load())
}

func TestSessionToken_RejectsEmptyToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token":""}`))
	}))
	defer server.Close()

	auth := newTestAuthTransport(t, server.URL, newTestSigner(t))

	_, err := auth.SessionToken(context.Background())
	require.Error(t, err)
}
