package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"

	"github.com/lighter-xyz/lighter-go/pkg/nonce"
	"github.com/lighter-xyz/lighter-go/pkg/sign"
)

// Header names for signed requests. Exact placement of the auth material
// is a venue contract, so it stays configurable through AuthConfig.
const (
	DefaultAddressHeader   = "X-Lighter-Address"
	DefaultNonceHeader     = "X-Lighter-Nonce"
	DefaultSignatureHeader = "X-Lighter-Signature"
	DefaultTimestampHeader = "X-Lighter-Timestamp"
)

// sessionTokenPath is the venue endpoint that exchanges a signed request
// for a short-lived bearer token.
const sessionTokenPath = "/auth/token"

// tokenExpiryMargin is subtracted from a session token's expiry so a token
// is refreshed before the venue would reject it mid-flight.
const tokenExpiryMargin = 30 * time.Second

// AuthConfig configures how auth material is attached to signed requests.
type AuthConfig struct {
	AddressHeader   string
	NonceHeader     string
	SignatureHeader string
	TimestampHeader string
}

func (c AuthConfig) withDefaults() AuthConfig {
	if c.AddressHeader == "" {
		c.AddressHeader = DefaultAddressHeader
	}
	if c.NonceHeader == "" {
		c.NonceHeader = DefaultNonceHeader
	}
	if c.SignatureHeader == "" {
		c.SignatureHeader = DefaultSignatureHeader
	}
	if c.TimestampHeader == "" {
		c.TimestampHeader = DefaultTimestampHeader
	}
	return c
}

// SignedEnvelope carries the auth material for one signed request attempt.
// It is immutable once sealed and consumed exactly once by the Transport
// that sends it.
type SignedEnvelope struct {
	Payload   []byte
	Nonce     uint64
	Timestamp int64 // unix milliseconds
	Address   common.Address
	Signature sign.Signature
}

// AuthTransport composes a Transport with a Signer and a nonce Source.
// For requests requiring authorization it serializes the payload, obtains
// a fresh nonce, signs the canonical message, and attaches identity,
// nonce, signature, and timestamp before delegating to the Transport.
//
// Signing failures propagate without any network attempt; authorization
// rejections from the venue are surfaced as *AuthError annotated with the
// nonce used and are never retried.
type AuthTransport struct {
	tport  *Transport
	signer sign.Signer
	nonces *nonce.Source
	cfg    AuthConfig

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewAuthTransport creates an authenticated wrapper around the Transport.
func NewAuthTransport(tport *Transport, signer sign.Signer, nonces *nonce.Source, cfg AuthConfig) *AuthTransport {
	return &AuthTransport{
		tport:  tport,
		signer: signer,
		nonces: nonces,
		cfg:    cfg.withDefaults(),
	}
}

// Transport returns the underlying Transport for unauthenticated calls.
func (a *AuthTransport) Transport() *Transport { return a.tport }

// Address returns the signing identity's wallet address.
func (a *AuthTransport) Address() common.Address { return a.signer.Address() }

// NextNonce returns the next nonce for the signing identity.
func (a *AuthTransport) NextNonce() (uint64, error) {
	return a.nonces.Next(a.signer.Address())
}

// SeedNonce advances the local nonce counter, typically after querying the
// venue's nonce endpoint.
func (a *AuthTransport) SeedNonce(next uint64) {
	a.nonces.Seed(a.signer.Address(), next)
}

// SignMessage signs an arbitrary canonical message with the identity key.
// Used by request shapers that embed signatures in request bodies.
func (a *AuthTransport) SignMessage(message []byte) (sign.Signature, error) {
	return a.signer.Sign(message)
}

// Get executes a signed GET request.
func (a *AuthTransport) Get(ctx context.Context, path string, out any) error {
	return a.Execute(ctx, http.MethodGet, path, nil, out)
}

// Post executes a signed POST request.
func (a *AuthTransport) Post(ctx context.Context, path string, body, out any) error {
	return a.Execute(ctx, http.MethodPost, path, body, out)
}

// Delete executes a signed DELETE request.
func (a *AuthTransport) Delete(ctx context.Context, path string, out any) error {
	return a.Execute(ctx, http.MethodDelete, path, nil, out)
}

// Execute signs the request and delegates to the Transport. The signature
// covers method, path, nonce, timestamp, and the serialized payload, so a
// signature cannot be replayed against a different endpoint or body.
func (a *AuthTransport) Execute(ctx context.Context, method, path string, body, out any) error {
	envelope, err := a.seal(method, path, body)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set(a.cfg.AddressHeader, envelope.Address.Hex())
	header.Set(a.cfg.NonceHeader, strconv.FormatUint(envelope.Nonce, 10))
	header.Set(a.cfg.SignatureHeader, envelope.Signature.String())
	header.Set(a.cfg.TimestampHeader, strconv.FormatInt(envelope.Timestamp, 10))

	err = a.tport.Execute(ctx, method, path, body, header, out)

	var authErr *AuthError
	if errors.As(err, &authErr) {
		authErr.Nonce = envelope.Nonce
	}
	return err
}

// seal builds the SignedEnvelope for one request attempt.
func (a *AuthTransport) seal(method, path string, body any) (*SignedEnvelope, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, &sign.SigningError{Reason: "could not serialize payload", Err: err}
		}
	}

	n, err := a.nonces.Next(a.signer.Address())
	if err != nil {
		return nil, &sign.SigningError{Reason: "nonce allocation failed", Err: err}
	}
	ts := time.Now().UnixMilli()

	signature, err := a.signer.Sign(canonicalMessage(method, path, n, ts, payload))
	if err != nil {
		return nil, err
	}

	return &SignedEnvelope{
		Payload:   payload,
		Nonce:     n,
		Timestamp: ts,
		Address:   a.signer.Address(),
		Signature: signature,
	}, nil
}

// canonicalMessage renders the deterministic byte sequence a signed
// request commits to. The layout is part of the venue contract.
func canonicalMessage(method, path string, nonce uint64, timestamp int64, payload []byte) []byte {
	msg := fmt.Sprintf("%s %s\n%d\n%d\n", method, path, nonce, timestamp)
	return append([]byte(msg), payload...)
}

// SessionToken returns a venue-issued bearer token for the signing
// identity, minting a new one through the signed token endpoint when the
// cached token is missing or about to expire. The token's lifetime is read
// from its JWT expiry claim; the token itself is venue-signed, so no local
// verification is performed.
func (a *AuthTransport) SessionToken(ctx context.Context) (string, error) {
	a.tokenMu.Lock()
	defer a.tokenMu.Unlock()

	if a.token != "" && time.Now().Before(a.tokenExpiry) {
		return a.token, nil
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := a.Execute(ctx, http.MethodPost, sessionTokenPath, nil, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("venue returned an empty session token")
	}

	expiry, err := tokenExpiry(resp.Token)
	if err != nil {
		return "", fmt.Errorf("parsing session token: %w", err)
	}

	a.token = resp.Token
	a.tokenExpiry = expiry.Add(-tokenExpiryMargin)
	return a.token, nil
}

func tokenExpiry(token string) (time.Time, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, err
	}
	expiry, err := parsed.Claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return time.Time{}, fmt.Errorf("token has no expiry claim")
	}
	return expiry.Time, nil
}
