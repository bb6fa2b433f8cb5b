package lighter

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lighter-xyz/lighter-go/pkg/log"
	"github.com/lighter-xyz/lighter-go/pkg/nonce"
	"github.com/lighter-xyz/lighter-go/pkg/sign"
	"github.com/lighter-xyz/lighter-go/pkg/stream"
	"github.com/lighter-xyz/lighter-go/pkg/transport"
)

// ErrReadOnly is returned by operations that need a signing wallet when
// the client was built without one.
var ErrReadOnly = errors.New("lighter: client is read-only")

var validate = validator.New()

// Client is the top-level venue client. It bundles the REST transport,
// the signing identity, and the service groups; build one with New or
// one of the NewFrom constructors and share it across goroutines.
type Client struct {
	cfg    Config
	lg     log.Logger
	signer sign.Signer
	tport  *transport.Transport
	auth   *transport.AuthTransport
	nonces *nonce.Source

	streamMetrics *stream.Metrics

	Accounts     *AccountService
	Orders       *OrderService
	Markets      *MarketService
	Transactions *TransactionService
}

// Option customises a Client.
type Option func(*clientOptions)

type clientOptions struct {
	lg         log.Logger
	registry   prometheus.Registerer
	httpClient *http.Client
}

// WithLogger routes client logging through lg.
func WithLogger(lg log.Logger) Option {
	return func(o *clientOptions) { o.lg = lg }
}

// WithMetricsRegistry registers transport and stream metrics with the
// given registry.
func WithMetricsRegistry(registry prometheus.Registerer) Option {
	return func(o *clientOptions) { o.registry = registry }
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = client }
}

// New builds a Client from the configuration, deriving the signing
// identity from cfg.PrivateKey or cfg.Mnemonic. With neither set the
// client is read-only.
func New(cfg Config, opts ...Option) (*Client, error) {
	switch {
	case cfg.PrivateKey != "":
		return NewFromPrivateKey(cfg, cfg.PrivateKey, opts...)
	case cfg.Mnemonic != "":
		return NewFromMnemonic(cfg, cfg.Mnemonic, cfg.AccountIndex, opts...)
	default:
		return NewReadOnly(cfg, opts...)
	}
}

// NewFromPrivateKey builds a Client signing with a raw hex private key.
func NewFromPrivateKey(cfg Config, privateKeyHex string, opts ...Option) (*Client, error) {
	signer, err := sign.NewPrivateKeySigner(privateKeyHex)
	if err != nil {
		return nil, err
	}
	return NewWithSigner(cfg, signer, opts...)
}

// NewFromMnemonic builds a Client signing with a key derived from a
// BIP-39 mnemonic at the given account index.
func NewFromMnemonic(cfg Config, mnemonic string, accountIndex uint32, opts ...Option) (*Client, error) {
	signer, err := sign.NewMnemonicSigner(mnemonic, accountIndex)
	if err != nil {
		return nil, err
	}
	return NewWithSigner(cfg, signer, opts...)
}

// NewReadOnly builds a Client without a signing identity. Public market
// data and raw transaction submission work; everything touching the
// account returns ErrReadOnly.
func NewReadOnly(cfg Config, opts ...Option) (*Client, error) {
	return newClient(cfg, nil, opts...)
}

// NewWithSigner builds a Client around a caller-provided signer.
func NewWithSigner(cfg Config, signer sign.Signer, opts ...Option) (*Client, error) {
	if signer == nil {
		return nil, errors.New("lighter: nil signer")
	}
	return newClient(cfg, signer, opts...)
}

func newClient(cfg Config, signer sign.Signer, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := clientOptions{lg: log.NewNoopLogger()}
	for _, opt := range opts {
		opt(&options)
	}

	tportOpts := []transport.Option{transport.WithLogger(options.lg)}
	if options.httpClient != nil {
		tportOpts = append(tportOpts, transport.WithHTTPClient(options.httpClient))
	}
	if options.registry != nil {
		tportOpts = append(tportOpts, transport.WithMetrics(transport.NewMetrics(options.registry)))
	}

	tport, err := transport.New(transport.Config{
		BaseURL:        cfg.BaseURL,
		RequestTimeout: cfg.RequestTimeout,
		Retry:          cfg.retryPolicy(),
	}, tportOpts...)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:    cfg,
		lg:     options.lg,
		signer: signer,
		tport:  tport,
	}
	if options.registry != nil {
		c.streamMetrics = stream.NewMetrics(options.registry)
	}
	if signer != nil {
		c.nonces = nonce.NewSource()
		c.auth = transport.NewAuthTransport(tport, signer, c.nonces, transport.AuthConfig{})
	}

	lg := options.lg
	c.Accounts = &AccountService{tport: tport, auth: c.auth, lg: lg.WithName("accounts")}
	c.Orders = &OrderService{tport: tport, auth: c.auth, lg: lg.WithName("orders")}
	c.Markets = &MarketService{tport: tport}
	c.Transactions = &TransactionService{tport: tport, auth: c.auth, lg: lg.WithName("transactions")}
	return c, nil
}

// Address returns the signing wallet address. ok is false for
// read-only clients.
func (c *Client) Address() (addr common.Address, ok bool) {
	if c.auth == nil {
		return common.Address{}, false
	}
	return c.auth.Address(), true
}

// Transport exposes the underlying REST transport for endpoints this
// package does not model.
func (c *Client) Transport() *transport.Transport { return c.tport }

// SessionToken mints or returns the cached short-lived session token
// for authenticated streaming.
func (c *Client) SessionToken(ctx context.Context) (string, error) {
	if c.auth == nil {
		return "", ErrReadOnly
	}
	return c.auth.SessionToken(ctx)
}

// Stream builds an unauthenticated streaming session against the
// configured stream endpoint. The session is not connected yet; call
// Connect on it.
func (c *Client) Stream() *stream.Session {
	return c.newStream(nil)
}

// AuthenticatedStream builds a streaming session carrying a freshly
// minted session token, unlocking account-scoped channels.
func (c *Client) AuthenticatedStream(ctx context.Context) (*stream.Session, error) {
	token, err := c.SessionToken(ctx)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	return c.newStream(header), nil
}

func (c *Client) newStream(header http.Header) *stream.Session {
	var reconnect transport.RetryPolicy
	if c.cfg.ReconnectMaxAttempts > 0 {
		reconnect = transport.RetryPolicy{
			MaxAttempts: c.cfg.ReconnectMaxAttempts,
			BaseDelay:   250 * time.Millisecond,
			MaxDelay:    30 * time.Second,
			Jitter:      0.25,
		}
	}
	return stream.NewSession(stream.Config{
		URL:              c.cfg.StreamURL,
		Header:           header,
		HeartbeatTimeout: c.cfg.HeartbeatTimeout,
		Reconnect:        reconnect,
	}, stream.WithLogger(c.lg), stream.WithMetrics(c.streamMetrics))
}
