package lighter

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/lighter-xyz/lighter-go/pkg/log"
	"github.com/lighter-xyz/lighter-go/pkg/transport"
)

// Config carries everything needed to build a Client from the
// environment.
type Config struct {
	BaseURL   string `env:"LIGHTER_BASE_URL" env-default:"https://api.lighter.xyz" validate:"required,url"`
	StreamURL string `env:"LIGHTER_STREAM_URL" env-default:"wss://stream.lighter.xyz/ws" validate:"required,url"`

	// Exactly one of PrivateKey or Mnemonic identifies the signing
	// wallet. Leave both empty for a read-only client.
	PrivateKey   string `env:"LIGHTER_PRIVATE_KEY"`
	Mnemonic     string `env:"LIGHTER_MNEMONIC"`
	AccountIndex uint32 `env:"LIGHTER_ACCOUNT_INDEX" env-default:"0"`

	RequestTimeout   time.Duration `env:"LIGHTER_REQUEST_TIMEOUT" env-default:"30s"`
	RetryMaxAttempts int           `env:"LIGHTER_RETRY_MAX_ATTEMPTS" env-default:"4" validate:"omitempty,min=1"`
	RetryBaseDelay   time.Duration `env:"LIGHTER_RETRY_BASE_DELAY" env-default:"100ms"`
	RetryMaxDelay    time.Duration `env:"LIGHTER_RETRY_MAX_DELAY" env-default:"10s"`

	HeartbeatTimeout     time.Duration `env:"LIGHTER_HEARTBEAT_TIMEOUT" env-default:"30s"`
	ReconnectMaxAttempts int           `env:"LIGHTER_RECONNECT_MAX_ATTEMPTS" env-default:"5" validate:"omitempty,min=1"`

	Log log.Config
}

// LoadConfig reads configuration from a .env file (when present) and
// the process environment, then validates it.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "reading environment")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for structural problems.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "validating config")
	}
	if c.PrivateKey != "" && c.Mnemonic != "" {
		return errors.New("config: private key and mnemonic are mutually exclusive")
	}
	return nil
}

func (c Config) retryPolicy() transport.RetryPolicy {
	policy := transport.DefaultRetryPolicy
	if c.RetryMaxAttempts > 0 {
		policy.MaxAttempts = c.RetryMaxAttempts
	}
	if c.RetryBaseDelay > 0 {
		policy.BaseDelay = c.RetryBaseDelay
	}
	if c.RetryMaxDelay > 0 {
		policy.MaxDelay = c.RetryMaxDelay
	}
	return policy
}
