package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"
	"strings"
	"time"

	goPasswordless "github.com/MrEthical07/goPasswordless"
	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
)

// Config is read from the environment at startup.
type Config struct {
	Addr      string `env:"PASSWORDLESS_ADDR"       envDefault:":8080"`
	ServerURL string `env:"PASSWORDLESS_SERVER_URL" envDefault:"http://localhost:8080"`
	RedisAddr string `env:"REDIS_ADDR"`
	TenantID  string `env:"PASSWORDLESS_TENANT_ID"`
	Debug     bool   `env:"PASSWORDLESS_DEBUG"`

	MagicLinkBaseURL  string        `env:"PASSWORDLESS_MAGIC_LINK_BASE_URL"`
	TokenStrategy     string        `env:"PASSWORDLESS_TOKEN_STRATEGY"     envDefault:"sequence"`
	TokenTTL          time.Duration `env:"PASSWORDLESS_TOKEN_TTL"          envDefault:"15m"`
	MaxAttempts       int           `env:"PASSWORDLESS_MAX_ATTEMPTS"       envDefault:"5"`
	AllowUserCreation bool          `env:"PASSWORDLESS_ALLOW_USER_CREATION" envDefault:"true"`

	JWTPrivateKeyFile string `env:"PASSWORDLESS_JWT_PRIVATE_KEY_FILE"`
	JWTPublicKeyFile  string `env:"PASSWORDLESS_JWT_PUBLIC_KEY_FILE"`
	JWTIssuer         string `env:"PASSWORDLESS_JWT_ISSUER" envDefault:"gopasswordless"`

	Metrics bool `env:"PASSWORDLESS_METRICS" envDefault:"true"`
	Audit   bool `env:"PASSWORDLESS_AUDIT"   envDefault:"true"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func parseStrategy(s string) (goPasswordless.TokenStrategyType, error) {
	switch strings.ToLower(s) {
	case "", "sequence":
		return goPasswordless.TokenSequence, nil
	case "opaque":
		return goPasswordless.TokenOpaque, nil
	case "uuid":
		return goPasswordless.TokenUUID, nil
	default:
		return 0, fmt.Errorf("unknown token strategy %q", s)
	}
}

// engineConfig maps the environment onto the engine config. Without key
// files an ephemeral ed25519 pair is generated, so tokens do not survive a
// restart.
func (c Config) engineConfig(logger *zap.Logger) (goPasswordless.Config, error) {
	cfg := goPasswordless.DefaultConfig()

	strategy, err := parseStrategy(c.TokenStrategy)
	if err != nil {
		return cfg, err
	}
	cfg.LoginToken.Strategy = strategy
	cfg.LoginToken.TokenTTL = c.TokenTTL
	cfg.LoginToken.MaxAttempts = c.MaxAttempts
	cfg.LoginToken.AllowUserCreation = c.AllowUserCreation
	cfg.LoginToken.MagicLinkBaseURL = c.MagicLinkBaseURL

	cfg.JWT.Issuer = c.JWTIssuer
	switch {
	case c.JWTPrivateKeyFile != "" && c.JWTPublicKeyFile != "":
		priv, err := os.ReadFile(c.JWTPrivateKeyFile)
		if err != nil {
			return cfg, fmt.Errorf("read jwt private key: %w", err)
		}
		pub, err := os.ReadFile(c.JWTPublicKeyFile)
		if err != nil {
			return cfg, fmt.Errorf("read jwt public key: %w", err)
		}
		cfg.JWT.PrivateKey = priv
		cfg.JWT.PublicKey = pub
	case c.JWTPrivateKeyFile != "" || c.JWTPublicKeyFile != "":
		return cfg, fmt.Errorf("both PASSWORDLESS_JWT_PRIVATE_KEY_FILE and PASSWORDLESS_JWT_PUBLIC_KEY_FILE are required")
	default:
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return cfg, fmt.Errorf("generate jwt key: %w", err)
		}
		cfg.JWT.PrivateKey = priv
		cfg.JWT.PublicKey = pub
		logger.Warn("using ephemeral jwt signing key")
	}

	cfg.Metrics.Enabled = c.Metrics
	cfg.Metrics.EnableLatencyHistograms = c.Metrics
	cfg.Audit.Enabled = c.Audit

	return cfg, nil
}
