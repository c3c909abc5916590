package goPasswordless

import (
	"errors"
	"net/url"
	"time"
)

// Config is the full engine configuration. Start from DefaultConfig and
// override fields; Build validates the result.
type Config struct {
	JWT        JWTConfig
	Session    SessionConfig
	LoginToken LoginTokenConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
	Security   SecurityConfig
}

/*
====================================
JWT CONFIG
====================================
*/

type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	KeyID         string
	Leeway        time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

type SessionConfig struct {
	RedisPrefix       string
	AbsoluteLifetime  time.Duration
	SlidingExpiration bool
	IdleTimeout       time.Duration
}

/*
====================================
LOGIN TOKEN CONFIG
====================================
*/

// LoginTokenConfig controls issuing and redeeming login tokens.
type LoginTokenConfig struct {
	Strategy       TokenStrategyType
	SequenceLength int
	TokenTTL       time.Duration
	MaxAttempts    int
	RedisPrefix    string

	// AllowUserCreation lets a token request for an unknown selector create
	// the user. A request can still opt out with userCreationDisabled.
	AllowUserCreation bool

	// MagicLinkBaseURL, when set, is used to build the link handed to the
	// TokenSender. The link carries loginToken and selector query params.
	MagicLinkBaseURL string

	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
	RateLimitWindow          time.Duration
	MaxRequestsPerWindow     int
	MaxRedeemsPerWindow      int
}

/*
====================================
AUDIT CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds cross-cutting hardening switches. ProductionMode
// tightens Validate.
type SecurityConfig struct {
	ProductionMode bool
	MaxClockSkew   time.Duration
}

// DefaultConfig returns a development-ready configuration. JWT keys must
// still be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			SigningMethod: "ed25519",
			Issuer:        "gopasswordless",
		},
		Session: SessionConfig{
			RedisPrefix:       "as",
			AbsoluteLifetime:  30 * 24 * time.Hour,
			SlidingExpiration: true,
			IdleTimeout:       7 * 24 * time.Hour,
		},
		LoginToken: LoginTokenConfig{
			Strategy:                 TokenSequence,
			SequenceLength:           6,
			TokenTTL:                 15 * time.Minute,
			MaxAttempts:              5,
			RedisPrefix:              "alt",
			AllowUserCreation:        true,
			EnableIdentifierThrottle: true,
			EnableIPThrottle:         true,
			RateLimitWindow:          15 * time.Minute,
			MaxRequestsPerWindow:     5,
			MaxRedeemsPerWindow:      10,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode: false,
			MaxClockSkew:   30 * time.Second,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks c for internal consistency.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) < 32 {
		return errors.New("hs256 requires PrivateKey of at least 32 bytes")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Session
	if c.Session.AbsoluteLifetime <= 0 {
		return errors.New("Session AbsoluteLifetime must be > 0")
	}
	if c.Session.SlidingExpiration && c.Session.IdleTimeout <= 0 {
		return errors.New("Session IdleTimeout must be > 0 when SlidingExpiration is true")
	}
	if c.Session.IdleTimeout > c.Session.AbsoluteLifetime {
		return errors.New("Session IdleTimeout must be <= AbsoluteLifetime")
	}

	// Login token
	switch c.LoginToken.Strategy {
	case TokenSequence, TokenOpaque, TokenUUID:
		// valid
	default:
		return errors.New("LoginToken Strategy is invalid")
	}
	if c.LoginToken.Strategy == TokenSequence &&
		(c.LoginToken.SequenceLength < 4 || c.LoginToken.SequenceLength > 16) {
		return errors.New("LoginToken SequenceLength must be between 4 and 16")
	}
	if c.LoginToken.TokenTTL <= 0 {
		return errors.New("LoginToken TokenTTL must be > 0")
	}
	if c.LoginToken.MaxAttempts <= 0 {
		return errors.New("LoginToken MaxAttempts must be > 0")
	}
	if c.LoginToken.MaxAttempts > 65535 {
		return errors.New("LoginToken MaxAttempts must be <= 65535")
	}
	if (c.LoginToken.EnableIdentifierThrottle || c.LoginToken.EnableIPThrottle) &&
		(c.LoginToken.RateLimitWindow <= 0 ||
			c.LoginToken.MaxRequestsPerWindow <= 0 ||
			c.LoginToken.MaxRedeemsPerWindow <= 0) {
		return errors.New("LoginToken rate limits must be > 0 when throttling is enabled")
	}
	if c.LoginToken.MagicLinkBaseURL != "" {
		u, err := url.Parse(c.LoginToken.MagicLinkBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("LoginToken MagicLinkBaseURL must be an absolute URL")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	if c.Security.MaxClockSkew < 0 {
		return errors.New("Security MaxClockSkew must be >= 0")
	}

	if c.Security.ProductionMode {
		if c.LoginToken.Strategy == TokenSequence {
			if c.LoginToken.MaxAttempts > 5 {
				return errors.New("ProductionMode requires LoginToken MaxAttempts <= 5 for sequence tokens")
			}
			if c.LoginToken.TokenTTL > 15*time.Minute {
				return errors.New("ProductionMode requires LoginToken TokenTTL <= 15m for sequence tokens")
			}
		}
		if !c.LoginToken.EnableIdentifierThrottle || !c.LoginToken.EnableIPThrottle {
			return errors.New("ProductionMode requires LoginToken throttles to be enabled")
		}
		if c.LoginToken.MagicLinkBaseURL != "" {
			if u, _ := url.Parse(c.LoginToken.MagicLinkBaseURL); u.Scheme != "https" {
				return errors.New("ProductionMode requires an https MagicLinkBaseURL")
			}
		}
		if c.JWT.Issuer == "" {
			return errors.New("ProductionMode requires JWT Issuer")
		}
	}

	return nil
}
