package goPasswordless

import (
	"testing"
	"time"
)

func TestDefaultConfigNeedsOnlyKeys(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected default config without keys to fail")
	}
	cfg = testConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"signing method":     func(c *Config) { c.JWT.SigningMethod = "rs256" },
		"short hs256 key":    func(c *Config) { c.JWT.SigningMethod = "hs256"; c.JWT.PrivateKey = []byte("short") },
		"access ttl":         func(c *Config) { c.JWT.AccessTTL = 0 },
		"idle over lifetime": func(c *Config) { c.Session.IdleTimeout = c.Session.AbsoluteLifetime + time.Hour },
		"strategy":           func(c *Config) { c.LoginToken.Strategy = TokenStrategyType(9) },
		"sequence length":    func(c *Config) { c.LoginToken.SequenceLength = 3 },
		"token ttl":          func(c *Config) { c.LoginToken.TokenTTL = 0 },
		"max attempts":       func(c *Config) { c.LoginToken.MaxAttempts = 0 },
		"rate window":        func(c *Config) { c.LoginToken.RateLimitWindow = 0 },
		"relative link":      func(c *Config) { c.LoginToken.MagicLinkBaseURL = "/login" },
		"audit buffer":       func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 },
		"latency only":       func(c *Config) { c.Metrics.EnableLatencyHistograms = true },
		"clock skew":         func(c *Config) { c.Security.MaxClockSkew = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t)
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestConfigHS256(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected hs256 config valid, got %v", err)
	}
}

func TestConfigProductionMode(t *testing.T) {
	base := testConfig(t)
	base.Security.ProductionMode = true
	base.LoginToken.MagicLinkBaseURL = "https://app.example.com/login"
	if err := base.Validate(); err != nil {
		t.Fatalf("expected production config valid, got %v", err)
	}

	cases := map[string]func(*Config){
		"many attempts":     func(c *Config) { c.LoginToken.MaxAttempts = 10 },
		"long sequence ttl": func(c *Config) { c.LoginToken.TokenTTL = time.Hour },
		"no throttle":       func(c *Config) { c.LoginToken.EnableIPThrottle = false },
		"plain http link":   func(c *Config) { c.LoginToken.MagicLinkBaseURL = "http://app.example.com/login" },
		"no issuer":         func(c *Config) { c.JWT.Issuer = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected production validation error")
			}
		})
	}

	opaque := base
	opaque.LoginToken.Strategy = TokenOpaque
	opaque.LoginToken.TokenTTL = time.Hour
	opaque.LoginToken.MaxAttempts = 10
	if err := opaque.Validate(); err != nil {
		t.Fatalf("expected long-lived opaque tokens allowed, got %v", err)
	}
}
