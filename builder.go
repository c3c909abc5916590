package goPasswordless

import (
	"errors"
	"time"

	"github.com/MrEthical07/goPasswordless/internal/audit"
	"github.com/MrEthical07/goPasswordless/internal/limiters"
	"github.com/MrEthical07/goPasswordless/internal/metrics"
	"github.com/MrEthical07/goPasswordless/internal/stores"
	"github.com/MrEthical07/goPasswordless/jwt"
	"github.com/MrEthical07/goPasswordless/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userProvider UserProvider
	tokenSender  TokenSender
	auditSink    AuditSink
	logger       *zap.Logger
	now          func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithTokenSender sets the out-of-band delivery channel for login tokens.
func (b *Builder) WithTokenSender(sender TokenSender) *Builder {
	b.tokenSender = sender
	return b
}

// WithAuditSink sets the audit destination. Audit must also be enabled in
// the config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the operational logger. The default discards everything.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// withClock overrides the engine clock in tests.
func (b *Builder) withClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}
	if b.tokenSender == nil {
		return nil, errors.New("token sender required")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		KeyID:         cfg.JWT.KeyID,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config: cfg,
		sessionStore: session.NewStore(
			b.redis,
			cfg.Session.RedisPrefix,
			cfg.Session.SlidingExpiration,
			cfg.Session.IdleTimeout,
		),
		tokenStore: stores.NewLoginTokenStore(b.redis, cfg.LoginToken.RedisPrefix),
		limiter: limiters.NewLoginTokenLimiter(b.redis, limiters.LoginTokenConfig{
			EnableIdentifierThrottle: cfg.LoginToken.EnableIdentifierThrottle,
			EnableIPThrottle:         cfg.LoginToken.EnableIPThrottle,
			Window:                   cfg.LoginToken.RateLimitWindow,
			MaxRequests:              cfg.LoginToken.MaxRequestsPerWindow,
			MaxRedeems:               cfg.LoginToken.MaxRedeemsPerWindow,
		}),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: metrics.New(metrics.Config{
			Enabled:       cfg.Metrics.Enabled,
			EnableLatency: cfg.Metrics.EnableLatencyHistograms,
		}),
		jwtManager:   jm,
		userProvider: b.userProvider,
		tokenSender:  b.tokenSender,
		logger:       logger.Named("gopasswordless"),
		now:          now,
	}
	engine.flowDeps = engine.buildFlowDeps()

	b.built = true

	return engine, nil
}
