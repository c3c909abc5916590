package flows

import (
	"context"
	"errors"
	"time"
)

type LoginTokenUser struct {
	UserID   string
	TenantID string
	Email    string
	Username string
	Profile  map[string]any
}

type LoginTokenStoreRecord struct {
	UserID     string
	SecretHash [32]byte
	ExpiresAt  int64
	Attempts   uint16
	Strategy   int
}

// LoginTokenRequest is the normalized form of a token request. Identifier is
// the email or username, empty for opaque selectors.
type LoginTokenRequest struct {
	Selector             map[string]any
	Identifier           string
	UserData             map[string]any
	Options              map[string]any
	UserCreationDisabled bool
}

type LoginTokenDelivery struct {
	User      LoginTokenUser
	Token     string
	Link      string
	ExpiresAt time.Time
	Options   map[string]any
}

type LoginTokenSession struct {
	UserID      string
	SessionID   string
	AccessToken string
	ExpiresAt   time.Time
}

type LoginTokenMetrics struct {
	RequestSuccess     int
	RequestFailure     int
	RequestRateLimited int
	UserCreated        int
	RedeemSuccess      int
	RedeemFailure      int
	RedeemRateLimited  int
	AttemptsExceeded   int
	Expired            int
	SessionCreated     int
}

type LoginTokenEvents struct {
	Request     string
	Redeem      string
	UserCreated string
}

type LoginTokenErrors struct {
	EngineNotReady        error
	SelectorRequired      error
	UserNotFound          error
	UserCreationDisabled  error
	UserCreationFailed    error
	LoginTokenInvalid     error
	LoginTokenExpired     error
	LoginTokenAttempts    error
	LoginTokenRateLimited error
	LoginTokenUnavailable error
	DeliveryFailed        error
	SessionCreationFailed error
}

type LoginTokenDeps struct {
	Strategy          int
	TokenTTL          time.Duration
	MaxAttempts       int
	AllowUserCreation bool

	TenantIDFromContext func(context.Context) string
	ClientIPFromContext func(context.Context) string
	Now                 func() time.Time

	CheckRequestLimiter func(context.Context, string, string, string) error
	CheckRedeemLimiter  func(context.Context, string, string, string) error
	ResetRedeemLimiter  func(context.Context, string, string) error
	MapLimiterError     func(error) error
	MapStoreError       func(error) error

	FindUser       func(context.Context, map[string]any) (LoginTokenUser, error)
	CreateUser     func(context.Context, string, LoginTokenRequest) (LoginTokenUser, error)
	IsUserNotFound func(error) bool

	GenerateToken func(int) (string, [32]byte, error)
	HashToken     func(int, string) [32]byte
	BuildLink     func(string, map[string]any) string
	SendToken     func(context.Context, LoginTokenDelivery) error

	SaveToken    func(context.Context, string, LoginTokenStoreRecord, time.Duration) error
	ConsumeToken func(context.Context, string, string, [32]byte, int, int) (LoginTokenStoreRecord, error)

	CreateSession func(context.Context, string, LoginTokenUser) (LoginTokenSession, error)

	MetricInc      func(int)
	ObserveLatency func(time.Duration)
	EmitAudit      func(context.Context, string, bool, string, string, string, error, func() map[string]string)
	EmitRateLimit  func(context.Context, string, string, func() map[string]string)

	Metrics LoginTokenMetrics
	Events  LoginTokenEvents
	Errors  LoginTokenErrors
}

// RunRequestLoginToken resolves (or creates) the user behind req, stores a
// fresh token hash and hands the plaintext to the sender. A newer request
// replaces any token issued before it.
func RunRequestLoginToken(ctx context.Context, req LoginTokenRequest, deps LoginTokenDeps) error {
	normalizeLoginTokenDeps(&deps)

	if deps.FindUser == nil || deps.GenerateToken == nil || deps.SaveToken == nil || deps.SendToken == nil {
		return deps.Errors.EngineNotReady
	}

	tenantID := deps.TenantIDFromContext(ctx)
	identifierMeta := func() map[string]string {
		return map[string]string{
			"identifier": req.Identifier,
		}
	}

	if len(req.Selector) == 0 {
		deps.MetricInc(deps.Metrics.RequestFailure)
		deps.EmitAudit(ctx, deps.Events.Request, false, "", tenantID, "", deps.Errors.SelectorRequired, nil)
		return deps.Errors.SelectorRequired
	}

	if err := deps.CheckRequestLimiter(ctx, tenantID, req.Identifier, deps.ClientIPFromContext(ctx)); err != nil {
		mapped := deps.MapLimiterError(err)
		if errors.Is(mapped, deps.Errors.LoginTokenRateLimited) {
			deps.MetricInc(deps.Metrics.RequestRateLimited)
			deps.EmitRateLimit(ctx, "login_token_request", tenantID, identifierMeta)
		} else {
			deps.MetricInc(deps.Metrics.RequestFailure)
		}
		deps.EmitAudit(ctx, deps.Events.Request, false, "", tenantID, "", mapped, identifierMeta)
		return mapped
	}

	user, err := deps.FindUser(ctx, req.Selector)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if !deps.IsUserNotFound(err) {
			deps.MetricInc(deps.Metrics.RequestFailure)
			deps.EmitAudit(ctx, deps.Events.Request, false, "", tenantID, "", deps.Errors.LoginTokenUnavailable, identifierMeta)
			return deps.Errors.LoginTokenUnavailable
		}
		if !deps.AllowUserCreation || req.UserCreationDisabled || deps.CreateUser == nil {
			deps.MetricInc(deps.Metrics.RequestFailure)
			deps.EmitAudit(ctx, deps.Events.Request, false, "", tenantID, "", deps.Errors.UserCreationDisabled, identifierMeta)
			return deps.Errors.UserCreationDisabled
		}

		user, err = deps.CreateUser(ctx, tenantID, req)
		if err != nil {
			deps.MetricInc(deps.Metrics.RequestFailure)
			deps.EmitAudit(ctx, deps.Events.UserCreated, false, "", tenantID, "", deps.Errors.UserCreationFailed, identifierMeta)
			return deps.Errors.UserCreationFailed
		}
		deps.MetricInc(deps.Metrics.UserCreated)
		deps.EmitAudit(ctx, deps.Events.UserCreated, true, user.UserID, tenantID, "", nil, identifierMeta)
	}

	effectiveTenant := tenantID
	if user.TenantID != "" {
		effectiveTenant = user.TenantID
	}

	token, secretHash, err := deps.GenerateToken(deps.Strategy)
	if err != nil {
		deps.MetricInc(deps.Metrics.RequestFailure)
		deps.EmitAudit(ctx, deps.Events.Request, false, user.UserID, effectiveTenant, "", deps.Errors.LoginTokenUnavailable, func() map[string]string {
			return map[string]string{
				"identifier": req.Identifier,
				"reason":     "generation_failed",
			}
		})
		return deps.Errors.LoginTokenUnavailable
	}

	expiresAt := deps.Now().Add(deps.TokenTTL)
	record := LoginTokenStoreRecord{
		UserID:     user.UserID,
		SecretHash: secretHash,
		ExpiresAt:  expiresAt.Unix(),
		Strategy:   deps.Strategy,
	}
	if err := deps.SaveToken(ctx, effectiveTenant, record, deps.TokenTTL); err != nil {
		mapped := deps.MapStoreError(err)
		deps.MetricInc(deps.Metrics.RequestFailure)
		deps.EmitAudit(ctx, deps.Events.Request, false, user.UserID, effectiveTenant, "", mapped, identifierMeta)
		return mapped
	}

	delivery := LoginTokenDelivery{
		User:      user,
		Token:     token,
		Link:      deps.BuildLink(token, req.Selector),
		ExpiresAt: expiresAt,
		Options:   req.Options,
	}
	if err := deps.SendToken(ctx, delivery); err != nil {
		deps.MetricInc(deps.Metrics.RequestFailure)
		deps.EmitAudit(ctx, deps.Events.Request, false, user.UserID, effectiveTenant, "", deps.Errors.DeliveryFailed, identifierMeta)
		return deps.Errors.DeliveryFailed
	}

	deps.MetricInc(deps.Metrics.RequestSuccess)
	deps.EmitAudit(ctx, deps.Events.Request, true, user.UserID, effectiveTenant, "", nil, func() map[string]string {
		return map[string]string{
			"identifier": req.Identifier,
			"strategy":   tokenStrategyLabel(deps.Strategy),
		}
	})
	return nil
}

// RunRedeemLoginToken exchanges a login token for a new session. The token
// is consumed on success; a wrong token counts one attempt.
func RunRedeemLoginToken(ctx context.Context, selector map[string]any, identifier, token string, deps LoginTokenDeps) (LoginTokenSession, error) {
	normalizeLoginTokenDeps(&deps)

	start := deps.Now()
	tenantID := deps.TenantIDFromContext(ctx)

	if deps.FindUser == nil || deps.HashToken == nil || deps.ConsumeToken == nil || deps.CreateSession == nil {
		return LoginTokenSession{}, deps.Errors.EngineNotReady
	}

	fail := func(userID string, err error, meta func() map[string]string) (LoginTokenSession, error) {
		deps.MetricInc(deps.Metrics.RedeemFailure)
		deps.EmitAudit(ctx, deps.Events.Redeem, false, userID, tenantID, "", err, meta)
		return LoginTokenSession{}, err
	}
	identifierMeta := func() map[string]string {
		return map[string]string{
			"identifier": identifier,
		}
	}

	if len(selector) == 0 {
		return fail("", deps.Errors.SelectorRequired, nil)
	}
	if token == "" {
		return fail("", deps.Errors.LoginTokenInvalid, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "empty_token",
			}
		})
	}

	if err := deps.CheckRedeemLimiter(ctx, tenantID, identifier, deps.ClientIPFromContext(ctx)); err != nil {
		mapped := deps.MapLimiterError(err)
		if errors.Is(mapped, deps.Errors.LoginTokenRateLimited) {
			deps.MetricInc(deps.Metrics.RedeemRateLimited)
			deps.EmitRateLimit(ctx, "login_token_redeem", tenantID, identifierMeta)
		}
		return fail("", mapped, identifierMeta)
	}

	user, err := deps.FindUser(ctx, selector)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return LoginTokenSession{}, err
		}
		if deps.IsUserNotFound(err) {
			return fail("", deps.Errors.UserNotFound, identifierMeta)
		}
		return fail("", deps.Errors.LoginTokenUnavailable, identifierMeta)
	}
	if user.TenantID != "" {
		tenantID = user.TenantID
	}

	providedHash := deps.HashToken(deps.Strategy, token)
	if _, err := deps.ConsumeToken(ctx, tenantID, user.UserID, providedHash, deps.Strategy, deps.MaxAttempts); err != nil {
		mapped := deps.MapStoreError(err)
		switch {
		case errors.Is(mapped, deps.Errors.LoginTokenExpired):
			deps.MetricInc(deps.Metrics.Expired)
		case errors.Is(mapped, deps.Errors.LoginTokenAttempts):
			deps.MetricInc(deps.Metrics.AttemptsExceeded)
		}
		return fail(user.UserID, mapped, identifierMeta)
	}

	sess, err := deps.CreateSession(ctx, tenantID, user)
	if err != nil {
		return fail(user.UserID, deps.Errors.SessionCreationFailed, identifierMeta)
	}

	// Best effort: a failed reset only delays the next throttle window.
	_ = deps.ResetRedeemLimiter(ctx, tenantID, identifier)

	deps.MetricInc(deps.Metrics.RedeemSuccess)
	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.ObserveLatency(deps.Now().Sub(start))
	deps.EmitAudit(ctx, deps.Events.Redeem, true, user.UserID, tenantID, sess.SessionID, nil, identifierMeta)

	return sess, nil
}

func tokenStrategyLabel(strategy int) string {
	switch strategy {
	case 0:
		return "sequence"
	case 1:
		return "opaque"
	case 2:
		return "uuid"
	default:
		return "unknown"
	}
}

func normalizeLoginTokenDeps(deps *LoginTokenDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.TenantIDFromContext == nil {
		deps.TenantIDFromContext = func(context.Context) string { return "0" }
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.CheckRequestLimiter == nil {
		deps.CheckRequestLimiter = func(context.Context, string, string, string) error { return nil }
	}
	if deps.CheckRedeemLimiter == nil {
		deps.CheckRedeemLimiter = func(context.Context, string, string, string) error { return nil }
	}
	if deps.ResetRedeemLimiter == nil {
		deps.ResetRedeemLimiter = func(context.Context, string, string) error { return nil }
	}
	if deps.MapLimiterError == nil {
		deps.MapLimiterError = func(error) error { return deps.Errors.LoginTokenUnavailable }
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = func(error) error { return deps.Errors.LoginTokenUnavailable }
	}
	if deps.Errors.UserCreationDisabled == nil {
		deps.Errors.UserCreationDisabled = deps.Errors.UserNotFound
	}
	if deps.IsUserNotFound == nil {
		deps.IsUserNotFound = func(error) bool { return false }
	}
	if deps.BuildLink == nil {
		deps.BuildLink = func(string, map[string]any) string { return "" }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(time.Duration) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, string, error, func() map[string]string) {}
	}
	if deps.EmitRateLimit == nil {
		deps.EmitRateLimit = func(context.Context, string, string, func() map[string]string) {}
	}
}
