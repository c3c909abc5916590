package goPasswordless

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goPasswordless/internal"
	internalflows "github.com/MrEthical07/goPasswordless/internal/flows"
	"github.com/MrEthical07/goPasswordless/internal/limiters"
	"github.com/MrEthical07/goPasswordless/internal/stores"
	"github.com/MrEthical07/goPasswordless/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestLoginToken issues a login token for the user matching
// req.Selector and delivers it through the TokenSender. Unknown users are
// created when LoginTokenConfig.AllowUserCreation is set and the request
// does not carry userCreationDisabled.
func (e *Engine) RequestLoginToken(ctx context.Context, req TokenRequest) error {
	if e == nil {
		return ErrEngineNotReady
	}

	selector := NormalizeSelector(req.Selector)
	err := internalflows.RunRequestLoginToken(ctx, internalflows.LoginTokenRequest{
		Selector:             selector,
		Identifier:           selector.Identifier(),
		UserData:             req.UserData,
		Options:              req.Options,
		UserCreationDisabled: req.Options.UserCreationDisabled(),
	}, e.flowDeps.LoginToken)
	if err != nil && errors.Is(err, ErrLoginTokenUnavailable) {
		e.logger.Warn("login token request failed", zap.Error(err), zap.String("identifier", selector.Identifier()))
	}
	return err
}

// LoginWithToken redeems a login token and starts a session. selector
// accepts anything NormalizeSelector does.
func (e *Engine) LoginWithToken(ctx context.Context, selector any, token string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	sel := NormalizeSelector(selector)
	sess, err := internalflows.RunRedeemLoginToken(ctx, sel, sel.Identifier(), token, e.flowDeps.LoginToken)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		UserID:       sess.UserID,
		Token:        sess.AccessToken,
		TokenExpires: sess.ExpiresAt,
		SessionID:    sess.SessionID,
	}, nil
}

func (e *Engine) loginTokenFlowDeps() internalflows.LoginTokenDeps {
	cfg := e.config.LoginToken

	deps := internalflows.LoginTokenDeps{
		Strategy:            int(cfg.Strategy),
		TokenTTL:            cfg.TokenTTL,
		MaxAttempts:         cfg.MaxAttempts,
		AllowUserCreation:   cfg.AllowUserCreation,
		TenantIDFromContext: tenantIDFromContext,
		ClientIPFromContext: clientIPFromContext,
		Now:                 e.now,
		MapLimiterError:     mapLoginTokenLimiterError,
		MapStoreError:       mapLoginTokenStoreError,
		IsUserNotFound: func(err error) bool {
			return errors.Is(err, ErrUserNotFound)
		},
		GenerateToken: func(strategy int) (string, [32]byte, error) {
			return generateLoginToken(TokenStrategyType(strategy), cfg.SequenceLength)
		},
		HashToken: func(strategy int, token string) [32]byte {
			return hashLoginToken(TokenStrategyType(strategy), token)
		},
		BuildLink: func(token string, selector map[string]any) string {
			return e.magicLink(token, Selector(selector))
		},
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		ObserveLatency: func(d time.Duration) {
			if e.metrics != nil {
				e.metrics.Observe(MetricRedeemLatency, d)
			}
		},
		EmitAudit:     e.emitAudit,
		EmitRateLimit: e.emitRateLimit,
		Metrics: internalflows.LoginTokenMetrics{
			RequestSuccess:     int(MetricTokenRequestSuccess),
			RequestFailure:     int(MetricTokenRequestFailure),
			RequestRateLimited: int(MetricTokenRequestRateLimited),
			UserCreated:        int(MetricUserCreated),
			RedeemSuccess:      int(MetricTokenRedeemSuccess),
			RedeemFailure:      int(MetricTokenRedeemFailure),
			RedeemRateLimited:  int(MetricTokenRedeemRateLimited),
			AttemptsExceeded:   int(MetricTokenAttemptsExceeded),
			Expired:            int(MetricTokenExpired),
			SessionCreated:     int(MetricSessionCreated),
		},
		Events: internalflows.LoginTokenEvents{
			Request:     auditEventLoginTokenRequest,
			Redeem:      auditEventLoginTokenRedeem,
			UserCreated: auditEventUserCreated,
		},
		Errors: internalflows.LoginTokenErrors{
			EngineNotReady:        ErrEngineNotReady,
			SelectorRequired:      ErrSelectorRequired,
			UserNotFound:          ErrUserNotFound,
			UserCreationDisabled:  ErrUserCreationDisabled,
			UserCreationFailed:    ErrUserCreationFailed,
			LoginTokenInvalid:     ErrLoginTokenInvalid,
			LoginTokenExpired:     ErrLoginTokenExpired,
			LoginTokenAttempts:    ErrLoginTokenAttempts,
			LoginTokenRateLimited: ErrLoginTokenRateLimited,
			LoginTokenUnavailable: ErrLoginTokenUnavailable,
			DeliveryFailed:        ErrLoginTokenDeliveryFailed,
			SessionCreationFailed: ErrSessionCreationFailed,
		},
	}

	if e.limiter != nil {
		deps.CheckRequestLimiter = e.limiter.CheckRequest
		deps.CheckRedeemLimiter = e.limiter.CheckRedeem
		deps.ResetRedeemLimiter = e.limiter.ResetRedeem
	}
	if e.userProvider != nil {
		deps.FindUser = func(ctx context.Context, selector map[string]any) (internalflows.LoginTokenUser, error) {
			var (
				user UserRecord
				err  error
			)
			if id, ok := Selector(selector).UserID(); ok {
				user, err = e.userProvider.GetUserByID(ctx, id)
			} else {
				user, err = e.userProvider.FindUser(ctx, Selector(selector))
			}
			if err != nil {
				return internalflows.LoginTokenUser{}, err
			}
			return toFlowUser(user), nil
		}
		deps.CreateUser = func(ctx context.Context, tenantID string, req internalflows.LoginTokenRequest) (internalflows.LoginTokenUser, error) {
			sel := Selector(req.Selector)
			email, _ := sel.Email()
			username, _ := sel.Username()
			user, err := e.userProvider.CreateUser(ctx, CreateUserInput{
				TenantID: tenantID,
				Email:    email,
				Username: username,
				Selector: sel,
				UserData: req.UserData,
			})
			if err != nil {
				e.logger.Warn("user creation failed", zap.Error(err), zap.String("identifier", req.Identifier))
				return internalflows.LoginTokenUser{}, err
			}
			return toFlowUser(user), nil
		}
	}
	if e.tokenStore != nil {
		deps.SaveToken = func(ctx context.Context, tenantID string, record internalflows.LoginTokenStoreRecord, ttl time.Duration) error {
			return e.tokenStore.Save(ctx, tenantID, &stores.LoginTokenRecord{
				UserID:     record.UserID,
				SecretHash: record.SecretHash,
				ExpiresAt:  record.ExpiresAt,
				Attempts:   record.Attempts,
				Strategy:   record.Strategy,
			}, ttl)
		}
		deps.ConsumeToken = func(ctx context.Context, tenantID, userID string, providedHash [32]byte, strategy, maxAttempts int) (internalflows.LoginTokenStoreRecord, error) {
			record, err := e.tokenStore.Consume(ctx, tenantID, userID, providedHash, strategy, maxAttempts)
			if err != nil {
				return internalflows.LoginTokenStoreRecord{}, err
			}
			return internalflows.LoginTokenStoreRecord{
				UserID:     record.UserID,
				SecretHash: record.SecretHash,
				ExpiresAt:  record.ExpiresAt,
				Attempts:   record.Attempts,
				Strategy:   record.Strategy,
			}, nil
		}
	}
	if e.tokenSender != nil {
		deps.SendToken = func(ctx context.Context, delivery internalflows.LoginTokenDelivery) error {
			err := e.tokenSender.SendLoginToken(ctx, TokenDelivery{
				User:      fromFlowUser(delivery.User),
				Token:     delivery.Token,
				Link:      delivery.Link,
				ExpiresAt: delivery.ExpiresAt,
				Options:   TokenRequestOptions(delivery.Options),
			})
			if err != nil {
				e.logger.Error("login token delivery failed", zap.Error(err), zap.String("user_id", delivery.User.UserID))
			}
			return err
		}
	}
	if e.sessionStore != nil && e.jwtManager != nil {
		deps.CreateSession = e.createSession
	}

	return deps
}

func (e *Engine) createSession(ctx context.Context, tenantID string, user internalflows.LoginTokenUser) (internalflows.LoginTokenSession, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return internalflows.LoginTokenSession{}, err
	}

	now := e.now()
	lifetime := e.config.Session.AbsoluteLifetime
	sess := &session.Session{
		SessionID:   sid.String(),
		UserID:      user.UserID,
		TenantID:    tenantID,
		LoginMethod: loginMethodToken,
		CreatedAt:   now.Unix(),
		ExpiresAt:   now.Add(lifetime).Unix(),
	}
	if ip := clientIPFromContext(ctx); ip != "" {
		sess.IPHash = internal.HashToken(ip)
	}

	ttl := lifetime
	if e.config.Session.SlidingExpiration && e.config.Session.IdleTimeout > 0 {
		ttl = e.config.Session.IdleTimeout
	}
	if err := e.sessionStore.Save(ctx, sess, ttl); err != nil {
		e.logger.Error("session save failed", zap.Error(err), zap.String("user_id", user.UserID))
		return internalflows.LoginTokenSession{}, err
	}

	access, expiresAt, err := e.jwtManager.CreateAccess(user.UserID, tenantID, sess.SessionID, loginMethodToken)
	if err != nil {
		_ = e.sessionStore.Delete(ctx, tenantID, sess.SessionID)
		return internalflows.LoginTokenSession{}, err
	}

	return internalflows.LoginTokenSession{
		UserID:      user.UserID,
		SessionID:   sess.SessionID,
		AccessToken: access,
		ExpiresAt:   expiresAt,
	}, nil
}

// magicLink appends loginToken and selector to the configured base URL so
// that the link lands on a page running the client auto-login.
func (e *Engine) magicLink(token string, selector Selector) string {
	base := e.config.LoginToken.MagicLinkBaseURL
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	encoded, err := EncodeSelectorParam(selector)
	if err != nil {
		return ""
	}

	q := u.Query()
	q.Set(internalflows.LoginTokenParam, token)
	q.Set(internalflows.SelectorParam, encoded)
	u.RawQuery = q.Encode()
	return u.String()
}

func generateLoginToken(strategy TokenStrategyType, sequenceLength int) (string, [32]byte, error) {
	var (
		token string
		err   error
	)

	switch strategy {
	case TokenSequence:
		token, err = internal.NewSequence(sequenceLength)
	case TokenOpaque:
		token, err = internal.NewOpaqueToken()
	case TokenUUID:
		var id uuid.UUID
		id, err = uuid.NewRandom()
		token = id.String()
	default:
		err = fmt.Errorf("unsupported token strategy %d", strategy)
	}
	if err != nil {
		return "", [32]byte{}, err
	}

	return token, hashLoginToken(strategy, token), nil
}

// hashLoginToken folds what a user may retype differently before hashing.
func hashLoginToken(strategy TokenStrategyType, token string) [32]byte {
	switch strategy {
	case TokenSequence:
		token = internal.NormalizeSequence(token)
	case TokenUUID:
		token = strings.ToLower(strings.TrimSpace(token))
	}
	return internal.HashToken(token)
}

func toFlowUser(u UserRecord) internalflows.LoginTokenUser {
	return internalflows.LoginTokenUser{
		UserID:   u.UserID,
		TenantID: u.TenantID,
		Email:    u.Email,
		Username: u.Username,
		Profile:  u.Profile,
	}
}

func fromFlowUser(u internalflows.LoginTokenUser) UserRecord {
	return UserRecord{
		UserID:   u.UserID,
		TenantID: u.TenantID,
		Email:    u.Email,
		Username: u.Username,
		Profile:  u.Profile,
	}
}

func mapLoginTokenLimiterError(err error) error {
	switch {
	case errors.Is(err, limiters.ErrLoginTokenRateLimited):
		return ErrLoginTokenRateLimited
	default:
		return ErrLoginTokenUnavailable
	}
}

func mapLoginTokenStoreError(err error) error {
	switch {
	case errors.Is(err, stores.ErrLoginTokenNotFound),
		errors.Is(err, stores.ErrLoginTokenMismatch):
		return ErrLoginTokenInvalid
	case errors.Is(err, stores.ErrLoginTokenExpired):
		return ErrLoginTokenExpired
	case errors.Is(err, stores.ErrLoginTokenAttemptsExceeded):
		return ErrLoginTokenAttempts
	default:
		return ErrLoginTokenUnavailable
	}
}
