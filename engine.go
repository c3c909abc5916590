package goPasswordless

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goPasswordless/internal/audit"
	internalflows "github.com/MrEthical07/goPasswordless/internal/flows"
	"github.com/MrEthical07/goPasswordless/internal/limiters"
	"github.com/MrEthical07/goPasswordless/internal/metrics"
	"github.com/MrEthical07/goPasswordless/internal/stores"
	"github.com/MrEthical07/goPasswordless/jwt"
	"github.com/MrEthical07/goPasswordless/session"
	"go.uber.org/zap"
)

// Engine issues and redeems login tokens and manages the sessions they
// create. It is safe for concurrent use; call Close on shutdown to flush
// audit events.
type Engine struct {
	config       Config
	sessionStore *session.Store
	tokenStore   *stores.LoginTokenStore
	limiter      *limiters.LoginTokenLimiter
	audit        *audit.Dispatcher
	metrics      *metrics.Metrics
	jwtManager   *jwt.Manager
	userProvider UserProvider
	tokenSender  TokenSender
	logger       *zap.Logger
	now          func() time.Time
	flowDeps     internalflows.Deps
}

func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped by backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDelivered returns the number of audit events handed to the sink.
func (e *Engine) AuditDelivered() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Delivered()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Validate verifies an access token and confirms its session is still live.
func (e *Engine) Validate(ctx context.Context, accessToken string) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}

	res := internalflows.RunValidate(ctx, accessToken, e.flowDeps.Validate)
	switch res.Failure {
	case internalflows.ValidateFailureNone:
	case internalflows.ValidateFailureSessionNotFound:
		e.metricInc(MetricValidateFailure)
		return nil, ErrSessionNotFound
	case internalflows.ValidateFailureUnavailable:
		e.metricInc(MetricValidateFailure)
		e.logger.Warn("session store unavailable during validate", zap.Error(res.Err))
		return nil, ErrLoginTokenUnavailable
	default:
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenInvalid
	}

	e.metricInc(MetricValidateSuccess)

	result := &AuthResult{
		UserID:      res.Claims.UID,
		TenantID:    res.Claims.TID,
		SessionID:   res.Claims.SID,
		LoginMethod: res.Session.LoginMethod,
	}
	if res.Claims.ExpiresAt != nil {
		result.ExpiresAt = res.Claims.ExpiresAt.Time
	}
	return result, nil
}

// Logout deletes the session behind accessToken.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	if e == nil || e.jwtManager == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}

	res := internalflows.RunLogoutByAccessToken(ctx, accessToken, e.flowDeps.Logout)
	if res.Err != nil {
		err := ErrTokenInvalid
		if errors.Is(res.Err, session.ErrRedisUnavailable) {
			err = ErrLoginTokenUnavailable
		}
		e.emitAudit(ctx, auditEventLogout, false, res.UserID, res.TenantID, res.SessionID, err, nil)
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, res.UserID, res.TenantID, res.SessionID, nil, nil)
	return nil
}

// LogoutAll deletes every session of userID in the context tenant.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}

	tenantID := tenantIDFromContext(ctx)
	if err := internalflows.RunLogoutAllInTenant(ctx, tenantID, userID, e.flowDeps.Logout); err != nil {
		e.emitAudit(ctx, auditEventLogout, false, userID, tenantID, "", ErrLoginTokenUnavailable, func() map[string]string {
			return map[string]string{"scope": "all"}
		})
		return ErrLoginTokenUnavailable
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, userID, tenantID, "", nil, func() map[string]string {
		return map[string]string{"scope": "all"}
	})
	return nil
}

func (e *Engine) buildFlowDeps() internalflows.Deps {
	return internalflows.Deps{
		LoginToken: e.loginTokenFlowDeps(),
		Validate: internalflows.ValidateDeps{
			ParseAccess:  e.jwtManager.ParseAccess,
			Now:          e.now,
			MaxClockSkew: e.config.Security.MaxClockSkew,
			SessionStore: e.sessionStore,
		},
		Logout: internalflows.LogoutDeps{
			ParseAccess:         e.jwtManager.ParseAccess,
			TenantIDFromContext: tenantIDFromContext,
			SessionStore:        e.sessionStore,
		},
		Introspection: internalflows.IntrospectionDeps{
			SessionStore:        e.sessionStore,
			TenantIDFromContext: tenantIDFromContext,
			EngineNotReadyErr:   ErrEngineNotReady,
			UserNotFoundErr:     ErrUserNotFound,
		},
	}
}
