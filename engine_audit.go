package goPasswordless

import (
	"context"
	"errors"

	"github.com/MrEthical07/goPasswordless/internal/audit"
)

const (
	auditEventLoginTokenRequest     = "login_token_request"
	auditEventLoginTokenRedeem      = "login_token_redeem"
	auditEventLoginTokenRateLimited = "login_token_rate_limited"
	auditEventUserCreated           = "user_created"
	auditEventLogout                = "logout"
)

// AuditErrorCode is the stable error label recorded on failed audit events.
type AuditErrorCode string

const (
	auditErrUnauthorized          AuditErrorCode = "unauthorized"
	auditErrSelectorRequired      AuditErrorCode = "selector_required"
	auditErrUserNotFound          AuditErrorCode = "user_not_found"
	auditErrUserCreation          AuditErrorCode = "user_creation_failed"
	auditErrInvalidToken          AuditErrorCode = "invalid_token"
	auditErrExpiredToken          AuditErrorCode = "expired_token"
	auditErrAttemptsExceeded      AuditErrorCode = "attempts_exceeded"
	auditErrRateLimited           AuditErrorCode = "rate_limited"
	auditErrDeliveryFailed        AuditErrorCode = "delivery_failed"
	auditErrSessionNotFound       AuditErrorCode = "session_not_found"
	auditErrSessionCreationFailed AuditErrorCode = "session_creation_failed"
	auditErrUnavailable           AuditErrorCode = "backend_unavailable"
	auditErrInternal              AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	tenantID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}
	if tenantID == "" {
		tenantID = tenantIDFromContext(ctx)
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := audit.Event{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		TenantID:  tenantID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	tenantID string,
	metadataBuilder func() map[string]string,
) {
	e.emitAudit(ctx, auditEventLoginTokenRateLimited, false, "", tenantID, "", ErrLoginTokenRateLimited, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrTokenInvalid):
		return auditErrUnauthorized
	case errors.Is(err, ErrSelectorRequired):
		return auditErrSelectorRequired
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrUserCreationDisabled):
		return auditErrUserNotFound
	case errors.Is(err, ErrUserCreationFailed):
		return auditErrUserCreation
	case errors.Is(err, ErrLoginTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrLoginTokenExpired):
		return auditErrExpiredToken
	case errors.Is(err, ErrLoginTokenAttempts):
		return auditErrAttemptsExceeded
	case errors.Is(err, ErrLoginTokenRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrLoginTokenDeliveryFailed):
		return auditErrDeliveryFailed
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrSessionCreationFailed):
		return auditErrSessionCreationFailed
	case errors.Is(err, ErrLoginTokenUnavailable), errors.Is(err, ErrEngineNotReady):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
