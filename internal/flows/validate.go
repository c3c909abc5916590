package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goPasswordless/jwt"
	"github.com/MrEthical07/goPasswordless/session"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureUnauthorized
	ValidateFailureClockSkew
	ValidateFailureSessionNotFound
	ValidateFailureUnavailable
)

// ValidateResult carries either the verified claims and session or a
// classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.AccessClaims
	Session *session.Session
}

type ValidateSessionStore interface {
	Get(ctx context.Context, tenantID, sessionID string) (*session.Session, error)
}

type ValidateDeps struct {
	ParseAccess  func(string) (*jwt.AccessClaims, error)
	Now          func() time.Time
	MaxClockSkew time.Duration
	SessionStore ValidateSessionStore
}

// RunValidate verifies the access token and requires its session to still
// exist, so logout takes effect before the token expires.
func RunValidate(ctx context.Context, tokenStr string, deps ValidateDeps) ValidateResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	claims, err := deps.ParseAccess(tokenStr)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureUnauthorized, Err: err}
	}
	if deps.MaxClockSkew > 0 && claims.IssuedAt != nil &&
		claims.IssuedAt.Time.After(deps.Now().Add(deps.MaxClockSkew)) {
		return ValidateResult{Failure: ValidateFailureClockSkew}
	}

	sess, err := deps.SessionStore.Get(ctx, claims.TID, claims.SID)
	if err != nil {
		if errors.Is(err, session.ErrRedisUnavailable) {
			return ValidateResult{Failure: ValidateFailureUnavailable, Err: err}
		}
		return ValidateResult{Failure: ValidateFailureSessionNotFound, Err: err}
	}
	if sess.UserID != claims.UID {
		return ValidateResult{Failure: ValidateFailureUnauthorized}
	}

	return ValidateResult{Claims: claims, Session: sess}
}
