package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goPasswordless/session"
)

type IntrospectionSessionStore interface {
	ActiveSessionIDs(ctx context.Context, tenantID, userID string) ([]string, error)
	GetManyReadOnly(ctx context.Context, tenantID string, sessionIDs []string) ([]*session.Session, error)
	Ping(ctx context.Context) (time.Duration, error)
}

type IntrospectionDeps struct {
	SessionStore        IntrospectionSessionStore
	TenantIDFromContext func(context.Context) string
	EngineNotReadyErr   error
	UserNotFoundErr     error
}

// RunListActiveSessions returns the user's live sessions in the context
// tenant. Index entries whose session has expired are skipped.
func RunListActiveSessions(ctx context.Context, userID string, deps IntrospectionDeps) ([]*session.Session, error) {
	if deps.SessionStore == nil {
		return nil, deps.EngineNotReadyErr
	}
	if userID == "" {
		return nil, deps.UserNotFoundErr
	}

	tenantID := deps.TenantIDFromContext(ctx)
	sessionIDs, err := deps.SessionStore.ActiveSessionIDs(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	return deps.SessionStore.GetManyReadOnly(ctx, tenantID, sessionIDs)
}

func RunHealth(ctx context.Context, deps IntrospectionDeps) (bool, time.Duration) {
	if deps.SessionStore == nil {
		return false, 0
	}
	latency, err := deps.SessionStore.Ping(ctx)
	return err == nil, latency
}
