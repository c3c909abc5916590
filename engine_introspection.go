package goPasswordless

import (
	"context"
	"errors"
	"time"

	internalflows "github.com/MrEthical07/goPasswordless/internal/flows"
	"github.com/MrEthical07/goPasswordless/session"
)

// SessionInfo is the introspection view of a session. It carries no token
// material.
type SessionInfo struct {
	SessionID   string
	LoginMethod string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
}

// ListActiveSessions returns the live sessions of userID in the context
// tenant.
func (e *Engine) ListActiveSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}

	sessions, err := internalflows.RunListActiveSessions(ctx, userID, e.flowDeps.Introspection)
	if err != nil {
		if errors.Is(err, session.ErrRedisUnavailable) {
			return nil, ErrLoginTokenUnavailable
		}
		return nil, err
	}

	out := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionInfo(sess))
	}
	return out, nil
}

// ActiveSessionCount is len(ListActiveSessions).
func (e *Engine) ActiveSessionCount(ctx context.Context, userID string) (int, error) {
	sessions, err := e.ListActiveSessions(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(sessions), nil
}

// Health pings Redis.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil {
		return HealthStatus{}
	}
	ok, latency := internalflows.RunHealth(ctx, e.flowDeps.Introspection)
	return HealthStatus{
		RedisAvailable: ok,
		RedisLatency:   latency,
	}
}

func toSessionInfo(sess *session.Session) SessionInfo {
	return SessionInfo{
		SessionID:   sess.SessionID,
		LoginMethod: sess.LoginMethod,
		CreatedAt:   time.Unix(sess.CreatedAt, 0),
		ExpiresAt:   time.Unix(sess.ExpiresAt, 0),
	}
}
