package flows

import (
	"context"

	"github.com/MrEthical07/goPasswordless/jwt"
)

type LogoutSessionStore interface {
	Delete(ctx context.Context, tenantID, sessionID string) error
	DeleteAllForUser(ctx context.Context, tenantID, userID string) error
}

type LogoutDeps struct {
	ParseAccess         func(string) (*jwt.AccessClaims, error)
	TenantIDFromContext func(context.Context) string
	SessionStore        LogoutSessionStore
}

type LogoutByAccessResult struct {
	UserID    string
	TenantID  string
	SessionID string
	Err       error
}

func RunLogoutAllInTenant(ctx context.Context, tenantID, userID string, deps LogoutDeps) error {
	return deps.SessionStore.DeleteAllForUser(ctx, tenantID, userID)
}

// RunLogoutByAccessToken deletes the session named by a verified access
// token.
func RunLogoutByAccessToken(ctx context.Context, tokenStr string, deps LogoutDeps) LogoutByAccessResult {
	claims, err := deps.ParseAccess(tokenStr)
	if err != nil {
		return LogoutByAccessResult{
			TenantID: deps.TenantIDFromContext(ctx),
			Err:      err,
		}
	}

	return LogoutByAccessResult{
		UserID:    claims.UID,
		TenantID:  claims.TID,
		SessionID: claims.SID,
		Err:       deps.SessionStore.Delete(ctx, claims.TID, claims.SID),
	}
}
