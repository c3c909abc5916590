package limiters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goPasswordless/internal/rate"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLoginTokenRateLimited      = errors.New("login token rate limited")
	ErrLoginTokenRedisUnavailable = errors.New("login token redis unavailable")
)

type LoginTokenConfig struct {
	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
	Window                   time.Duration
	MaxRequests              int
	MaxRedeems               int
}

// LoginTokenLimiter throttles token requests and redemptions per identifier
// and per client IP.
type LoginTokenLimiter struct {
	config  LoginTokenConfig
	request *rate.Window
	redeem  *rate.Window
}

func NewLoginTokenLimiter(redisClient redis.UniversalClient, cfg LoginTokenConfig) *LoginTokenLimiter {
	return &LoginTokenLimiter{
		config:  cfg,
		request: rate.NewWindow(redisClient, cfg.MaxRequests, cfg.Window),
		redeem:  rate.NewWindow(redisClient, cfg.MaxRedeems, cfg.Window),
	}
}

func (l *LoginTokenLimiter) CheckRequest(ctx context.Context, tenantID, identifier, ip string) error {
	if l == nil {
		return nil
	}
	return l.check(ctx, l.request, requestIdentifierKey(tenantID, identifier), requestIPKey(tenantID, ip), identifier, ip)
}

func (l *LoginTokenLimiter) CheckRedeem(ctx context.Context, tenantID, identifier, ip string) error {
	if l == nil {
		return nil
	}
	return l.check(ctx, l.redeem, redeemIdentifierKey(tenantID, identifier), redeemIPKey(tenantID, ip), identifier, ip)
}

// ResetRedeem clears the redeem counter for identifier after a successful
// login.
func (l *LoginTokenLimiter) ResetRedeem(ctx context.Context, tenantID, identifier string) error {
	if l == nil || !l.config.EnableIdentifierThrottle {
		return nil
	}
	return mapWindowError(l.redeem.Reset(ctx, redeemIdentifierKey(tenantID, identifier)))
}

func (l *LoginTokenLimiter) check(ctx context.Context, w *rate.Window, identifierKey, ipKey, identifier, ip string) error {
	if l.config.EnableIdentifierThrottle && identifier != "" {
		if err := w.Hit(ctx, identifierKey); err != nil {
			return mapWindowError(err)
		}
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := w.Hit(ctx, ipKey); err != nil {
			return mapWindowError(err)
		}
	}
	return nil
}

func mapWindowError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		return ErrLoginTokenRateLimited
	default:
		return fmt.Errorf("%w: %v", ErrLoginTokenRedisUnavailable, err)
	}
}

func requestIdentifierKey(tenantID, identifier string) string {
	return "altr:" + normalizeTenantID(tenantID) + ":" + strings.ToLower(identifier)
}

func requestIPKey(tenantID, ip string) string {
	return "altrip:" + normalizeTenantID(tenantID) + ":" + ip
}

func redeemIdentifierKey(tenantID, identifier string) string {
	return "altc:" + normalizeTenantID(tenantID) + ":" + strings.ToLower(identifier)
}

func redeemIPKey(tenantID, ip string) string {
	return "altcip:" + normalizeTenantID(tenantID) + ":" + ip
}

func normalizeTenantID(tenantID string) string {
	if tenantID == "" {
		return "0"
	}
	return tenantID
}
