package client

import (
	"context"
	"errors"

	goPasswordless "github.com/MrEthical07/goPasswordless"
	internalflows "github.com/MrEthical07/goPasswordless/internal/flows"
	"go.uber.org/zap"
)

var (
	// ErrSelectorMissing is returned when the page carries a loginToken but
	// no selector parameter.
	ErrSelectorMissing = errors.New("auto-login: selector parameter missing")
	// ErrAutoLoginAlreadyRan is returned by every AutoLoginWithToken call
	// after the first on the same Client.
	ErrAutoLoginAlreadyRan = errors.New("auto-login: already ran")
)

type AutoLoginState int32

const (
	AutoLoginIdle AutoLoginState = iota
	AutoLoginAttempting
)

func (s AutoLoginState) String() string {
	if s == AutoLoginAttempting {
		return "attempting"
	}
	return "idle"
}

type AutoLoginOutcome = internalflows.AutoLoginOutcome

const (
	AutoLoginNoToken           = internalflows.AutoLoginNoToken
	AutoLoginSelectorMissing   = internalflows.AutoLoginSelectorMissing
	AutoLoginMalformedSelector = internalflows.AutoLoginMalformedSelector
	AutoLoginSessionActive     = internalflows.AutoLoginSessionActive
	AutoLoginFailed            = internalflows.AutoLoginFailed
	AutoLoginSucceeded         = internalflows.AutoLoginSucceeded
)

// AutoLoginResult reports what AutoLoginWithToken did. Selector is set once
// the selector parameter decoded; Login only on success.
type AutoLoginResult struct {
	Outcome  AutoLoginOutcome
	Selector goPasswordless.Selector
	Login    *goPasswordless.LoginResult
}

// State reports whether an auto-login exchange is in flight.
func (c *Client) State() AutoLoginState {
	return AutoLoginState(c.state.Load())
}

// AutoLoginWithToken redeems the loginToken carried by pageURL. The host
// calls it once at startup; later calls return ErrAutoLoginAlreadyRan. No
// exchange happens without a token, with a missing or malformed selector,
// or while a user is logged in. After a successful login the History, if
// any, gets pageURL without its query string.
func (c *Client) AutoLoginWithToken(ctx context.Context, pageURL string) (AutoLoginResult, error) {
	if !c.autoLoginRan.CompareAndSwap(false, true) {
		return AutoLoginResult{}, ErrAutoLoginAlreadyRan
	}

	deps := internalflows.AutoLoginDeps[*goPasswordless.LoginResult]{
		ParseSelector: func(raw string) (map[string]any, error) {
			sel, err := goPasswordless.ParseSelectorParam(raw)
			if err != nil {
				return nil, err
			}
			return sel, nil
		},
		Exchange: func(ctx context.Context, sel map[string]any, token string) (*goPasswordless.LoginResult, error) {
			defer c.state.Store(int32(AutoLoginIdle))
			return c.LoginWithToken(ctx, goPasswordless.Selector(sel), token)
		},
		OnAttempt: func() {
			c.state.Store(int32(AutoLoginAttempting))
		},
		SelectorMissing: ErrSelectorMissing,
	}
	if c.session != nil {
		deps.CurrentUserID = c.session.CurrentUserID
	}
	if c.history != nil {
		deps.ReplaceURL = c.history.ReplaceURL
	}

	res, err := internalflows.RunAutoLogin(ctx, pageURL, deps)
	out := AutoLoginResult{
		Outcome:  res.Outcome,
		Selector: goPasswordless.Selector(res.Selector),
		Login:    res.Login,
	}
	if err != nil {
		c.logger.Warn("auto-login failed",
			zap.Stringer("outcome", res.Outcome),
			zap.Error(err),
		)
		return out, err
	}

	if res.Outcome == AutoLoginSucceeded && res.Login != nil {
		c.logger.Info("auto-login succeeded", zap.String("user_id", res.Login.UserID))
	}
	return out, nil
}
