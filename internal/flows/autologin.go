package flows

import (
	"context"
	"net/url"
)

const (
	LoginTokenParam = "loginToken"
	SelectorParam   = "selector"
)

// AutoLoginOutcome reports which gate stopped an auto-login, or how the
// exchange ended.
type AutoLoginOutcome int

const (
	AutoLoginNoToken AutoLoginOutcome = iota
	AutoLoginSelectorMissing
	AutoLoginMalformedSelector
	AutoLoginSessionActive
	AutoLoginFailed
	AutoLoginSucceeded
)

func (o AutoLoginOutcome) String() string {
	switch o {
	case AutoLoginNoToken:
		return "no_token"
	case AutoLoginSelectorMissing:
		return "selector_missing"
	case AutoLoginMalformedSelector:
		return "malformed_selector"
	case AutoLoginSessionActive:
		return "session_active"
	case AutoLoginFailed:
		return "failed"
	case AutoLoginSucceeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

// AutoLoginDeps injects the page, session and exchange capabilities.
// ReplaceURL and OnAttempt are optional.
type AutoLoginDeps[L any] struct {
	ParseSelector   func(string) (map[string]any, error)
	CurrentUserID   func() string
	Exchange        func(context.Context, map[string]any, string) (L, error)
	ReplaceURL      func(string)
	OnAttempt       func()
	SelectorMissing error
}

type AutoLoginResult[L any] struct {
	Outcome  AutoLoginOutcome
	Selector map[string]any
	Login    L
	CleanURL string
}

// RunAutoLogin consumes loginToken and selector from pageURL. The exchange
// runs only when a token and a well-formed selector are present and no user
// is logged in; the session is read once. On success the query string is
// stripped from the visible URL.
func RunAutoLogin[L any](ctx context.Context, pageURL string, deps AutoLoginDeps[L]) (AutoLoginResult[L], error) {
	var res AutoLoginResult[L]

	u, err := url.Parse(pageURL)
	if err != nil {
		return res, err
	}
	query := u.Query()

	token := query.Get(LoginTokenParam)
	if token == "" {
		res.Outcome = AutoLoginNoToken
		return res, nil
	}

	rawSelector := query.Get(SelectorParam)
	if rawSelector == "" {
		res.Outcome = AutoLoginSelectorMissing
		return res, deps.SelectorMissing
	}

	selector, err := deps.ParseSelector(rawSelector)
	if err != nil {
		res.Outcome = AutoLoginMalformedSelector
		return res, err
	}
	res.Selector = selector

	if deps.CurrentUserID != nil && deps.CurrentUserID() != "" {
		res.Outcome = AutoLoginSessionActive
		return res, nil
	}

	if deps.OnAttempt != nil {
		deps.OnAttempt()
	}

	login, err := deps.Exchange(ctx, selector, token)
	if err != nil {
		res.Outcome = AutoLoginFailed
		return res, err
	}
	res.Login = login
	res.Outcome = AutoLoginSucceeded

	res.CleanURL = stripQuery(u)
	if deps.ReplaceURL != nil {
		deps.ReplaceURL(res.CleanURL)
	}

	return res, nil
}

func stripQuery(u *url.URL) string {
	clean := *u
	clean.RawQuery = ""
	clean.ForceQuery = false
	clean.Fragment = ""
	clean.RawFragment = ""
	return clean.String()
}
