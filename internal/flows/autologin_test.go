package flows

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

var errMissing = errors.New("selector missing")

type autoLoginProbe struct {
	exchanges   int
	gotSelector map[string]any
	gotToken    string
	replaced    []string
	attempts    int
	parses      int
	sessionRead int
	userID      string
	exchangeErr error
}

func (p *autoLoginProbe) deps() AutoLoginDeps[string] {
	return AutoLoginDeps[string]{
		ParseSelector: func(raw string) (map[string]any, error) {
			p.parses++
			if strings.HasPrefix(raw, "{") {
				var out map[string]any
				if err := json.Unmarshal([]byte(raw), &out); err != nil {
					return nil, err
				}
				return out, nil
			}
			if strings.Contains(raw, "@") {
				return map[string]any{"email": raw}, nil
			}
			return map[string]any{"username": raw}, nil
		},
		CurrentUserID: func() string {
			p.sessionRead++
			return p.userID
		},
		Exchange: func(_ context.Context, sel map[string]any, token string) (string, error) {
			p.exchanges++
			p.gotSelector = sel
			p.gotToken = token
			if p.exchangeErr != nil {
				return "", p.exchangeErr
			}
			return "login-ok", nil
		},
		ReplaceURL:      func(u string) { p.replaced = append(p.replaced, u) },
		OnAttempt:       func() { p.attempts++ },
		SelectorMissing: errMissing,
	}
}

func TestRunAutoLoginUsernameSelector(t *testing.T) {
	p := &autoLoginProbe{}
	res, err := RunAutoLogin(context.Background(), "https://app.test/home?loginToken=T&selector=alice#top", p.deps())
	if err != nil {
		t.Fatalf("RunAutoLogin failed: %v", err)
	}
	if res.Outcome != AutoLoginSucceeded || res.Login != "login-ok" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if p.exchanges != 1 || p.gotToken != "T" || !reflect.DeepEqual(p.gotSelector, map[string]any{"username": "alice"}) {
		t.Fatalf("unexpected exchange: n=%d token=%q selector=%v", p.exchanges, p.gotToken, p.gotSelector)
	}
	if len(p.replaced) != 1 || p.replaced[0] != "https://app.test/home" {
		t.Fatalf("expected scrubbed URL, got %v", p.replaced)
	}
	if res.CleanURL != "https://app.test/home" {
		t.Fatalf("unexpected clean URL %q", res.CleanURL)
	}
	if p.attempts != 1 || p.sessionRead != 1 {
		t.Fatalf("expected one attempt and one session read, got %d/%d", p.attempts, p.sessionRead)
	}
}

func TestRunAutoLoginJSONSelectorUnchanged(t *testing.T) {
	p := &autoLoginProbe{}
	_, err := RunAutoLogin(context.Background(), `https://app.test/?loginToken=T&selector=%7B%22email%22%3A%22a%40b.com%22%7D`, p.deps())
	if err != nil {
		t.Fatalf("RunAutoLogin failed: %v", err)
	}
	if !reflect.DeepEqual(p.gotSelector, map[string]any{"email": "a@b.com"}) {
		t.Fatalf("unexpected selector %v", p.gotSelector)
	}
}

func TestRunAutoLoginNoTokenSkipsEverything(t *testing.T) {
	p := &autoLoginProbe{}
	res, err := RunAutoLogin(context.Background(), "https://app.test/?selector=%7Bbroken", p.deps())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Outcome != AutoLoginNoToken {
		t.Fatalf("expected no-token outcome, got %s", res.Outcome)
	}
	if p.parses != 0 || p.exchanges != 0 || p.sessionRead != 0 {
		t.Fatalf("expected no parsing, session read or exchange")
	}
}

func TestRunAutoLoginSelectorMissing(t *testing.T) {
	p := &autoLoginProbe{}
	res, err := RunAutoLogin(context.Background(), "https://app.test/?loginToken=T", p.deps())
	if !errors.Is(err, errMissing) || res.Outcome != AutoLoginSelectorMissing {
		t.Fatalf("expected selector missing, got %s / %v", res.Outcome, err)
	}
	if p.exchanges != 0 {
		t.Fatalf("expected no exchange")
	}
}

func TestRunAutoLoginMalformedSelector(t *testing.T) {
	p := &autoLoginProbe{}
	res, err := RunAutoLogin(context.Background(), "https://app.test/?loginToken=T&selector=%7Bbroken", p.deps())
	if err == nil || res.Outcome != AutoLoginMalformedSelector {
		t.Fatalf("expected malformed selector, got %s / %v", res.Outcome, err)
	}
	if p.exchanges != 0 || p.sessionRead != 0 {
		t.Fatalf("expected no exchange and no session read")
	}
}

func TestRunAutoLoginActiveSession(t *testing.T) {
	p := &autoLoginProbe{userID: "u1"}
	res, err := RunAutoLogin(context.Background(), "https://app.test/?loginToken=T&selector=alice", p.deps())
	if err != nil || res.Outcome != AutoLoginSessionActive {
		t.Fatalf("expected session active, got %s / %v", res.Outcome, err)
	}
	if p.exchanges != 0 || len(p.replaced) != 0 {
		t.Fatalf("expected no exchange and no URL change")
	}
}

func TestRunAutoLoginExchangeFailureKeepsURL(t *testing.T) {
	boom := errors.New("token expired")
	p := &autoLoginProbe{exchangeErr: boom}
	res, err := RunAutoLogin(context.Background(), "https://app.test/?loginToken=T&selector=alice", p.deps())
	if !errors.Is(err, boom) || res.Outcome != AutoLoginFailed {
		t.Fatalf("expected exchange failure, got %s / %v", res.Outcome, err)
	}
	if len(p.replaced) != 0 {
		t.Fatalf("expected URL untouched on failure")
	}
}

func TestRunAutoLoginToleratesMissingHistoryAndSession(t *testing.T) {
	p := &autoLoginProbe{}
	deps := p.deps()
	deps.ReplaceURL = nil
	deps.CurrentUserID = nil
	deps.OnAttempt = nil

	res, err := RunAutoLogin(context.Background(), "/page?loginToken=T&selector=bob", deps)
	if err != nil || res.Outcome != AutoLoginSucceeded {
		t.Fatalf("expected success, got %s / %v", res.Outcome, err)
	}
	if res.CleanURL != "/page" {
		t.Fatalf("unexpected clean URL %q", res.CleanURL)
	}
}

func TestAutoLoginOutcomeString(t *testing.T) {
	if AutoLoginSucceeded.String() != "succeeded" || AutoLoginOutcome(99).String() != "unknown" {
		t.Fatalf("unexpected outcome strings")
	}
}
