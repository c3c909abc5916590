package client

import (
	"context"
	"errors"
	"sync/atomic"

	goPasswordless "github.com/MrEthical07/goPasswordless"
	"go.uber.org/zap"
)

// MethodRequestLoginToken is the remote method that issues login tokens.
const MethodRequestLoginToken = "requestLoginTokenForUser"

// Connection carries calls to the remote accounts server.
type Connection interface {
	// CallLoginMethod invokes the session-establishing login method. On
	// success the connection owns the new session.
	CallLoginMethod(ctx context.Context, args goPasswordless.LoginArgs) (*goPasswordless.LoginResult, error)
	Call(ctx context.Context, method string, args any, reply any) error
}

// SessionReader reports the currently logged-in user, or "" when nobody is.
type SessionReader interface {
	CurrentUserID() string
}

// History rewrites the visible page URL.
type History interface {
	ReplaceURL(url string)
}

// Result is the outcome of an asynchronous login.
type Result struct {
	Login *goPasswordless.LoginResult
	Err   error
}

type Option func(*Client)

func WithSessionReader(r SessionReader) Option {
	return func(c *Client) { c.session = r }
}

func WithHistory(h History) Option {
	return func(c *Client) { c.history = h }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client logs in with one-time login tokens over a Connection.
type Client struct {
	conn    Connection
	session SessionReader
	history History
	logger  *zap.Logger

	autoLoginRan atomic.Bool
	state        atomic.Int32
}

// New returns a Client over conn.
func New(conn Connection, opts ...Option) *Client {
	c := &Client{
		conn:   conn,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// LoginWithToken redeems token for the user matching selector. It makes
// exactly one remote call and never retries; ctx bounds the wait.
func (c *Client) LoginWithToken(ctx context.Context, selector any, token string) (*goPasswordless.LoginResult, error) {
	if token == "" {
		return nil, goPasswordless.NewPreconditionError("Must pass token")
	}

	res, err := c.conn.CallLoginMethod(ctx, goPasswordless.LoginArgs{
		Selector: goPasswordless.NormalizeSelector(selector),
		Token:    token,
	})
	if err != nil {
		return nil, asRemoteError(err)
	}
	return res, nil
}

// LoginWithTokenAsync runs LoginWithToken in its own goroutine. The channel
// yields exactly one Result and is then closed.
func (c *Client) LoginWithTokenAsync(ctx context.Context, selector any, token string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		login, err := c.LoginWithToken(ctx, selector, token)
		out <- Result{Login: login, Err: err}
	}()
	return out
}

// LoginWithTokenCallback delivers the outcome to cb when one is given: nil on
// success, the error otherwise, exactly once. Without a callback a failure is
// returned to the caller.
func (c *Client) LoginWithTokenCallback(ctx context.Context, selector any, token string, cb func(error)) error {
	_, err := c.LoginWithToken(ctx, selector, token)
	if err != nil {
		return c.reportError(err, cb)
	}
	if cb != nil {
		cb(nil)
	}
	return nil
}

// RequestLoginTokenForUser asks the server to send a login token to the user
// matching req.Selector. A selector that is missing, or that normalizes to
// nothing such as a bare number, fails locally with a 400 and no remote
// call. Options are forwarded untouched.
func (c *Client) RequestLoginTokenForUser(ctx context.Context, req goPasswordless.TokenRequest, cb func(error)) error {
	selector := goPasswordless.NormalizeSelector(req.Selector)
	if goPasswordless.SelectorMissing(req.Selector) || selector.IsEmpty() {
		return c.reportError(goPasswordless.NewPreconditionError("Must pass selector"), cb)
	}

	args := goPasswordless.TokenRequest{
		Selector: selector,
		UserData: req.UserData,
		Options:  req.Options,
	}
	if err := c.conn.Call(ctx, MethodRequestLoginToken, args, nil); err != nil {
		return c.reportError(asRemoteError(err), cb)
	}
	if cb != nil {
		cb(nil)
	}
	return nil
}

// reportError hands err to cb when there is one, otherwise returns it.
func (c *Client) reportError(err error, cb func(error)) error {
	if cb == nil {
		return err
	}
	c.logger.Debug("reporting error to callback", zap.Error(err))
	cb(err)
	return nil
}

func asRemoteError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var e *goPasswordless.Error
	if errors.As(err, &e) {
		return err
	}
	return &goPasswordless.Error{
		Kind:   goPasswordless.KindRemote,
		Reason: err.Error(),
		Err:    err,
	}
}
