package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	goPasswordless "github.com/MrEthical07/goPasswordless"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	method string
	args   any
}

type fakeConn struct {
	mu       sync.Mutex
	calls    []call
	loginErr error
	callErr  error
	result   *goPasswordless.LoginResult
}

func (f *fakeConn) CallLoginMethod(_ context.Context, args goPasswordless.LoginArgs) (*goPasswordless.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: "login", args: args})
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if f.result != nil {
		return f.result, nil
	}
	return &goPasswordless.LoginResult{UserID: "u1", Token: "jwt"}, nil
}

func (f *fakeConn) Call(_ context.Context, method string, args any, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: method, args: args})
	return f.callErr
}

func (f *fakeConn) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestLoginWithTokenNormalizesSelector(t *testing.T) {
	conn := &fakeConn{}
	c := New(conn)

	res, err := c.LoginWithToken(context.Background(), "alice@example.com", "T")
	require.NoError(t, err)
	assert.Equal(t, "u1", res.UserID)

	require.Len(t, conn.calls, 1)
	args := conn.calls[0].args.(goPasswordless.LoginArgs)
	assert.Equal(t, goPasswordless.Selector{"email": "alice@example.com"}, args.Selector)
	assert.Equal(t, "T", args.Token)
}

func TestLoginWithTokenRequiresToken(t *testing.T) {
	conn := &fakeConn{}
	_, err := New(conn).LoginWithToken(context.Background(), "alice", "")

	assert.ErrorIs(t, err, goPasswordless.ErrPrecondition)
	assert.Zero(t, conn.callCount())
}

func TestLoginWithTokenWrapsRemoteFailure(t *testing.T) {
	cause := errors.New("connection reset")
	conn := &fakeConn{loginErr: cause}

	_, err := New(conn).LoginWithToken(context.Background(), "alice", "T")
	assert.ErrorIs(t, err, goPasswordless.ErrRemoteAuth)
	assert.ErrorIs(t, err, cause)

	wire := goPasswordless.FromWireError(403, goPasswordless.ErrLoginTokenExpired.Error(), "")
	conn = &fakeConn{loginErr: wire}
	_, err = New(conn).LoginWithToken(context.Background(), "alice", "T")
	assert.Same(t, wire, err)
	assert.ErrorIs(t, err, goPasswordless.ErrLoginTokenExpired)
}

func TestLoginWithTokenKeepsContextErrors(t *testing.T) {
	conn := &fakeConn{loginErr: context.DeadlineExceeded}
	_, err := New(conn).LoginWithToken(context.Background(), "alice", "T")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, goPasswordless.ErrRemoteAuth)
}

func TestLoginWithTokenCallbackFailure(t *testing.T) {
	cause := errors.New("bad token")
	conn := &fakeConn{loginErr: cause}
	c := New(conn)

	var got []error
	err := c.LoginWithTokenCallback(context.Background(), "alice", "T", func(err error) {
		got = append(got, err)
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0], cause)
}

func TestLoginWithTokenCallbackSuccess(t *testing.T) {
	c := New(&fakeConn{})

	calls := 0
	err := c.LoginWithTokenCallback(context.Background(), "alice", "T", func(err error) {
		calls++
		assert.NoError(t, err)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestLoginWithTokenWithoutCallbackPropagates(t *testing.T) {
	cause := errors.New("bad token")
	c := New(&fakeConn{loginErr: cause})

	err := c.LoginWithTokenCallback(context.Background(), "alice", "T", nil)
	assert.ErrorIs(t, err, cause)

	assert.NoError(t, New(&fakeConn{}).LoginWithTokenCallback(context.Background(), "alice", "T", nil))
}

func TestLoginWithTokenAsyncDeliversOnce(t *testing.T) {
	c := New(&fakeConn{})

	ch := c.LoginWithTokenAsync(context.Background(), "alice", "T")
	res, ok := <-ch
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Equal(t, "u1", res.Login.UserID)

	_, ok = <-ch
	assert.False(t, ok, "channel must close after one result")
}

func TestRequestLoginTokenMissingSelector(t *testing.T) {
	for _, sel := range []any{nil, "", map[string]any{}, 42, true, []any{"a"}} {
		conn := &fakeConn{}
		c := New(conn)

		var got error
		err := c.RequestLoginTokenForUser(context.Background(), goPasswordless.TokenRequest{Selector: sel}, func(err error) {
			got = err
		})
		require.NoError(t, err)
		assert.Zero(t, conn.callCount(), "no remote call for %#v", sel)

		var e *goPasswordless.Error
		require.ErrorAs(t, got, &e)
		assert.Equal(t, 400, e.Code)
		assert.Equal(t, "Must pass selector", e.Reason)
		assert.Equal(t, goPasswordless.KindPrecondition, e.Kind)
	}

	err := New(&fakeConn{}).RequestLoginTokenForUser(context.Background(), goPasswordless.TokenRequest{}, nil)
	assert.ErrorIs(t, err, goPasswordless.ErrPrecondition)
}

func TestRequestLoginTokenConvertsStructSelector(t *testing.T) {
	conn := &fakeConn{}
	c := New(conn)

	type phoneQuery struct {
		Phone string `json:"phone"`
	}
	require.NoError(t, c.RequestLoginTokenForUser(context.Background(), goPasswordless.TokenRequest{
		Selector: phoneQuery{Phone: "555"},
	}, nil))

	require.Len(t, conn.calls, 1)
	sent := conn.calls[0].args.(goPasswordless.TokenRequest)
	assert.Equal(t, goPasswordless.Selector{"phone": "555"}, sent.Selector)
}

func TestRequestLoginTokenForwardsOptions(t *testing.T) {
	conn := &fakeConn{}
	c := New(conn)

	req := goPasswordless.TokenRequest{
		Selector: "bob",
		UserData: map[string]any{"name": "Bob"},
		Options:  goPasswordless.TokenRequestOptions{"userCreationDisabled": true, "custom": 1},
	}
	require.NoError(t, c.RequestLoginTokenForUser(context.Background(), req, nil))

	require.Len(t, conn.calls, 1)
	assert.Equal(t, MethodRequestLoginToken, conn.calls[0].method)
	sent := conn.calls[0].args.(goPasswordless.TokenRequest)
	assert.Equal(t, goPasswordless.Selector{"username": "bob"}, sent.Selector)
	assert.Equal(t, req.UserData, sent.UserData)
	assert.Equal(t, req.Options, sent.Options)
}

func TestRequestLoginTokenRemoteFailure(t *testing.T) {
	conn := &fakeConn{callErr: errors.New("503")}
	c := New(conn)

	err := c.RequestLoginTokenForUser(context.Background(), goPasswordless.TokenRequest{Selector: "bob"}, nil)
	assert.ErrorIs(t, err, goPasswordless.ErrRemoteAuth)

	var got error
	require.NoError(t, c.RequestLoginTokenForUser(context.Background(), goPasswordless.TokenRequest{Selector: "bob"}, func(err error) { got = err }))
	assert.ErrorIs(t, got, goPasswordless.ErrRemoteAuth)
}
