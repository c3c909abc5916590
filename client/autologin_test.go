package client

import (
	"context"
	"errors"
	"testing"

	goPasswordless "github.com/MrEthical07/goPasswordless"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	userID string
	reads  int
}

func (s *fakeSession) CurrentUserID() string {
	s.reads++
	return s.userID
}

type fakeHistory struct {
	urls []string
}

func (h *fakeHistory) ReplaceURL(url string) {
	h.urls = append(h.urls, url)
}

func TestAutoLoginUsernameSelector(t *testing.T) {
	conn := &fakeConn{}
	hist := &fakeHistory{}
	c := New(conn, WithSessionReader(&fakeSession{}), WithHistory(hist))

	res, err := c.AutoLoginWithToken(context.Background(), "https://app.test/?loginToken=T&selector=alice")
	require.NoError(t, err)
	assert.Equal(t, AutoLoginSucceeded, res.Outcome)
	assert.Equal(t, "u1", res.Login.UserID)

	require.Len(t, conn.calls, 1)
	args := conn.calls[0].args.(goPasswordless.LoginArgs)
	assert.Equal(t, goPasswordless.Selector{"username": "alice"}, args.Selector)
	assert.Equal(t, "T", args.Token)
	assert.Equal(t, []string{"https://app.test/"}, hist.urls)
	assert.Equal(t, AutoLoginIdle, c.State())
}

func TestAutoLoginJSONSelector(t *testing.T) {
	conn := &fakeConn{}
	c := New(conn)

	_, err := c.AutoLoginWithToken(context.Background(), `https://app.test/?loginToken=T&selector=%7B%22email%22%3A%22a%40b.com%22%7D`)
	require.NoError(t, err)

	args := conn.calls[0].args.(goPasswordless.LoginArgs)
	assert.Equal(t, goPasswordless.Selector{"email": "a@b.com"}, args.Selector)
}

func TestAutoLoginActiveSessionSkipsExchange(t *testing.T) {
	conn := &fakeConn{}
	sess := &fakeSession{userID: "someone"}
	c := New(conn, WithSessionReader(sess))

	res, err := c.AutoLoginWithToken(context.Background(), "https://app.test/?loginToken=T&selector=alice")
	require.NoError(t, err)
	assert.Equal(t, AutoLoginSessionActive, res.Outcome)
	assert.Zero(t, conn.callCount())
	assert.Equal(t, 1, sess.reads)
}

func TestAutoLoginWithoutTokenDoesNothing(t *testing.T) {
	conn := &fakeConn{}
	sess := &fakeSession{}
	c := New(conn, WithSessionReader(sess))

	res, err := c.AutoLoginWithToken(context.Background(), "https://app.test/?selector=%7Bbad")
	require.NoError(t, err)
	assert.Equal(t, AutoLoginNoToken, res.Outcome)
	assert.Zero(t, conn.callCount())
	assert.Zero(t, sess.reads)
}

func TestAutoLoginSelectorProblems(t *testing.T) {
	conn := &fakeConn{}
	_, err := New(conn).AutoLoginWithToken(context.Background(), "https://app.test/?loginToken=T")
	assert.ErrorIs(t, err, ErrSelectorMissing)

	res, err := New(conn).AutoLoginWithToken(context.Background(), "https://app.test/?loginToken=T&selector=%7Bbad")
	assert.ErrorIs(t, err, goPasswordless.ErrMalformedSelector)
	assert.Equal(t, AutoLoginMalformedSelector, res.Outcome)

	assert.Zero(t, conn.callCount())
}

func TestAutoLoginFailureKeepsURL(t *testing.T) {
	cause := goPasswordless.FromWireError(403, goPasswordless.ErrLoginTokenInvalid.Error(), "")
	hist := &fakeHistory{}
	c := New(&fakeConn{loginErr: cause}, WithHistory(hist))

	res, err := c.AutoLoginWithToken(context.Background(), "https://app.test/?loginToken=T&selector=alice")
	assert.ErrorIs(t, err, goPasswordless.ErrLoginTokenInvalid)
	assert.Equal(t, AutoLoginFailed, res.Outcome)
	assert.Empty(t, hist.urls)
	assert.Equal(t, AutoLoginIdle, c.State())
}

func TestAutoLoginRunsOnce(t *testing.T) {
	conn := &fakeConn{}
	c := New(conn)

	_, err := c.AutoLoginWithToken(context.Background(), "https://app.test/?loginToken=T&selector=alice")
	require.NoError(t, err)

	_, err = c.AutoLoginWithToken(context.Background(), "https://app.test/?loginToken=T&selector=alice")
	assert.True(t, errors.Is(err, ErrAutoLoginAlreadyRan))
	assert.Equal(t, 1, conn.callCount())
}

type stateProbeConn struct {
	fakeConn
	client *Client
	seen   AutoLoginState
}

func (p *stateProbeConn) CallLoginMethod(ctx context.Context, args goPasswordless.LoginArgs) (*goPasswordless.LoginResult, error) {
	p.seen = p.client.State()
	return p.fakeConn.CallLoginMethod(ctx, args)
}

func TestAutoLoginStateDuringExchange(t *testing.T) {
	probe := &stateProbeConn{}
	c := New(probe)
	probe.client = c

	_, err := c.AutoLoginWithToken(context.Background(), "https://app.test/?loginToken=T&selector=alice")
	require.NoError(t, err)
	assert.Equal(t, AutoLoginAttempting, probe.seen)
	assert.Equal(t, AutoLoginIdle, c.State())
	assert.Equal(t, "attempting", AutoLoginAttempting.String())
}
