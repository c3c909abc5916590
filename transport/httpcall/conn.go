package httpcall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	goPasswordless "github.com/MrEthical07/goPasswordless"
	"github.com/MrEthical07/goPasswordless/server"
	"go.uber.org/zap"
)

const methodPrefix = "/methods/"

type Option func(*Conn)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(conn *Conn) {
		if c != nil {
			conn.http = c
		}
	}
}

func WithTenantID(tenantID string) Option {
	return func(conn *Conn) { conn.tenantID = tenantID }
}

func WithLogger(logger *zap.Logger) Option {
	return func(conn *Conn) {
		if logger != nil {
			conn.logger = logger
		}
	}
}

// Conn calls a goPasswordless server over HTTP. It implements
// client.Connection and client.SessionReader; the session returned by the
// login method is kept in memory and sent as a bearer token afterwards.
type Conn struct {
	baseURL  string
	http     *http.Client
	tenantID string
	logger   *zap.Logger

	mu    sync.RWMutex
	login *goPasswordless.LoginResult
}

func New(baseURL string, opts ...Option) *Conn {
	c := &Conn{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// CallLoginMethod posts args to the login method and keeps the session on
// success.
func (c *Conn) CallLoginMethod(ctx context.Context, args goPasswordless.LoginArgs) (*goPasswordless.LoginResult, error) {
	var res goPasswordless.LoginResult
	if err := c.do(ctx, http.MethodPost, server.PathLogin, args, &res); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.login = &res
	c.mu.Unlock()

	out := res
	return &out, nil
}

// Call posts args to /methods/<method> and decodes the reply when reply is
// not nil.
func (c *Conn) Call(ctx context.Context, method string, args any, reply any) error {
	if method == "" {
		return fmt.Errorf("httpcall: empty method")
	}
	return c.do(ctx, http.MethodPost, methodPrefix+method, args, reply)
}

// CurrentUserID returns the user of the kept session, or "".
func (c *Conn) CurrentUserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.login == nil {
		return ""
	}
	return c.login.UserID
}

func (c *Conn) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.login == nil {
		return ""
	}
	return c.login.Token
}

// Me asks the server who the kept session belongs to.
func (c *Conn) Me(ctx context.Context) (*server.MeResponse, error) {
	var res server.MeResponse
	if err := c.do(ctx, http.MethodGet, server.PathMe, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Logout ends the kept session on the server and forgets it locally.
func (c *Conn) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, server.PathLogout, nil, nil); err != nil {
		return err
	}
	c.mu.Lock()
	c.login = nil
	c.mu.Unlock()
	return nil
}

func (c *Conn) do(ctx context.Context, method, path string, args any, reply any) error {
	var body io.Reader
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("httpcall: encode %s: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.tenantID != "" {
		req.Header.Set(server.TenantHeader, c.tenantID)
	}
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("call failed", zap.String("path", path), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, raw)
	}
	if reply == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, reply); err != nil {
		return fmt.Errorf("httpcall: decode %s: %w", path, err)
	}
	return nil
}

// decodeError turns a failed response into a *goPasswordless.Error. Bodies
// that are not an error envelope, such as the guard's plain-text 401, use
// the trimmed text as the reason.
func decodeError(status int, raw []byte) error {
	var env server.ErrorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Reason != "" {
		code := env.Error.Code
		if code == 0 {
			code = status
		}
		return goPasswordless.FromWireError(code, env.Error.Reason, env.Error.Details)
	}

	reason := strings.TrimSpace(string(raw))
	if reason == "" {
		reason = http.StatusText(status)
	}
	return goPasswordless.FromWireError(status, reason, "")
}
