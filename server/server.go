package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	goPasswordless "github.com/MrEthical07/goPasswordless"
	"github.com/MrEthical07/goPasswordless/middleware"
	"go.uber.org/zap"
)

const (
	PathLogin        = "/methods/login"
	PathRequestToken = "/methods/requestLoginTokenForUser"
	PathLogout       = "/methods/logout"
	PathMe           = "/methods/me"

	// TenantHeader selects the tenant of a request. Absent means "0".
	TenantHeader = "X-Tenant-ID"

	maxBodyBytes = 64 << 10
)

// Issuer is the engine surface the handlers need. *goPasswordless.Engine
// implements it.
type Issuer interface {
	middleware.Validator
	RequestLoginToken(ctx context.Context, req goPasswordless.TokenRequest) error
	LoginWithToken(ctx context.Context, selector any, token string) (*goPasswordless.LoginResult, error)
	Logout(ctx context.Context, accessToken string) error
}

// WireError is the body of a failed method call.
type WireError struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason"`
	Details string `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error WireError `json:"error"`
}

// LoginRequest is the body of PathLogin. Selector is a string or an object.
type LoginRequest struct {
	Selector any    `json:"selector"`
	Token    string `json:"token"`
}

// MeResponse describes the caller's session.
type MeResponse struct {
	UserID      string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	SessionID   string    `json:"sessionId"`
	LoginMethod string    `json:"loginMethod"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Server exposes the login-token methods over HTTP.
type Server struct {
	issuer Issuer
	logger *zap.Logger
	mux    *http.ServeMux
}

// New registers the method routes. A nil logger discards output.
func New(issuer Issuer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		issuer: issuer,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	s.mux.HandleFunc("POST "+PathLogin, s.handleLogin)
	s.mux.HandleFunc("POST "+PathRequestToken, s.handleRequestToken)

	guard := middleware.Guard(issuer)
	s.mux.Handle("POST "+PathLogout, guard(http.HandlerFunc(s.handleLogout)))
	s.mux.Handle("GET "+PathMe, guard(http.HandlerFunc(s.handleMe)))

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body LoginRequest
	if !s.decode(w, r, PathLogin, &body) {
		return
	}

	res, err := s.issuer.LoginWithToken(requestContext(r), body.Selector, body.Token)
	if err != nil {
		s.writeError(w, PathLogin, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRequestToken(w http.ResponseWriter, r *http.Request) {
	var body goPasswordless.TokenRequest
	if !s.decode(w, r, PathRequestToken, &body) {
		return
	}
	if goPasswordless.SelectorMissing(body.Selector) {
		s.writeError(w, PathRequestToken, goPasswordless.ErrSelectorRequired)
		return
	}

	if err := s.issuer.RequestLoginToken(requestContext(r), body); err != nil {
		s.writeError(w, PathRequestToken, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.BearerToken(r.Header.Get("Authorization"))
	if err := s.issuer.Logout(requestContext(r), token); err != nil {
		s.writeError(w, PathLogout, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		s.writeError(w, PathMe, goPasswordless.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{
		UserID:      res.UserID,
		TenantID:    res.TenantID,
		SessionID:   res.SessionID,
		LoginMethod: res.LoginMethod,
		ExpiresAt:   res.ExpiresAt,
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, method string, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		s.logger.Debug("bad request body", zap.String("method", method), zap.Error(err))
		writeJSON(w, http.StatusBadRequest, ErrorEnvelope{Error: WireError{
			Code:   http.StatusBadRequest,
			Reason: "bad request",
		}})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, method string, err error) {
	wire := goPasswordless.ToWireError(err)
	if wire.Code >= http.StatusInternalServerError {
		s.logger.Error("method failed", zap.String("method", method), zap.Int("code", wire.Code), zap.Error(err))
	} else {
		s.logger.Info("method rejected", zap.String("method", method), zap.Int("code", wire.Code), zap.Error(err))
	}
	writeJSON(w, wire.Code, ErrorEnvelope{Error: WireError{
		Code:    wire.Code,
		Reason:  wire.Reason,
		Details: wire.Details,
	}})
}

func requestContext(r *http.Request) context.Context {
	ctx := r.Context()

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ctx = goPasswordless.WithClientIP(ctx, host)
	if tenant := r.Header.Get(TenantHeader); tenant != "" {
		ctx = goPasswordless.WithTenantID(ctx, tenant)
	}

	return ctx
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
