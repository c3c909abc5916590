package goPasswordless

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// ErrorKind classifies client-facing failures.
type ErrorKind uint8

const (
	// KindPrecondition is a locally detected missing or invalid argument. No
	// remote call was made.
	KindPrecondition ErrorKind = iota + 1
	// KindRemote is a failure reported by, or while reaching, the remote
	// login method.
	KindRemote
	// KindMalformedSelector is a selector URL parameter that looked like JSON
	// but did not decode.
	KindMalformedSelector
)

func (k ErrorKind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindRemote:
		return "remote"
	case KindMalformedSelector:
		return "malformed_selector"
	default:
		return "unknown"
	}
}

var (
	// Kind sentinels. errors.Is(err, ErrPrecondition) holds for any *Error of
	// KindPrecondition.
	ErrPrecondition      = errors.New("precondition failed")
	ErrRemoteAuth        = errors.New("remote authentication failed")
	ErrMalformedSelector = errors.New("malformed selector")
)

var (
	ErrUnauthorized             = errors.New("unauthorized")
	ErrSelectorRequired         = errors.New("must pass selector")
	ErrUserNotFound             = errors.New("user not found")
	ErrUserCreationFailed       = errors.New("user creation failed")
	ErrLoginTokenInvalid        = errors.New("login token invalid")
	ErrLoginTokenExpired        = errors.New("login token expired")
	ErrLoginTokenAttempts       = errors.New("login token attempts exceeded")
	ErrLoginTokenRateLimited    = errors.New("login token rate limited")
	ErrLoginTokenUnavailable    = errors.New("login token backend unavailable")
	ErrLoginTokenDeliveryFailed = errors.New("login token delivery failed")
	ErrSessionNotFound          = errors.New("session not found")
	ErrSessionCreationFailed    = errors.New("session creation failed")
	ErrTokenInvalid             = errors.New("access token invalid")
	ErrEngineNotReady           = errors.New("engine not ready")

	// ErrUserCreationDisabled is returned for an unknown selector when user
	// creation is turned off. It matches ErrUserNotFound.
	ErrUserCreationDisabled = fmt.Errorf("%w: creation disabled", ErrUserNotFound)
)

// Error is the uniform failure value returned by the client and sent over
// the wire by the server. Code follows HTTP status semantics.
type Error struct {
	Kind    ErrorKind
	Code    int
	Reason  string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Reason
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Code != 0 {
		msg += " [" + strconv.Itoa(e.Code) + "]"
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrPrecondition:
		return e.Kind == KindPrecondition
	case ErrRemoteAuth:
		return e.Kind == KindRemote
	case ErrMalformedSelector:
		return e.Kind == KindMalformedSelector
	}
	return false
}

// NewPreconditionError returns a 400 precondition error with reason.
func NewPreconditionError(reason string) *Error {
	return &Error{Kind: KindPrecondition, Code: http.StatusBadRequest, Reason: reason}
}

func newMalformedSelectorError(raw string, cause error) *Error {
	return &Error{
		Kind:    KindMalformedSelector,
		Code:    http.StatusBadRequest,
		Reason:  "Malformed selector",
		Details: raw,
		Err:     cause,
	}
}

type wireMapping struct {
	sentinel error
	code     int
}

var wireMappings = []wireMapping{
	{ErrSelectorRequired, http.StatusBadRequest},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrTokenInvalid, http.StatusUnauthorized},
	{ErrSessionNotFound, http.StatusUnauthorized},
	{ErrUserCreationDisabled, http.StatusForbidden},
	{ErrUserNotFound, http.StatusForbidden},
	{ErrLoginTokenInvalid, http.StatusForbidden},
	{ErrLoginTokenExpired, http.StatusForbidden},
	{ErrLoginTokenAttempts, http.StatusForbidden},
	{ErrLoginTokenRateLimited, http.StatusTooManyRequests},
	{ErrLoginTokenUnavailable, http.StatusServiceUnavailable},
	{ErrLoginTokenDeliveryFailed, http.StatusServiceUnavailable},
	{ErrUserCreationFailed, http.StatusServiceUnavailable},
	{ErrSessionCreationFailed, http.StatusServiceUnavailable},
	{ErrEngineNotReady, http.StatusServiceUnavailable},
}

// ToWireError converts an engine error into the *Error sent to remote
// callers. The Reason of a known sentinel is the sentinel's message, so
// FromWireError can restore it. Unknown errors become an opaque 500.
func ToWireError(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	for _, m := range wireMappings {
		if errors.Is(err, m.sentinel) {
			kind := KindRemote
			if m.code == http.StatusBadRequest {
				kind = KindPrecondition
			}
			return &Error{Kind: kind, Code: m.code, Reason: m.sentinel.Error(), Err: m.sentinel}
		}
	}

	return &Error{Kind: KindRemote, Code: http.StatusInternalServerError, Reason: "internal error"}
}

// FromWireError rebuilds a remote failure. Known reasons regain their
// sentinel so errors.Is works across the wire.
func FromWireError(code int, reason, details string) *Error {
	e := &Error{Kind: KindRemote, Code: code, Reason: reason, Details: details}
	for _, m := range wireMappings {
		if m.sentinel.Error() == reason {
			e.Err = m.sentinel
			break
		}
	}
	return e
}
