package goPasswordless

import (
	"context"
	"time"
)

// UserRecord is the subset of a user the engine needs. Profile carries the
// userData supplied when the user was created.
type UserRecord struct {
	UserID   string
	TenantID string
	Email    string
	Username string
	Profile  map[string]any
}

// CreateUserInput describes a user created on first token request.
type CreateUserInput struct {
	TenantID string
	Email    string
	Username string
	Selector Selector
	UserData map[string]any
}

// UserProvider resolves selectors to users. Selectors of the form {id} are
// looked up with GetUserByID, all others with FindUser. Both must return an
// error matching ErrUserNotFound when nothing matches.
type UserProvider interface {
	FindUser(ctx context.Context, selector Selector) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
}

// TokenDelivery is handed to the TokenSender once a login token is stored.
// Link is empty unless a magic-link base URL is configured.
type TokenDelivery struct {
	User      UserRecord
	Token     string
	Link      string
	ExpiresAt time.Time
	Options   TokenRequestOptions
}

// TokenSender delivers a login token out of band, typically by email.
type TokenSender interface {
	SendLoginToken(ctx context.Context, delivery TokenDelivery) error
}

// TokenSenderFunc adapts a function to TokenSender.
type TokenSenderFunc func(ctx context.Context, delivery TokenDelivery) error

func (f TokenSenderFunc) SendLoginToken(ctx context.Context, delivery TokenDelivery) error {
	return f(ctx, delivery)
}

// TokenRequestOptions is forwarded verbatim from the client. The engine
// only interprets the keys it knows.
type TokenRequestOptions map[string]any

const optionUserCreationDisabled = "userCreationDisabled"

// UserCreationDisabled reports whether the caller asked not to create a
// missing user.
func (o TokenRequestOptions) UserCreationDisabled() bool {
	v, _ := o[optionUserCreationDisabled].(bool)
	return v
}

// TokenRequest asks for a login token for the user matching Selector.
// Selector accepts anything NormalizeSelector does.
type TokenRequest struct {
	Selector any                 `json:"selector"`
	UserData map[string]any      `json:"userData,omitempty"`
	Options  TokenRequestOptions `json:"options,omitempty"`
}

// LoginArgs is the payload of the login method for token logins.
type LoginArgs struct {
	Selector Selector `json:"selector"`
	Token    string   `json:"token"`
}

// LoginResult describes the session established by a successful token
// login. Token is the bearer access token.
type LoginResult struct {
	UserID       string    `json:"id"`
	Token        string    `json:"token"`
	TokenExpires time.Time `json:"tokenExpires"`
	SessionID    string    `json:"sessionId,omitempty"`
}

// AuthResult is returned by Validate for an accepted access token.
type AuthResult struct {
	UserID      string
	TenantID    string
	SessionID   string
	LoginMethod string
	ExpiresAt   time.Time
}

// TokenStrategyType selects the login token format.
type TokenStrategyType int

const (
	// TokenSequence is a short upper-case hex code a user can type.
	TokenSequence TokenStrategyType = iota
	// TokenOpaque is 256 random bits, base64url encoded.
	TokenOpaque
	// TokenUUID is a random UUIDv4.
	TokenUUID
)

func (t TokenStrategyType) String() string {
	switch t {
	case TokenSequence:
		return "sequence"
	case TokenOpaque:
		return "opaque"
	case TokenUUID:
		return "uuid"
	default:
		return "unknown"
	}
}

const loginMethodToken = "token"
