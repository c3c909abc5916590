package session

// Session is the server-side record behind an access token. SessionID is the
// Redis key suffix and is not part of the encoded blob.
type Session struct {
	SessionID string
	UserID    string
	TenantID  string

	// LoginMethod records how the session was established, e.g. "token".
	LoginMethod string
	IPHash      [32]byte

	CreatedAt int64
	ExpiresAt int64
}
