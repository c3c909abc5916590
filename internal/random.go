package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"math/big"
	"strings"
)

type SessionID [16]byte

const (
	opaqueSecretSize  = 32
	sequenceAlphabet  = "0123456789ABCDEF"
	minSequenceLength = 4
	maxSequenceLength = 16
)

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) Bytes() []byte {
	return s[:]
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid session id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

// NewOpaqueToken returns a base64url encoded 256-bit random token.
func NewOpaqueToken() (string, error) {
	var secret [opaqueSecretSize]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(secret[:]), nil
}

// NewSequence returns an upper-case hex code of the given length, the short
// form a user can type back from an email.
func NewSequence(length int) (string, error) {
	if length < minSequenceLength || length > maxSequenceLength {
		return "", errors.New("invalid sequence length")
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(sequenceAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(sequenceAlphabet[n.Int64()])
	}

	return b.String(), nil
}

// NormalizeSequence folds user-typed sequences so that case and surrounding
// whitespace do not matter.
func NormalizeSequence(token string) string {
	return strings.ToUpper(strings.TrimSpace(token))
}

func HashToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}
