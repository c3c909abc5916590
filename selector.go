package goPasswordless

import (
	"encoding/json"
	"strings"
)

const (
	selectorKeyEmail    = "email"
	selectorKeyUsername = "username"
	selectorKeyID       = "id"
)

// Selector identifies the user a login token belongs to. The canonical form
// holds exactly one of "email" or "username". Any other shape is an opaque
// query that is forwarded to the UserProvider untouched.
type Selector map[string]any

// NormalizeSelector maps user input to a Selector. Strings containing "@"
// become an email selector and other strings a username selector. Maps are
// passed through, nil stays nil, and other values are converted through
// their JSON object form (nil when they are not objects).
func NormalizeSelector(v any) Selector {
	switch s := v.(type) {
	case nil:
		return nil
	case string:
		if strings.Contains(s, "@") {
			return Selector{selectorKeyEmail: s}
		}
		return Selector{selectorKeyUsername: s}
	case Selector:
		return s
	case map[string]any:
		return Selector(s)
	case map[string]string:
		out := make(Selector, len(s))
		for k, val := range s {
			out[k] = val
		}
		return out
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out Selector
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// Email returns the email of a canonical email selector.
func (s Selector) Email() (string, bool) {
	v, ok := s[selectorKeyEmail].(string)
	return v, ok
}

// Username returns the username of a canonical username selector.
func (s Selector) Username() (string, bool) {
	v, ok := s[selectorKeyUsername].(string)
	return v, ok
}

// UserID returns the id of a selector that is exactly {id}.
func (s Selector) UserID() (string, bool) {
	if len(s) != 1 {
		return "", false
	}
	v, ok := s[selectorKeyID].(string)
	return v, ok && v != ""
}

// IsCanonical reports whether s is exactly {email} or {username}.
func (s Selector) IsCanonical() bool {
	if len(s) != 1 {
		return false
	}
	if _, ok := s.Email(); ok {
		return true
	}
	_, ok := s.Username()
	return ok
}

// Identifier returns the email, username or id, or "" for other selectors.
// It keys per-identifier rate limits.
func (s Selector) Identifier() string {
	if v, ok := s.Email(); ok {
		return v
	}
	if v, ok := s.Username(); ok {
		return v
	}
	if v, ok := s.UserID(); ok {
		return v
	}
	return ""
}

// IsEmpty reports whether s selects nothing.
func (s Selector) IsEmpty() bool {
	return len(s) == 0
}

// ParseSelectorParam decodes the selector URL parameter. A value starting
// with "{" must be a JSON object; anything else is a plain email or
// username.
func ParseSelectorParam(raw string) (Selector, error) {
	if strings.HasPrefix(raw, "{") {
		var out Selector
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, newMalformedSelectorError(raw, err)
		}
		return out, nil
	}
	return NormalizeSelector(raw), nil
}

// EncodeSelectorParam is the inverse of ParseSelectorParam. Canonical
// selectors encode as their bare identifier when that parses back to the
// same selector, so magic links stay readable.
func EncodeSelectorParam(s Selector) (string, error) {
	if s.IsCanonical() {
		id := s.Identifier()
		_, wantEmail := s.Email()
		if !strings.HasPrefix(id, "{") && strings.Contains(id, "@") == wantEmail {
			return id, nil
		}
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// SelectorMissing reports whether v is nil, "", or an empty map. Such
// values are rejected before any remote call.
func SelectorMissing(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return s == ""
	case Selector:
		return len(s) == 0
	case map[string]any:
		return len(s) == 0
	case map[string]string:
		return len(s) == 0
	}
	return false
}
