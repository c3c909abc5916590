// Package memory is an in-memory goPasswordless.UserProvider for demos and
// tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	goPasswordless "github.com/MrEthical07/goPasswordless"
	"github.com/google/uuid"
)

// Store indexes users by id, email and username. Emails match case
// insensitively.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]goPasswordless.UserRecord
	byEmail    map[string]string
	byUsername map[string]string
}

func New() *Store {
	return &Store{
		byID:       make(map[string]goPasswordless.UserRecord),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
	}
}

// Put inserts or replaces u. An empty UserID gets a fresh UUID.
func (s *Store) Put(u goPasswordless.UserRecord) goPasswordless.UserRecord {
	if u.UserID == "" {
		u.UserID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(u)
	return u
}

func (s *Store) putLocked(u goPasswordless.UserRecord) {
	if old, ok := s.byID[u.UserID]; ok {
		delete(s.byEmail, emailKey(old.Email))
		delete(s.byUsername, old.Username)
	}
	s.byID[u.UserID] = u
	if u.Email != "" {
		s.byEmail[emailKey(u.Email)] = u.UserID
	}
	if u.Username != "" {
		s.byUsername[u.Username] = u.UserID
	}
}

// FindUser matches the "id", "email" or "username" key of selector, in that
// order. Other keys are ignored.
func (s *Store) FindUser(_ context.Context, selector goPasswordless.Selector) (goPasswordless.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := selector["id"].(string); ok && id != "" {
		if u, ok := s.byID[id]; ok {
			return u, nil
		}
		return goPasswordless.UserRecord{}, goPasswordless.ErrUserNotFound
	}
	if email, ok := selector.Email(); ok {
		if id, ok := s.byEmail[emailKey(email)]; ok {
			return s.byID[id], nil
		}
		return goPasswordless.UserRecord{}, goPasswordless.ErrUserNotFound
	}
	if username, ok := selector.Username(); ok {
		if id, ok := s.byUsername[username]; ok {
			return s.byID[id], nil
		}
	}
	return goPasswordless.UserRecord{}, goPasswordless.ErrUserNotFound
}

func (s *Store) GetUserByID(_ context.Context, userID string) (goPasswordless.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[userID]
	if !ok {
		return goPasswordless.UserRecord{}, goPasswordless.ErrUserNotFound
	}
	return u, nil
}

// CreateUser adds a user for an email or username selector. It fails when
// neither is given or when the identifier is taken.
func (s *Store) CreateUser(_ context.Context, input goPasswordless.CreateUserInput) (goPasswordless.UserRecord, error) {
	if input.Email == "" && input.Username == "" {
		return goPasswordless.UserRecord{}, fmt.Errorf("memory: email or username required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if input.Email != "" {
		if _, ok := s.byEmail[emailKey(input.Email)]; ok {
			return goPasswordless.UserRecord{}, fmt.Errorf("memory: email %q already registered", input.Email)
		}
	}
	if input.Username != "" {
		if _, ok := s.byUsername[input.Username]; ok {
			return goPasswordless.UserRecord{}, fmt.Errorf("memory: username %q already registered", input.Username)
		}
	}

	u := goPasswordless.UserRecord{
		UserID:   uuid.NewString(),
		TenantID: input.TenantID,
		Email:    input.Email,
		Username: input.Username,
		Profile:  input.UserData,
	}
	s.putLocked(u)
	return u, nil
}

// Len returns the number of stored users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
