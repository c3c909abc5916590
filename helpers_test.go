package goPasswordless

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func testConfig(t *testing.T) Config {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	return cfg
}

type mockUserProvider struct {
	mu          sync.Mutex
	users       map[string]UserRecord
	findCalls   atomic.Int64
	getCalls    atomic.Int64
	createCalls atomic.Int64
	createErr   error
	findErr     error
	nextID      int
}

func newMockUserProvider() *mockUserProvider {
	return &mockUserProvider{users: make(map[string]UserRecord)}
}

func (m *mockUserProvider) put(u UserRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.UserID] = u
}

func (m *mockUserProvider) FindUser(_ context.Context, sel Selector) (UserRecord, error) {
	m.findCalls.Add(1)
	if m.findErr != nil {
		return UserRecord{}, m.findErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	email, hasEmail := sel.Email()
	username, hasUsername := sel.Username()
	for _, u := range m.users {
		if hasEmail && strings.EqualFold(u.Email, email) {
			return u, nil
		}
		if hasUsername && u.Username == username {
			return u, nil
		}
	}
	return UserRecord{}, ErrUserNotFound
}

func (m *mockUserProvider) GetUserByID(_ context.Context, id string) (UserRecord, error) {
	m.getCalls.Add(1)
	if m.findErr != nil {
		return UserRecord{}, m.findErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserProvider) CreateUser(_ context.Context, in CreateUserInput) (UserRecord, error) {
	m.createCalls.Add(1)
	if m.createErr != nil {
		return UserRecord{}, m.createErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u := UserRecord{
		UserID:   fmt.Sprintf("created-%d", m.nextID),
		TenantID: in.TenantID,
		Email:    in.Email,
		Username: in.Username,
		Profile:  in.UserData,
	}
	m.users[u.UserID] = u
	return u, nil
}

// captureSender records every delivery.
type captureSender struct {
	mu         sync.Mutex
	deliveries []TokenDelivery
	err        error
}

func (s *captureSender) SendLoginToken(_ context.Context, d TokenDelivery) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, d)
	return nil
}

func (s *captureSender) last(t *testing.T) TokenDelivery {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.deliveries) == 0 {
		t.Fatalf("expected a token delivery")
	}
	return s.deliveries[len(s.deliveries)-1]
}

func (s *captureSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deliveries)
}

// testClock is a settable engine clock.
type testClock struct {
	offset atomic.Int64
}

func (c *testClock) now() time.Time {
	return time.Now().Add(time.Duration(c.offset.Load()))
}

func (c *testClock) set(offset time.Duration) {
	c.offset.Store(int64(offset))
}

type testEngine struct {
	engine *Engine
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	users  *mockUserProvider
	sender *captureSender
	clock  *testClock
}

func buildTestEngine(t *testing.T, cfg Config, sink AuditSink) *testEngine {
	t.Helper()

	mr, rdb := newTestRedis(t)
	te := &testEngine{
		mr:     mr,
		rdb:    rdb,
		users:  newMockUserProvider(),
		sender: &captureSender{},
		clock:  &testClock{},
	}
	te.users.put(UserRecord{UserID: "u1", Email: "alice@example.com", Username: "alice"})

	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(te.users).
		WithTokenSender(te.sender).
		withClock(te.clock.now)
	if sink != nil {
		b = b.WithAuditSink(sink)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	te.engine = engine
	return te
}

// requestToken issues a token for selector and returns the delivered
// plaintext.
func (te *testEngine) requestToken(t *testing.T, ctx context.Context, selector any) string {
	t.Helper()
	if err := te.engine.RequestLoginToken(ctx, TokenRequest{Selector: selector}); err != nil {
		t.Fatalf("RequestLoginToken(%v) failed: %v", selector, err)
	}
	return te.sender.last(t).Token
}
