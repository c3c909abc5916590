//go:build integration
// +build integration

package test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	goPasswordless "github.com/MrEthical07/goPasswordless"
	"github.com/MrEthical07/goPasswordless/userstore/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// cmdCounter is a go-redis Hook that counts the number of Redis round-trips
// (individual commands and pipeline calls).
type cmdCounter struct {
	commands  atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		// One pipeline call is one network round-trip regardless of command count.
		h.pipelines.Add(1)
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.commands.Store(0)
	h.pipelines.Store(0)
}

func (h *cmdCounter) Commands() int64  { return h.commands.Load() }
func (h *cmdCounter) Pipelines() int64 { return h.pipelines.Load() }

type lastToken struct {
	mu    sync.Mutex
	token string
}

func (l *lastToken) SendLoginToken(_ context.Context, d goPasswordless.TokenDelivery) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.token = d.Token
	return nil
}

func (l *lastToken) get() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.token
}

// newCountedEngine builds an Engine over miniredis with a cmdCounter hook and
// a seeded user "alice". Throttles are off so only the token and session
// traffic is measured.
func newCountedEngine(t *testing.T, mutate func(*goPasswordless.Config)) (*goPasswordless.Engine, *cmdCounter, *lastToken) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	counter := &cmdCounter{}
	rdb.AddHook(counter)

	// go-redis may emit handshake commands on first use; warm the connection
	// so they are not counted.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	cfg := goPasswordless.DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	cfg.LoginToken.EnableIdentifierThrottle = false
	cfg.LoginToken.EnableIPThrottle = false
	if mutate != nil {
		mutate(&cfg)
	}

	users := memory.New()
	users.Put(goPasswordless.UserRecord{UserID: "u1", Email: "alice@example.com", Username: "alice"})
	sender := &lastToken{}

	engine, err := goPasswordless.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(users).
		WithTokenSender(sender).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	counter.Reset()
	return engine, counter, sender
}
