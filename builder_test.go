package goPasswordless

import (
	"strings"
	"testing"
)

func TestBuildRequiresCollaborators(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig(t)

	cases := []struct {
		name string
		b    *Builder
		want string
	}{
		{"redis", New().WithConfig(cfg).WithUserProvider(newMockUserProvider()).WithTokenSender(&captureSender{}), "redis"},
		{"user provider", New().WithConfig(cfg).WithRedis(rdb).WithTokenSender(&captureSender{}), "user provider"},
		{"token sender", New().WithConfig(cfg).WithRedis(rdb).WithUserProvider(newMockUserProvider()), "token sender"},
		{"config", New().WithRedis(rdb).WithUserProvider(newMockUserProvider()).WithTokenSender(&captureSender{}), "ed25519"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.b.Build()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	_, rdb := newTestRedis(t)
	b := New().
		WithConfig(testConfig(t)).
		WithRedis(rdb).
		WithUserProvider(newMockUserProvider()).
		WithTokenSender(&captureSender{})

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatalf("expected second Build to fail")
	}
}

func TestBuilderCopiesConfigKeys(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig(t)
	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(newMockUserProvider()).
		WithTokenSender(&captureSender{})

	for i := range cfg.JWT.PrivateKey {
		cfg.JWT.PrivateKey[i] = 0
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
}
