package goPasswordless

import (
	"context"
	"testing"
)

func metricsConfig(t *testing.T) Config {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func TestMetricsDisabledNoIncrement(t *testing.T) {
	te := buildTestEngine(t, testConfig(t), nil)
	loginAlice(t, te, context.Background())

	snap := te.engine.MetricsSnapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot when disabled, got %+v", snap)
	}
}

func TestMetricsLoginTokenCounters(t *testing.T) {
	te := buildTestEngine(t, metricsConfig(t), nil)
	ctx := context.Background()

	res := loginAlice(t, te, ctx)
	if _, err := te.engine.LoginWithToken(ctx, "alice", "ZZZZZZ"); err == nil {
		t.Fatalf("expected failure")
	}
	if _, err := te.engine.Validate(ctx, res.Token); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if _, err := te.engine.Validate(ctx, "junk"); err == nil {
		t.Fatalf("expected failure")
	}
	if err := te.engine.Logout(ctx, res.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	snap := te.engine.MetricsSnapshot()
	want := map[MetricID]uint64{
		MetricTokenRequestSuccess: 1,
		MetricTokenRedeemSuccess:  1,
		MetricTokenRedeemFailure:  1,
		MetricSessionCreated:      1,
		MetricValidateSuccess:     1,
		MetricValidateFailure:     1,
		MetricLogout:              1,
	}
	for id, v := range want {
		if got := snap.Counters[id]; got != v {
			t.Fatalf("metric %d: expected %d, got %d", id, v, got)
		}
	}

	var observed uint64
	for _, n := range snap.Histograms[MetricRedeemLatency] {
		observed += n
	}
	if observed != 1 {
		t.Fatalf("expected one latency observation, got %d", observed)
	}
}

func TestMetricsRateLimitAndCreation(t *testing.T) {
	cfg := metricsConfig(t)
	cfg.LoginToken.MaxRequestsPerWindow = 1
	te := buildTestEngine(t, cfg, nil)
	ctx := context.Background()

	te.requestToken(t, ctx, "dave")
	if err := te.engine.RequestLoginToken(ctx, TokenRequest{Selector: "dave"}); err == nil {
		t.Fatalf("expected rate limit")
	}

	snap := te.engine.MetricsSnapshot()
	if snap.Counters[MetricUserCreated] != 1 {
		t.Fatalf("expected one user created, got %d", snap.Counters[MetricUserCreated])
	}
	if snap.Counters[MetricTokenRequestRateLimited] != 1 {
		t.Fatalf("expected one rate-limited request, got %d", snap.Counters[MetricTokenRequestRateLimited])
	}
}
