package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goPasswordless "github.com/MrEthical07/goPasswordless"
	"github.com/MrEthical07/goPasswordless/userstore/memory"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type loadtestConfig struct {
	users       int
	concurrency int
	strategy    string
}

func newLoadtestCmd() *cobra.Command {
	lc := &loadtestConfig{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Measure token request and redeem throughput in process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if lc.users <= 0 || lc.concurrency <= 0 {
				return fmt.Errorf("users and concurrency must be > 0")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runLoadtest(cmd, cfg, lc)
		},
	}

	cmd.Flags().IntVar(&lc.users, "users", 10000, "number of users to log in")
	cmd.Flags().IntVar(&lc.concurrency, "concurrency", 64, "number of concurrent workers")
	cmd.Flags().StringVar(&lc.strategy, "strategy", "opaque", "token strategy: sequence, opaque or uuid")

	return cmd
}

// tokenBox collects delivered tokens by user id.
type tokenBox struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (b *tokenBox) SendLoginToken(_ context.Context, d goPasswordless.TokenDelivery) error {
	b.mu.Lock()
	b.tokens[d.User.UserID] = d.Token
	b.mu.Unlock()
	return nil
}

func (b *tokenBox) get(userID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens[userID]
}

func runLoadtest(cmd *cobra.Command, cfg Config, lc *loadtestConfig) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rdb, closeRedis, err := openRedis(cfg.RedisAddr, zap.NewNop())
	if err != nil {
		return err
	}
	defer closeRedis()

	strategy, err := parseStrategy(lc.strategy)
	if err != nil {
		return err
	}
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}

	engineCfg := goPasswordless.DefaultConfig()
	engineCfg.JWT.PrivateKey = priv
	engineCfg.JWT.PublicKey = pub
	engineCfg.LoginToken.Strategy = strategy
	engineCfg.LoginToken.EnableIdentifierThrottle = false
	engineCfg.LoginToken.EnableIPThrottle = false
	engineCfg.Metrics.Enabled = true
	engineCfg.Metrics.EnableLatencyHistograms = true

	users := memory.New()
	box := &tokenBox{tokens: make(map[string]string, lc.users)}

	engine, err := goPasswordless.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithUserProvider(users).
		WithTokenSender(box).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	emails := make([]string, lc.users)
	for i := range emails {
		emails[i] = fmt.Sprintf("user-%d@example.com", i)
	}

	cmd.Printf("requesting %d tokens...\n", lc.users)
	requestStats := runPhase(lc.users, lc.concurrency, func(i int) error {
		return engine.RequestLoginToken(ctx, goPasswordless.TokenRequest{Selector: emails[i]})
	})

	redeemStats := runPhase(lc.users, lc.concurrency, func(i int) error {
		sel := goPasswordless.NormalizeSelector(emails[i])
		user, err := users.FindUser(ctx, sel)
		if err != nil {
			return err
		}
		_, err = engine.LoginWithToken(ctx, sel, box.get(user.UserID))
		return err
	})

	cmd.Println("---- results ----")
	printStats(cmd, "request", requestStats)
	printStats(cmd, "redeem", redeemStats)

	snap := engine.MetricsSnapshot()
	cmd.Printf("sessions created: %d\n", snap.Counters[goPasswordless.MetricSessionCreated])
	return nil
}

// runPhase calls op for 0..ops-1 across concurrency workers.
func runPhase(ops, concurrency int, op func(i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(cmd *cobra.Command, name string, s phaseStats) {
	cmd.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
