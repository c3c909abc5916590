package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	goPasswordless "github.com/MrEthical07/goPasswordless"
	promexport "github.com/MrEthical07/goPasswordless/metrics/export/prometheus"
	"github.com/MrEthical07/goPasswordless/server"
	"github.com/MrEthical07/goPasswordless/userstore/memory"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the login-token HTTP server",
		Long: `Run the HTTP server for the login-token methods. Users are kept in
memory and issued tokens are written to the log instead of being mailed.
Prometheus metrics are served on /metrics and a Redis health check on
/healthz.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Debug)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, logger)
		},
	}
}

func runServe(ctx context.Context, cfg Config, logger *zap.Logger) error {
	rdb, closeRedis, err := openRedis(cfg.RedisAddr, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	engineCfg, err := cfg.engineConfig(logger)
	if err != nil {
		return err
	}

	engine, err := goPasswordless.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithUserProvider(memory.New()).
		WithTokenSender(logTokenSender(logger)).
		WithAuditSink(goPasswordless.NewZapSink(logger)).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	report := engine.SecurityReport()
	logger.Info("security posture",
		zap.String("token_strategy", report.TokenStrategy),
		zap.Int("token_entropy_bits", report.TokenEntropyBits),
		zap.Float64("guess_resistance_bits", report.GuessResistanceBits),
		zap.Bool("redeem_throttle", report.RedeemThrottleActive),
	)
	for _, w := range report.Warnings {
		logger.Warn("security posture", zap.String("warning", w))
	}

	mux := http.NewServeMux()
	mux.Handle("/methods/", server.New(engine, logger.Named("http")))
	mux.Handle("GET /metrics", promexport.Handler(promexport.NewCollector(engine)))
	mux.Handle("GET "+server.PathHealth, server.HealthHandler(engine))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// logTokenSender stands in for a mailer.
func logTokenSender(logger *zap.Logger) goPasswordless.TokenSender {
	return goPasswordless.TokenSenderFunc(func(_ context.Context, d goPasswordless.TokenDelivery) error {
		logger.Info("login token issued",
			zap.String("user_id", d.User.UserID),
			zap.String("email", d.User.Email),
			zap.String("username", d.User.Username),
			zap.String("token", d.Token),
			zap.String("link", d.Link),
			zap.Time("expires_at", d.ExpiresAt),
		)
		return nil
	})
}
