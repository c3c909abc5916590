package main

import (
	"context"

	"github.com/MrEthical07/goPasswordless/client"
	"github.com/MrEthical07/goPasswordless/transport/httpcall"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newVisitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "visit <magic-link-url>",
		Short: "Log in the way a page opened from a magic link does",
		Long: `Run the auto-login sequence against a magic-link URL: the loginToken
and selector parameters are redeemed on the server, and the scrubbed URL
is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Debug)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return runVisit(cmd, cfg, logger, args[0])
		},
	}
}

// printHistory shows the replaced URL instead of a browser address bar.
type printHistory struct {
	cmd *cobra.Command
}

func (h printHistory) ReplaceURL(url string) {
	h.cmd.Printf("url: %s\n", url)
}

func runVisit(cmd *cobra.Command, cfg Config, logger *zap.Logger, pageURL string) error {
	conn := httpcall.New(cfg.ServerURL,
		httpcall.WithTenantID(cfg.TenantID),
		httpcall.WithLogger(logger),
	)
	c := client.New(conn,
		client.WithSessionReader(conn),
		client.WithHistory(printHistory{cmd: cmd}),
		client.WithLogger(logger),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := c.AutoLoginWithToken(ctx, pageURL)
	if err != nil {
		return err
	}
	cmd.Printf("auto-login: %s\n", res.Outcome)
	if res.Outcome != client.AutoLoginSucceeded {
		return nil
	}

	me, err := conn.Me(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("logged in as %s (session %s, expires %s)\n", me.UserID, me.SessionID, me.ExpiresAt.Format("2006-01-02 15:04:05Z07:00"))
	return nil
}
