package main

import (
	"context"

	goPasswordless "github.com/MrEthical07/goPasswordless"
	"github.com/MrEthical07/goPasswordless/client"
	"github.com/MrEthical07/goPasswordless/transport/httpcall"
	"github.com/spf13/cobra"
)

type requestConfig struct {
	noCreate bool
}

func newRequestCmd() *cobra.Command {
	rc := &requestConfig{}

	cmd := &cobra.Command{
		Use:   "request <email|username|json-selector>",
		Short: "Ask the server to send a login token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runRequest(cmd, cfg, rc, args[0])
		},
	}

	cmd.Flags().BoolVar(&rc.noCreate, "no-create", false, "do not create a missing user")

	return cmd
}

func runRequest(cmd *cobra.Command, cfg Config, rc *requestConfig, raw string) error {
	selector, err := goPasswordless.ParseSelectorParam(raw)
	if err != nil {
		return err
	}

	conn := httpcall.New(cfg.ServerURL, httpcall.WithTenantID(cfg.TenantID))
	c := client.New(conn)

	req := goPasswordless.TokenRequest{Selector: selector}
	if rc.noCreate {
		req.Options = goPasswordless.TokenRequestOptions{"userCreationDisabled": true}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.RequestLoginTokenForUser(ctx, req, nil); err != nil {
		return err
	}

	cmd.Printf("login token sent to %s\n", selector.Identifier())
	return nil
}
