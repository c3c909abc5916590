package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passwordless",
		Short: "Passwordless login-token server and client",
		Long: `passwordless issues one-time login tokens, redeems them for
sessions, and drives the client side of the magic-link flow.

Configuration is read from PASSWORDLESS_* environment variables.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newRequestCmd())
	cmd.AddCommand(newVisitCmd())
	cmd.AddCommand(newLoadtestCmd())

	return cmd
}
