// Command pinspot-api runs the pinspot HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/buildinfo"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	cmd := &cobra.Command{
		Use:   "pinspot-api",
		Short: "pinspot HTTP API",
		Long: `pinspot-api serves the pinspot REST API: accounts, pins, invites
and search over MongoDB. Configuration is read from the environment and
from .env when PORT is not set.

Running without a subcommand starts the server.`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	cmd.AddCommand(serve, newIndexesCmd(), newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pinspot-api %s (%s), framework %s\n",
				buildinfo.Version, buildinfo.Commit, app.Version)
		},
	}
}
