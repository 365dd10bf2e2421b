package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pinspot/api/internal/config"
	"github.com/pinspot/api/internal/schema"
	"github.com/pinspot/api/internal/store"
)

func newIndexesCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "indexes",
		Short: "Create the MongoDB indexes and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			db, err := store.Open(ctx, cfg.MongoURI, cfg.MongoDatabase, schema.Default())
			if err != nil {
				return err
			}
			defer db.Close(context.WithoutCancel(ctx))

			fmt.Fprintf(cmd.OutOrStdout(), "indexes applied to %s\n", db.Name())
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall deadline")
	return cmd
}
