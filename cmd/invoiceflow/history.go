package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/invoice-flow/internal/cli"
)

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently processed documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			store, err := openStorage(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := store.Close(); cerr != nil {
					slog.Warn("Failed to close history database", "error", cerr)
				}
			}()

			entries, err := store.ListResults(cmd.Context(), limit)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderHistory(entries))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to show (0 for all)")

	return cmd
}
