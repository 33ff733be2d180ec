package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long:  "Check the health status of the LedgerStream server",
		Args:  cobra.NoArgs,
		RunE:  runHealth,
	}

	return cmd
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "🏥 Checking health of %s...\n", serverURL)

	health, err := apiClient.Health(ctx)
	if health == nil {
		return fmt.Errorf("failed to check health: %w", err)
	}

	if health.Healthy {
		fmt.Fprintf(out, "✅ Server is healthy!\n")
	} else {
		fmt.Fprintf(out, "❌ Server is not healthy\n")
	}
	fmt.Fprintf(out, "Ledger: %t\n", health.LedgerHealthy)
	fmt.Fprintf(out, "Active streams: %d\n", health.ActiveStreams)
	if health.Message != "" {
		fmt.Fprintf(out, "Message: %s\n", health.Message)
	}

	return err
}

func newStreamsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "streams",
		Short: "List running subscription streams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			resp, err := apiClient.ListStreams(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d running streams\n", resp.Count)
			for _, s := range resp.Streams {
				fmt.Fprintf(out, "  %s  %-26s %-8s %-10s %d events since %s\n",
					s.SSEID, s.Operation, s.AccountID, s.State, s.Emitted, s.StartedAt.Format("15:04:05"))
			}
			return nil
		},
	}
}
