package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/ledgerstream-go/pkg/client"
)

var (
	// Global flags
	serverURL string
	timeout   time.Duration

	// Global client instance
	apiClient *client.Client
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ledgerstream-cli",
		Short: "LedgerStream HTTP API command line interface",
		Long: `ledgerstream-cli is a command line interface for the LedgerStream HTTP API.
It reads accounts and transaction history, posts transfers and payments,
and follows live balance and transaction subscriptions.`,
		PersistentPreRunE: initializeClient,
		SilenceUsage:      true,
	}

	// Add global flags
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:4000", "LedgerStream server URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	// Add subcommands
	rootCmd.AddCommand(newSubscribeCommand())
	rootCmd.AddCommand(newAccountCommand())
	rootCmd.AddCommand(newTransferCommand())
	rootCmd.AddCommand(newPaymentCommand())
	rootCmd.AddCommand(newStreamsCommand())
	rootCmd.AddCommand(newHealthCommand())

	return rootCmd
}

// initializeClient sets up the HTTP client with global configuration
func initializeClient(cmd *cobra.Command, args []string) error {
	// Skip client initialization for help commands
	if cmd.Name() == "help" || cmd.Parent() == nil {
		return nil
	}

	var err error
	apiClient, err = client.NewClient(client.Config{
		ServerURL: serverURL,
		Timeout:   timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}
