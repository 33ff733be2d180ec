package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/ledgerstream-go/pkg/client"
)

func newSubscribeCommand() *cobra.Command {
	var (
		accountID  string
		bufferSize int
	)

	cmd := &cobra.Command{
		Use:   "subscribe balance|transactions",
		Short: "Follow a live subscription stream",
		Long: `Follow a live balance or transaction subscription over Server-Sent Events.
The command prints every event until the server completes the stream.
Press Ctrl+C to stop early.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"balance", "transactions"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubscribe(cmd, args[0], accountID, bufferSize)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID to subscribe to")
	cmd.Flags().IntVar(&bufferSize, "buffer-size", 100, "Event buffer size")
	cmd.MarkFlagRequired("account")

	return cmd
}

func runSubscribe(cmd *cobra.Command, kind, accountID string, bufferSize int) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle Ctrl+C gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	out := cmd.OutOrStdout()
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(out, "\n🛑 Stopping stream...")
			cancel()
		case <-ctx.Done():
		}
	}()

	config := client.StreamConfig{BufferSize: bufferSize}

	var (
		sub *client.Subscription
		err error
	)
	switch kind {
	case "balance":
		sub, err = apiClient.SubscribeBalance(ctx, accountID, config)
	case "transactions":
		sub, err = apiClient.SubscribeTransactions(ctx, accountID, config)
	default:
		return fmt.Errorf("unknown subscription %q (want balance or transactions)", kind)
	}
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Close()

	fmt.Fprintf(out, "🌊 Subscribed to %s updates for %s on %s\n", kind, accountID, serverURL)

	count := 0
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(out, "\n✅ Stream stopped. Received %d events.\n", count)
			return nil

		case event, ok := <-sub.Events():
			if !ok {
				fmt.Fprintf(out, "\n🔌 Stream finished. Received %d events.\n", count)
				return nil
			}
			count++
			if err := printEvent(out, kind, event); err != nil {
				return err
			}

		case err, ok := <-sub.Errors():
			if ok && err != nil {
				return fmt.Errorf("stream error: %w", err)
			}

		case <-sub.Done():
			// Drain anything still buffered before reporting.
			for event := range sub.Events() {
				count++
				if err := printEvent(out, kind, event); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "\n🔌 Stream finished. Received %d events.\n", count)
			return nil
		}
	}
}

func printEvent(out io.Writer, kind string, event client.Event) error {
	switch event.Event {
	case client.EventComplete:
		fmt.Fprintf(out, "🏁 [%s] complete\n", event.ID)
		return nil
	case client.EventError:
		msg := event.ErrorMessage()
		fmt.Fprintf(out, "❌ [%s] error: %s\n", event.ID, msg)
		return fmt.Errorf("subscription failed: %s", msg)
	}

	if kind == "balance" {
		var update client.BalanceUpdate
		if err := event.DecodeField("accountBalanceUpdated", &update); err != nil {
			return err
		}
		if update.Payment == 0 {
			fmt.Fprintf(out, "📨 [%s] %s balance %s\n", event.ID, update.ID, formatAmount(update.Balance))
			return nil
		}
		fmt.Fprintf(out, "📨 [%s] %s balance %s (%s %s)\n", event.ID, update.ID,
			formatAmount(update.Balance), formatAmount(update.Payment), update.Description)
		return nil
	}

	var txn client.TransactionUpdate
	if err := event.DecodeField("transactionAdded", &txn); err != nil {
		return err
	}
	fmt.Fprintf(out, "📨 [%s] %s %s %s balance %s\n", event.ID, txn.Date, txn.Description,
		formatAmount(txn.Amount), formatAmount(txn.BalanceAfter))
	return nil
}
