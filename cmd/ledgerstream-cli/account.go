package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newAccountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Inspect accounts",
	}

	cmd.AddCommand(newAccountListCommand())
	cmd.AddCommand(newAccountGetCommand())
	cmd.AddCommand(newAccountTransactionsCommand())

	return cmd
}

func newAccountListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			accounts, err := apiClient.ListAccounts(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d accounts:\n", len(accounts))
			for _, acc := range accounts {
				fmt.Fprintf(out, "  %-8s %-20s %-10s %12s\n", acc.ID, acc.Name, acc.Type, formatAmount(acc.Balance))
			}
			return nil
		},
	}
}

func newAccountGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ACCOUNT_ID",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			acc, err := apiClient.GetAccount(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:      %s\n", acc.ID)
			fmt.Fprintf(out, "Name:    %s\n", acc.Name)
			fmt.Fprintf(out, "Type:    %s\n", acc.Type)
			fmt.Fprintf(out, "Balance: %s\n", formatAmount(acc.Balance))
			return nil
		},
	}
}

func newAccountTransactionsCommand() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "transactions ACCOUNT_ID",
		Short: "Show an account's transaction history, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			page, err := apiClient.ListTransactions(ctx, args[0], limit, offset)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d transactions for %s (offset %d):\n", page.Count, page.AccountID, page.Offset)
			for _, txn := range page.Transactions {
				fmt.Fprintf(out, "  %s  %-32s %12s  balance %s\n", txn.Date, txn.Description, formatAmount(txn.Amount), formatAmount(txn.BalanceAfter))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 30, "Maximum number of transactions")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of newest transactions to skip")

	return cmd
}
