package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/ledgerstream-go/pkg/client"
)

func newTransferCommand() *cobra.Command {
	var from, to, amount, description string

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move money between two accounts",
		Example: `  ledgerstream-cli transfer --from acc-2 --to acc-1 --amount 125.00
  ledgerstream-cli transfer --from acc-1 --to acc-3 --amount 9.99 --description "Lunch"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cents, err := parseAmount(amount)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			txn, err := apiClient.Transfer(ctx, client.TransferRequest{
				FromAccountID: from,
				ToAccountID:   to,
				Amount:        cents,
				Description:   description,
			})
			if err != nil {
				return err
			}

			printTransaction(cmd, "Transfer posted", txn)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Source account ID")
	cmd.Flags().StringVar(&to, "to", "", "Destination account ID")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount in dollars, e.g. 12.50")
	cmd.Flags().StringVar(&description, "description", "", "Description (default \"Transfer\")")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("amount")

	return cmd
}

func newPaymentCommand() *cobra.Command {
	var from, iban, amount, description string

	cmd := &cobra.Command{
		Use:     "payment",
		Short:   "Pay money out of an account to an external IBAN",
		Example: `  ledgerstream-cli payment --from acc-1 --iban DE89370400440532013000 --amount 42.00`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cents, err := parseAmount(amount)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			txn, err := apiClient.Payment(ctx, client.PaymentRequest{
				FromAccountID: from,
				ExternalIBAN:  iban,
				Amount:        cents,
				Description:   description,
			})
			if err != nil {
				return err
			}

			printTransaction(cmd, "Payment posted", txn)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Source account ID")
	cmd.Flags().StringVar(&iban, "iban", "", "External IBAN to pay")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount in dollars, e.g. 12.50")
	cmd.Flags().StringVar(&description, "description", "", "Description (default \"Payment to <iban>\")")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("iban")
	cmd.MarkFlagRequired("amount")

	return cmd
}

func printTransaction(cmd *cobra.Command, title string, txn *client.Transaction) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s:\n", title)
	fmt.Fprintf(out, "   ID: %s\n", txn.ID)
	fmt.Fprintf(out, "   Date: %s\n", txn.Date)
	fmt.Fprintf(out, "   Description: %s\n", txn.Description)
	fmt.Fprintf(out, "   Amount: %s\n", formatAmount(txn.Amount))
	fmt.Fprintf(out, "   Balance after: %s\n", formatAmount(txn.BalanceAfter))
}
