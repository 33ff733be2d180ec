package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/ledgerstream-go/internal/httpapi"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/ledger"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/stream"
)

// startServer runs the real HTTP API over a seeded memory ledger.
func startServer(t *testing.T) (*httptest.Server, ledger.Ledger) {
	t.Helper()

	l, err := ledger.Open(context.Background(), ledger.Config{Backend: ledger.BackendMemory})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := stream.NewEngine(l, stream.Config{
		BurstMin:             1,
		BurstMax:             2,
		BurstDelayMin:        time.Millisecond,
		BurstDelayMax:        2 * time.Millisecond,
		PaymentMin:           100,
		PaymentMax:           800,
		BalanceEventCap:      3,
		TransactionCount:     2,
		TransactionInterval:  2 * time.Millisecond,
		TransactionAmountMin: -5000,
		TransactionAmountMax: 4999,
	}, stream.WithLogger(logger))
	require.NoError(t, err)

	server := httpapi.NewServer(l, engine, httpapi.Config{Addr: ":0"}, logger)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return ts, l
}

// runCLI executes the root command against serverURL and returns stdout.
func runCLI(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--server", url, "--timeout", "5s"}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand()
	assert.Equal(t, "ledgerstream-cli", cmd.Use)

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"subscribe", "account", "transfer", "payment", "streams", "health"}, names)

	assert.NotNil(t, cmd.PersistentFlags().Lookup("server"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("timeout"))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "whole_dollars", input: "125", want: 12500},
		{name: "cents", input: "12.34", want: 1234},
		{name: "one_decimal", input: "0.5", want: 50},
		{name: "negative", input: "-3.10", want: -310},
		{name: "too_precise", input: "1.005", wantErr: true},
		{name: "not_a_number", input: "ten", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$2500.00", formatAmount(250000))
	assert.Equal(t, "$0.07", formatAmount(7))
	assert.Equal(t, "$-50.00", formatAmount(-5000))
}

func TestAccountCommands(t *testing.T) {
	ts, _ := startServer(t)

	t.Run("list", func(t *testing.T) {
		out, err := runCLI(t, ts.URL, "account", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "3 accounts:")
		assert.Contains(t, out, "Checking Account")
		assert.Contains(t, out, "Business Checking")
	})

	t.Run("get", func(t *testing.T) {
		out, err := runCLI(t, ts.URL, "account", "get", "acc-1")
		require.NoError(t, err)
		assert.Contains(t, out, "Name:    Checking Account")
		assert.Contains(t, out, "Balance: $2500.00")
	})

	t.Run("get_unknown", func(t *testing.T) {
		_, err := runCLI(t, ts.URL, "account", "get", "acc-999")
		assert.Error(t, err)
	})

	t.Run("transactions", func(t *testing.T) {
		out, err := runCLI(t, ts.URL, "account", "transactions", "acc-1", "--limit", "5")
		require.NoError(t, err)
		assert.Contains(t, out, "5 transactions for acc-1 (offset 0):")
	})
}

func TestTransferCommand(t *testing.T) {
	ts, l := startServer(t)

	out, err := runCLI(t, ts.URL, "transfer", "--from", "acc-2", "--to", "acc-1", "--amount", "125.00")
	require.NoError(t, err)
	assert.Contains(t, out, "Transfer posted:")
	assert.Contains(t, out, "Amount: $-125.00")
	assert.Contains(t, out, "Description: Transfer")

	acc, err := l.FindAccount(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(262500), acc.Balance)

	t.Run("missing_flags", func(t *testing.T) {
		_, err := runCLI(t, ts.URL, "transfer", "--from", "acc-2")
		assert.Error(t, err)
	})

	t.Run("bad_amount", func(t *testing.T) {
		_, err := runCLI(t, ts.URL, "transfer", "--from", "acc-2", "--to", "acc-1", "--amount", "1.001")
		assert.ErrorIs(t, err, errAmountPrecision)
	})
}

func TestPaymentCommand(t *testing.T) {
	ts, l := startServer(t)

	out, err := runCLI(t, ts.URL, "payment", "--from", "acc-1", "--iban", "DE89370400440532013000", "--amount", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "Payment posted:")
	assert.Contains(t, out, "Description: Payment to DE89370400440532013000")

	acc, err := l.FindAccount(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(250000-4200), acc.Balance)
}

func TestHealthCommand(t *testing.T) {
	ts, _ := startServer(t)

	out, err := runCLI(t, ts.URL, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "Server is healthy!")
	assert.Contains(t, out, "Ledger: true")
}

func TestStreamsCommand(t *testing.T) {
	ts, _ := startServer(t)

	out, err := runCLI(t, ts.URL, "streams")
	require.NoError(t, err)
	assert.Contains(t, out, "0 running streams")
}

func TestSubscribeCommand(t *testing.T) {
	ts, _ := startServer(t)

	t.Run("balance", func(t *testing.T) {
		out, err := runCLI(t, ts.URL, "subscribe", "balance", "--account", "acc-1")
		require.NoError(t, err)
		assert.Contains(t, out, "Subscribed to balance updates for acc-1")
		assert.Contains(t, out, "acc-1 balance $2500.00")
		assert.Contains(t, out, "complete")
		// Snapshot plus three capped updates plus complete.
		assert.Contains(t, out, "Received 5 events.")
	})

	t.Run("transactions", func(t *testing.T) {
		out, err := runCLI(t, ts.URL, "subscribe", "transactions", "--account", "acc-2")
		require.NoError(t, err)
		assert.Contains(t, out, "Live transaction update")
		assert.Contains(t, out, "Received 3 events.")
	})

	t.Run("unknown_account", func(t *testing.T) {
		out, err := runCLI(t, ts.URL, "subscribe", "balance", "--account", "acc-999")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Account not found")
		assert.Contains(t, out, "error: Account not found")
	})

	t.Run("unknown_kind", func(t *testing.T) {
		_, err := runCLI(t, ts.URL, "subscribe", "ledger", "--account", "acc-1")
		assert.Error(t, err)
	})
}
