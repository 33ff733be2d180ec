package httpapi

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIntegration_StreamOverNetwork subscribes through a real listener and
// reads frames as they are flushed.
func TestIntegration_StreamOverNetwork(t *testing.T) {
	setup := NewTestServerSetup(t, fastStreamConfig())
	ts := httptest.NewServer(setup.Server.Handler())
	defer ts.Close()

	body := subscribeBody(t, transactionsQuery, "SubscribeToTransactions", "net-1", map[string]any{"accountId": "acc-1"})
	resp, err := ts.Client().Post(ts.URL+SubscriptionPath, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var events []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, "event: ") {
			events = append(events, strings.TrimPrefix(line, "event: "))
		}
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{"next", "next", "next", "complete"}, events)
}

// TestIntegration_ClientDisconnectStopsStream verifies that closing the
// connection ends the session and no further ledger mutations happen.
func TestIntegration_ClientDisconnectStopsStream(t *testing.T) {
	cfg := fastStreamConfig()
	cfg.BalanceEventCap = 300
	cfg.BurstDelayMin = 10 * time.Millisecond
	cfg.BurstDelayMax = 20 * time.Millisecond
	setup := NewTestServerSetup(t, cfg)
	ts := httptest.NewServer(setup.Server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	body := subscribeBody(t, balanceQuery, "SubscribeToAccountBalance", "net-2", map[string]any{"accountId": "acc-1"})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.URL+SubscriptionPath, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Read the snapshot and a few payments.
	scanner := bufio.NewScanner(resp.Body)
	frames := 0
	for frames < 4 && scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "event: next") {
			frames++
		}
	}
	require.Equal(t, 4, frames)
	assert.Greater(t, setup.Balance(t, "acc-1"), int64(250000))

	cancel()
	require.Eventually(t, func() bool { return setup.Engine.ActiveCount() == 0 }, 2*time.Second, 5*time.Millisecond)

	settled := setup.Balance(t, "acc-1")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, setup.Balance(t, "acc-1"))
}

// TestIntegration_StopEndsOpenStreams verifies that a graceful stop cancels
// running subscriptions instead of waiting for them to finish.
func TestIntegration_StopEndsOpenStreams(t *testing.T) {
	cfg := fastStreamConfig()
	cfg.BalanceEventCap = 1000
	cfg.BurstDelayMin = 10 * time.Millisecond
	cfg.BurstDelayMax = 20 * time.Millisecond
	setup := NewTestServerSetup(t, cfg)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- setup.Server.Serve(listener) }()

	body := subscribeBody(t, balanceQuery, "SubscribeToAccountBalance", "stop-1", map[string]any{"accountId": "acc-1"})
	resp, err := http.Post("http://"+listener.Addr().String()+SubscriptionPath, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "event: next") {
			break
		}
	}
	require.Equal(t, 1, setup.Engine.ActiveCount())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, setup.Server.Stop(ctx))

	assert.Equal(t, 0, setup.Engine.ActiveCount())
	select {
	case err := <-served:
		assert.True(t, errors.Is(err, http.ErrServerClosed))
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Stop")
	}
}
