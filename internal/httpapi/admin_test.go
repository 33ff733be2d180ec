package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	setup := NewTestServerSetup(t, fastStreamConfig())

	t.Run("healthy", func(t *testing.T) {
		rec := setup.Do(t, http.MethodGet, "/api/v1/health", "")

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[HealthResponse](t, rec)
		assert.True(t, resp.Healthy)
		assert.True(t, resp.LedgerHealthy)
		assert.Zero(t, resp.ActiveStreams)
	})

	t.Run("ledger_closed", func(t *testing.T) {
		require.NoError(t, setup.Ledger.Close())

		rec := setup.Do(t, http.MethodGet, "/api/v1/health", "")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		resp := decodeBody[HealthResponse](t, rec)
		assert.False(t, resp.Healthy)
		assert.False(t, resp.LedgerHealthy)
		assert.Contains(t, resp.Message, "Ledger unavailable")
	})
}

func TestAdminListStreams(t *testing.T) {
	cfg := fastStreamConfig()
	cfg.TransactionInterval = time.Hour
	setup := NewTestServerSetup(t, cfg)
	ts := httptest.NewServer(setup.Server.Handler())
	defer ts.Close()

	rec := setup.Do(t, http.MethodGet, "/api/v1/admin/streams", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decodeBody[AdminStreamsResponse](t, rec).Count)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	body := subscribeBody(t, transactionsQuery, "SubscribeToTransactions", "admin-1", map[string]any{"accountId": "acc-1"})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.URL+SubscriptionPath, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return setup.Engine.ActiveCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	rec = setup.Do(t, http.MethodGet, "/api/v1/admin/streams", "")
	streams := decodeBody[AdminStreamsResponse](t, rec)
	require.Equal(t, 1, streams.Count)
	assert.Equal(t, "admin-1", streams.Streams[0].SSEID)
	assert.Equal(t, "acc-1", streams.Streams[0].AccountID)
	assert.Equal(t, "SubscribeToTransactions", streams.Streams[0].Operation)
	assert.True(t, streams.Streams[0].Active)

	health := decodeBody[HealthResponse](t, setup.Do(t, http.MethodGet, "/api/v1/health", ""))
	assert.Equal(t, 1, health.ActiveStreams)

	cancel()
	require.Eventually(t, func() bool { return setup.Engine.ActiveCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}
