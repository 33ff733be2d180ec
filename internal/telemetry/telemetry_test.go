package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := Setup(context.Background(), "ledgerstream-test", "test", Config{Enabled: true})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetup_NoopWhenDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), "ledgerstream-test", "test", Config{Endpoint: "http://localhost:4318"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, shutdown(ctx))
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address: nothing is exported because no span is ended.
	shutdown, err := Setup(context.Background(), "ledgerstream-test", "test", Config{Endpoint: "http://192.0.2.1:4318", Enabled: true})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
