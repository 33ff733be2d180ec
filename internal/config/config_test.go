package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/ledgerstream-go/internal/ledger"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/stream"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, ledger.BackendMemory, cfg.Ledger.Backend)
	assert.Equal(t, "file:ledgerstream.db", cfg.Ledger.SQLiteDSN)
	assert.Equal(t, stream.DefaultConfig(), cfg.Stream)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Empty(t, cfg.Telemetry.Endpoint)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"LEDGERSTREAM_LISTEN":                      "127.0.0.1:9000",
		"LEDGERSTREAM_LEDGER":                      "sqlite",
		"LEDGERSTREAM_SQLITE_DSN":                  "file:test.db",
		"LEDGERSTREAM_STREAM_BURST_MAX":            "4",
		"LEDGERSTREAM_STREAM_BALANCE_EVENT_CAP":    "10",
		"LEDGERSTREAM_STREAM_TRANSACTION_INTERVAL": "250ms",
		"LEDGERSTREAM_LOG_LEVEL":                   "debug",
		"LEDGERSTREAM_LOG_FORMAT":                  "json",
		"LEDGERSTREAM_OTEL_ENDPOINT":               "http://localhost:4318",
	})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, ledger.BackendSQLite, cfg.Ledger.Backend)
	assert.Equal(t, "file:test.db", cfg.Ledger.SQLiteDSN)
	assert.Equal(t, 4, cfg.Stream.BurstMax)
	assert.Equal(t, 2, cfg.Stream.BurstMin)
	assert.Equal(t, 10, cfg.Stream.BalanceEventCap)
	assert.Equal(t, 250*time.Millisecond, cfg.Stream.TransactionInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "http://localhost:4318", cfg.Telemetry.Endpoint)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unparseable_duration", map[string]string{"LEDGERSTREAM_STREAM_BURST_DELAY_MAX": "soon"}},
		{"unknown_backend", map[string]string{"LEDGERSTREAM_LEDGER": "oracle"}},
		{"postgres_without_dsn", map[string]string{"LEDGERSTREAM_LEDGER": "postgres"}},
		{"burst_bounds_inverted", map[string]string{"LEDGERSTREAM_STREAM_BURST_MIN": "9"}},
		{"bad_log_level", map[string]string{"LEDGERSTREAM_LOG_LEVEL": "loud"}},
		{"bad_log_format", map[string]string{"LEDGERSTREAM_LOG_FORMAT": "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.env)
			assert.Error(t, err)
		})
	}
}

func TestLoadFrom_StreamErrorsWrapSentinel(t *testing.T) {
	_, err := LoadFrom(map[string]string{"LEDGERSTREAM_STREAM_BALANCE_EVENT_CAP": "-1"})
	assert.ErrorIs(t, err, stream.ErrInvalidCap)
}
