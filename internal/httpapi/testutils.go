package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/ledgerstream-go/internal/ledger"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/stream"
)

// TestServerSetup holds common test dependencies
type TestServerSetup struct {
	Ledger ledger.Ledger
	Engine *stream.Engine
	Server *Server
}

// fastStreamConfig keeps stream tests quick while exercising every stage.
func fastStreamConfig() stream.Config {
	return stream.Config{
		BurstMin:             2,
		BurstMax:             3,
		BurstDelayMin:        time.Millisecond,
		BurstDelayMax:        2 * time.Millisecond,
		PaymentMin:           100,
		PaymentMax:           800,
		BalanceEventCap:      5,
		TransactionCount:     3,
		TransactionInterval:  2 * time.Millisecond,
		TransactionAmountMin: -5000,
		TransactionAmountMax: 4999,
	}
}

// NewTestServerSetup creates a server over a seeded memory ledger
func NewTestServerSetup(t *testing.T, streamConfig stream.Config) *TestServerSetup {
	t.Helper()

	l, err := ledger.Open(context.Background(), ledger.Config{Backend: ledger.BackendMemory})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := stream.NewEngine(l, streamConfig, stream.WithLogger(logger))
	require.NoError(t, err)

	server := NewServer(l, engine, Config{Addr: ":0"}, logger)
	require.NotNil(t, server)

	return &TestServerSetup{Ledger: l, Engine: engine, Server: server}
}

// Do serves one request through the full router and middleware chain.
func (setup *TestServerSetup) Do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	setup.Server.Handler().ServeHTTP(rec, req)
	return rec
}

// Balance returns the current balance of an account.
func (setup *TestServerSetup) Balance(t *testing.T, accountID string) int64 {
	t.Helper()
	acc, err := setup.Ledger.FindAccount(context.Background(), accountID)
	require.NoError(t, err)
	return acc.Balance
}

// frame is one parsed SSE frame.
type frame struct {
	ID    string
	Event string
	Data  string
}

// parseFrames splits an event stream body into frames.
func parseFrames(t *testing.T, body string) []frame {
	t.Helper()

	var frames []frame
	for _, block := range strings.Split(body, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		var f frame
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "id: "):
				f.ID = strings.TrimPrefix(line, "id: ")
			case strings.HasPrefix(line, "event: "):
				f.Event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				f.Data += strings.TrimPrefix(line, "data: ")
			default:
				t.Fatalf("unexpected line in event stream: %q", line)
			}
		}
		frames = append(frames, f)
	}
	return frames
}

// isEventStream reports whether a response opened an event stream.
func isEventStream(h http.Header) bool {
	return strings.HasPrefix(h.Get("Content-Type"), "text/event-stream")
}
