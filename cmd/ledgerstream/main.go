package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rmacdonaldsmith/ledgerstream-go/internal/config"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/httpapi"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/ledger"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/logging"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/stream"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/telemetry"
)

const (
	// Application info
	appName    = "LedgerStream"
	appVersion = "1.0.0"

	serviceName     = "ledgerstream"
	shutdownTimeout = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, nil); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// run starts the server and blocks until ctx is cancelled. When ready is
// non-nil it receives the bound listen address once the server accepts
// connections.
func run(ctx context.Context, args []string, stdout io.Writer, ready chan<- string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Command-line flags override the environment.
	flags := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	flags.SetOutput(stdout)
	var (
		listenAddr  = flags.String("listen", cfg.Server.Addr, "Listen address for HTTP clients")
		backend     = flags.String("ledger", cfg.Ledger.Backend, "Ledger backend: memory, sqlite or postgres")
		fixtures    = flags.String("fixtures", cfg.Ledger.FixturesPath, "Path to a TOML fixtures file")
		logLevel    = flags.String("log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
		showVersion = flags.Bool("version", false, "Show version and exit")
	)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	// Handle version flag
	if *showVersion {
		fmt.Fprintf(stdout, "%s v%s\n", appName, appVersion)
		return nil
	}

	cfg.Server.Addr = *listenAddr
	cfg.Ledger.Backend = *backend
	cfg.Ledger.FixturesPath = *fixtures
	cfg.LogLevel = *logLevel
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	logger.Info("starting "+appName, "version", appVersion, "listen", cfg.Server.Addr, "ledger", cfg.Ledger.Backend)

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, appVersion, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("error flushing traces", "error", err)
		}
	}()

	l, err := ledger.Open(ctx, cfg.Ledger)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer func() {
		logger.Info("closing ledger")
		if err := l.Close(); err != nil {
			logger.Warn("error closing ledger", "error", err)
		}
	}()

	engine, err := stream.NewEngine(l, cfg.Stream, stream.WithLogger(logging.Component(logger, "stream")))
	if err != nil {
		return err
	}

	server := httpapi.NewServer(l, engine, cfg.Server, logger)

	listener, err := net.Listen("tcp", server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", server.Addr(), err)
	}

	served := make(chan error, 1)
	go func() {
		served <- server.Serve(listener)
	}()

	logger.Info(appName+" started", "addr", listener.Addr().String(), "subscriptions", httpapi.SubscriptionPath)
	if ready != nil {
		ready <- listener.Addr().String()
	}

	select {
	case err := <-served:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully", "active_streams", engine.ActiveCount())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("error during graceful stop: %w", err)
	}
	if err := <-served; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info(appName + " stopped")
	return nil
}
