package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmacdonaldsmith/ledgerstream-go/internal/ledger"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/stream"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/subscription"
)

// Path of the GraphQL-over-SSE subscription endpoint.
const SubscriptionPath = "/api/graphql-sse"

var (
	// ErrMissingAddr is returned when the listen address is empty.
	ErrMissingAddr = errors.New("listen address cannot be empty")
	// ErrInvalidTimeout is returned for negative timeouts.
	ErrInvalidTimeout = errors.New("timeouts cannot be negative")
	// ErrInvalidBodyLimit is returned when MaxBodyBytes is not positive.
	ErrInvalidBodyLimit = errors.New("max body size must be positive")
)

// Config holds server configuration
type Config struct {
	Addr string `env:"LISTEN" envDefault:":4000"`

	ReadTimeout time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	IdleTimeout time.Duration `env:"IDLE_TIMEOUT" envDefault:"120s"`

	// MaxBodyBytes bounds request bodies on every endpoint.
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"1048576"`
}

// SetDefaults fills zero-valued fields.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":4000"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120 * time.Second
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = 1 << 20
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c Config) Validate() error {
	if c.Addr == "" {
		return ErrMissingAddr
	}
	if c.ReadTimeout < 0 || c.IdleTimeout < 0 {
		return ErrInvalidTimeout
	}
	if c.MaxBodyBytes <= 0 {
		return ErrInvalidBodyLimit
	}
	return nil
}

// Server represents the HTTP API server
type Server struct {
	ledger     ledger.Ledger
	engine     *stream.Engine
	handlers   *Handlers
	middleware *Middleware
	server     *http.Server
	logger     *slog.Logger

	// baseCtx parents every request context; Stop cancels it.
	baseCtx    context.Context
	baseCancel context.CancelFunc
}

// NewServer creates a new HTTP API server
func NewServer(l ledger.Ledger, engine *stream.Engine, config Config, logger *slog.Logger) *Server {
	config.SetDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "httpapi")

	server := &Server{
		ledger:     l,
		engine:     engine,
		handlers:   NewHandlers(l, engine, subscription.DefaultRouter(), config.MaxBodyBytes, logger),
		middleware: NewMiddleware(logger),
		logger:     logger,
	}
	server.baseCtx, server.baseCancel = context.WithCancel(context.Background())

	// WriteTimeout stays zero: subscription streams outlive any fixed
	// response deadline.
	server.server = &http.Server{
		Addr:              config.Addr,
		Handler:           server.setupRoutes(),
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       config.IdleTimeout,
		MaxHeaderBytes:    1 << 20, // 1MB
		BaseContext:       func(net.Listener) context.Context { return server.baseCtx },
	}
	return server
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Serve accepts connections on l.
func (s *Server) Serve(l net.Listener) error {
	return s.server.Serve(l)
}

// Stop gracefully stops the HTTP server. Open subscription streams see
// their request context cancelled.
func (s *Server) Stop(ctx context.Context) error {
	s.baseCancel()
	return s.server.Shutdown(ctx)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)
	r.Use(s.middleware.Recovery, s.middleware.Logging, s.middleware.Metrics, s.middleware.CORS)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Subscription endpoint. OPTIONS is routed so the CORS middleware can
	// answer preflight requests.
	r.HandleFunc(SubscriptionPath, s.handlers.Subscribe).Methods(http.MethodPost, http.MethodOptions)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.middleware.ContentType)

	// Account endpoints
	api.HandleFunc("/accounts", s.handlers.ListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}", s.handlers.GetAccount).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}/transactions", s.handlers.ListTransactions).Methods(http.MethodGet)

	// Mutation endpoints
	api.HandleFunc("/transfers", s.handlers.CreateTransfer).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/payments", s.handlers.CreatePayment).Methods(http.MethodPost, http.MethodOptions)

	// Admin endpoints
	api.HandleFunc("/admin/streams", s.handlers.AdminListStreams).Methods(http.MethodGet)

	// Health endpoint
	api.HandleFunc("/health", s.handlers.Health).Methods(http.MethodGet)

	// Root endpoint with API info
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)

	return r
}

// handleRoot provides API information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"service":     "LedgerStream HTTP API",
		"version":     "1.0.0",
		"description": "Account ledger with live GraphQL-over-SSE subscriptions",
		"endpoints": map[string]interface{}{
			"subscriptions": map[string]string{
				"subscribe": "POST " + SubscriptionPath,
			},
			"accounts": map[string]string{
				"list":         "GET /api/v1/accounts",
				"get":          "GET /api/v1/accounts/{id}",
				"transactions": "GET /api/v1/accounts/{id}/transactions?limit={limit}&offset={offset}",
			},
			"mutations": map[string]string{
				"transfer": "POST /api/v1/transfers",
				"payment":  "POST /api/v1/payments",
			},
			"admin": map[string]string{
				"streams": "GET /api/v1/admin/streams",
			},
			"health":  "GET /api/v1/health",
			"metrics": "GET /metrics",
		},
		"operations": operationNames(),
	}

	writeJSON(w, info, http.StatusOK)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, "Not found", http.StatusNotFound)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
}

func operationNames() []string {
	ops := subscription.DefaultRouter().Operations()
	names := make([]string, 0, len(ops))
	for _, op := range ops {
		names = append(names, op.Name)
	}
	return names
}

// writeError writes an error response as JSON
func writeError(w http.ResponseWriter, message string, statusCode int) {
	errorResp := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	writeJSON(w, errorResp, statusCode)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Warn("failed to encode response", "error", err)
	}
}
