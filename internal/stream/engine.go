package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rmacdonaldsmith/ledgerstream-go/internal/ledger"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/sse"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/subscription"
)

const tracerName = "github.com/rmacdonaldsmith/ledgerstream-go/internal/stream"

// Messages reported in error events.
const (
	MsgAccountNotFound = "Account not found"
	MsgInternal        = "Internal server error"
)

// Engine starts subscription streams against a shared ledger and tracks
// the sessions that are running.
type Engine struct {
	ledger ledger.Ledger
	config Config
	logger *slog.Logger
	tracer trace.Tracer
	intn   func(n int) int

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRand sets the source of randomness. intn must return a value in
// [0, n) and be safe for concurrent use.
func WithRand(intn func(n int) int) Option {
	return func(e *Engine) { e.intn = intn }
}

// WithTracer sets the tracer used for per-session spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// NewEngine creates an engine. Zero config fields take their defaults.
func NewEngine(l ledger.Ledger, config Config, opts ...Option) (*Engine, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stream config: %w", err)
	}

	e := &Engine{
		ledger:   l,
		config:   config,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
		intn:     rand.IntN,
		sessions: make(map[*Session]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "stream")
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Sessions lists the running sessions, oldest first.
func (e *Engine) Sessions() []SessionInfo {
	e.mu.Lock()
	out := make([]SessionInfo, 0, len(e.sessions))
	for s := range e.sessions {
		out = append(out, s.Info())
	}
	e.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// ActiveCount returns the number of running sessions.
func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Reject writes a single error event for a request that could not be
// routed and closes the sink.
func (e *Engine) Reject(ctx context.Context, sseID, message string, sink Sink) error {
	defer sink.Close()

	event, err := sse.NewEvent(sseID, sse.EventError, subscription.ErrorResult(message))
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := sink.Emit(event); err != nil {
		writeFailuresTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	eventsTotal.WithLabelValues("rejected", sse.EventError).Inc()
	e.logger.Debug("subscription rejected", "sse_id", sseID, "message", message)
	return nil
}

// Run serves route until the stream completes, fails or ctx is cancelled.
// It blocks for the lifetime of the stream and returns the finished
// session. The sink is closed before Run returns.
func (e *Engine) Run(ctx context.Context, route subscription.Route, sink Sink) *Session {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer sink.Close()

	s := newSession(route)
	kind := string(route.Kind)
	logger := e.logger.With("sse_id", s.SSEID(), "account_id", s.AccountID(), "kind", kind)

	ctx, span := e.tracer.Start(ctx, "stream."+kind, trace.WithAttributes(
		attribute.String("subscription.id", s.SSEID()),
		attribute.String("subscription.operation", route.Operation),
		attribute.String("account.id", s.AccountID()),
	))
	defer span.End()

	e.track(s)
	sessionsActive.WithLabelValues(kind).Inc()
	defer func() {
		e.untrack(s)
		sessionsActive.WithLabelValues(kind).Dec()
		sessionsTotal.WithLabelValues(kind, s.State().String()).Inc()
		sessionDuration.WithLabelValues(kind).Observe(time.Since(s.startedAt).Seconds())
		span.SetAttributes(attribute.Int("stream.emitted", s.Emitted()), attribute.String("stream.state", s.State().String()))
		logger.Info("stream finished", "state", s.State().String(), "emitted", s.Emitted())
	}()

	logger.Debug("stream starting")
	err := e.serve(ctx, s, sink, cancel)

	switch {
	case err == nil, errors.Is(err, ErrSessionEnded):
	case errors.Is(err, ErrWriteFailed):
		s.setState(StateCancelled)
		logger.Warn("stream cancelled after write failure", "error", err)
	case ctx.Err() != nil:
		s.setState(StateCancelled)
		logger.Debug("stream cancelled by client")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.fail(ctx, s, sink, err, logger)
	}
	return s
}

func (e *Engine) serve(ctx context.Context, s *Session, sink Sink, cancel context.CancelFunc) error {
	acc, err := e.ledger.FindAccount(ctx, s.AccountID())
	if err != nil {
		return err
	}

	s.setState(StateEmitting)
	switch s.Kind() {
	case subscription.KindAccountBalanceUpdated:
		err = e.streamBalance(ctx, s, sink, cancel, acc)
	case subscription.KindTransactionAdded:
		err = e.streamTransactions(ctx, s, sink, cancel)
	default:
		err = fmt.Errorf("%w: %s", subscription.ErrUnknownOperation, s.Kind())
	}
	if err != nil {
		return err
	}

	s.setState(StateCompleting)
	if err := e.emit(ctx, s, sink, cancel, sse.Complete(s.SSEID())); err != nil {
		return err
	}
	s.setState(StateCompleted)
	return nil
}

// streamBalance emits the current balance, then bursts of payments until
// BalanceEventCap payments have been emitted.
func (e *Engine) streamBalance(ctx context.Context, s *Session, sink Sink, cancel context.CancelFunc, acc ledger.Account) error {
	kind := string(s.Kind())
	if err := e.emitNext(ctx, s, sink, cancel, FieldAccountBalanceUpdated, BalanceUpdate{ID: acc.ID, Balance: acc.Balance}); err != nil {
		return err
	}

	cfg := e.config
	for s.updates < cfg.BalanceEventCap {
		burst := cfg.BurstMin + e.intn(cfg.BurstMax-cfg.BurstMin+1)
		for i := 0; i < burst && s.updates < cfg.BalanceEventCap; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			// The credit is persisted before its event is sent. A failed
			// write leaves that credit in the ledger unseen by the client.
			payment := cfg.PaymentMin + int64(e.intn(int(cfg.PaymentMax-cfg.PaymentMin+1)))
			balance, err := e.ledger.AdjustBalance(ctx, acc.ID, payment)
			if err != nil {
				return err
			}
			ledgerMutationsTotal.WithLabelValues(kind).Inc()

			update := BalanceUpdate{
				ID:          acc.ID,
				Balance:     balance,
				Payment:     payment,
				Description: paymentDescription(payment),
				Timestamp:   ledger.FormatDate(time.Now()),
			}
			if err := e.emitNext(ctx, s, sink, cancel, FieldAccountBalanceUpdated, update); err != nil {
				return err
			}
			s.updates++
		}

		if s.updates >= cfg.BalanceEventCap {
			break
		}
		if err := sleep(ctx, e.between(cfg.BurstDelayMin, cfg.BurstDelayMax)); err != nil {
			return err
		}
	}
	return nil
}

// streamTransactions posts TransactionCount randomized transactions, one
// per TransactionInterval tick.
func (e *Engine) streamTransactions(ctx context.Context, s *Session, sink Sink, cancel context.CancelFunc) error {
	kind := string(s.Kind())
	cfg := e.config
	for s.updates < cfg.TransactionCount {
		if err := sleep(ctx, cfg.TransactionInterval); err != nil {
			return err
		}

		amount := cfg.TransactionAmountMin + int64(e.intn(int(cfg.TransactionAmountMax-cfg.TransactionAmountMin+1)))
		rec, err := e.ledger.PostTransaction(ctx, s.AccountID(), amount, "Live transaction update")
		if err != nil {
			return err
		}
		ledgerMutationsTotal.WithLabelValues(kind).Inc()

		if err := e.emitNext(ctx, s, sink, cancel, FieldTransactionAdded, transactionUpdate(rec)); err != nil {
			return err
		}
		s.updates++
	}
	return nil
}

func (e *Engine) emitNext(ctx context.Context, s *Session, sink Sink, cancel context.CancelFunc, field string, value any) error {
	event, err := sse.Next(s.SSEID(), subscription.DataResult(field, value))
	if err != nil {
		return err
	}
	return e.emit(ctx, s, sink, cancel, event)
}

// emit writes one event. No frame is written once ctx is done or the
// session has ended, and a failed write cancels the session.
func (e *Engine) emit(ctx context.Context, s *Session, sink Sink, cancel context.CancelFunc, event sse.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.Active() {
		return ErrSessionEnded
	}
	if err := sink.Emit(event); err != nil {
		cancel()
		writeFailuresTotal.WithLabelValues(string(s.Kind())).Inc()
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	s.recordEmit()
	eventsTotal.WithLabelValues(string(s.Kind()), event.Event).Inc()
	return nil
}

// fail reports err in-band as a single error event.
func (e *Engine) fail(ctx context.Context, s *Session, sink Sink, err error, logger *slog.Logger) {
	message := MsgInternal
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		message = MsgAccountNotFound
	case errors.Is(err, subscription.ErrUnknownOperation):
		message = subscription.Message(err)
	default:
		logger.Error("stream failed", "error", err)
	}

	event, mErr := sse.NewEvent(s.SSEID(), sse.EventError, subscription.ErrorResult(message))
	if mErr != nil {
		s.setState(StateErrored)
		return
	}
	if wErr := e.emit(ctx, s, sink, func() {}, event); wErr != nil {
		s.setState(StateCancelled)
		return
	}
	s.setState(StateErrored)
}

// between returns a uniformly random duration in [lo, hi].
func (e *Engine) between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(e.intn(int(hi-lo)+1))
}

func (e *Engine) track(s *Session) {
	e.mu.Lock()
	e.sessions[s] = struct{}{}
	e.mu.Unlock()
}

func (e *Engine) untrack(s *Session) {
	e.mu.Lock()
	delete(e.sessions, s)
	e.mu.Unlock()
}

// sleep waits for d or until ctx is done, whichever comes first. The timer
// is released either way.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
