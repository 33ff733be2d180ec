package stream

import (
	"sync"
	"time"

	"github.com/rmacdonaldsmith/ledgerstream-go/internal/subscription"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateStarting State = iota
	StateEmitting
	StateCompleting
	StateCompleted
	StateErrored
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateEmitting:
		return "emitting"
	case StateCompleting:
		return "completing"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further events can be emitted.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateErrored || s == StateCancelled
}

// Session is the transient state of one subscription stream. It is owned
// by the goroutine running the stream; other goroutines only read it.
type Session struct {
	mu        sync.Mutex
	route     subscription.Route
	startedAt time.Time
	state     State
	emitted   int
	updates   int
}

func newSession(route subscription.Route) *Session {
	return &Session{route: route, startedAt: time.Now(), state: StateStarting}
}

// SSEID is the id carried by every event of the session.
func (s *Session) SSEID() string { return s.route.SubscriptionID }

// AccountID is the account the session streams.
func (s *Session) AccountID() string { return s.route.AccountID() }

// Kind is the stream kind.
func (s *Session) Kind() subscription.Kind { return s.route.Kind }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active reports whether the session may still emit events.
func (s *Session) Active() bool {
	return !s.State().Terminal()
}

// Emitted returns the number of frames written so far.
func (s *Session) Emitted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emitted
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) recordEmit() {
	s.mu.Lock()
	s.emitted++
	s.mu.Unlock()
}

// SessionInfo is a point-in-time view of a session.
type SessionInfo struct {
	SSEID     string    `json:"sseId"`
	AccountID string    `json:"accountId"`
	Kind      string    `json:"kind"`
	Operation string    `json:"operation"`
	State     string    `json:"state"`
	Active    bool      `json:"active"`
	Emitted   int       `json:"emitted"`
	StartedAt time.Time `json:"startedAt"`
}

// Info snapshots the session.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		SSEID:     s.route.SubscriptionID,
		AccountID: s.route.AccountID(),
		Kind:      string(s.route.Kind),
		Operation: s.route.Operation,
		State:     s.state.String(),
		Active:    !s.state.Terminal(),
		Emitted:   s.emitted,
		StartedAt: s.startedAt,
	}
}
