package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Event types sent on a subscription stream.
const (
	EventNext     = "next"
	EventError    = "error"
	EventComplete = "complete"
)

// Subscription paths and operation names understood by the server.
const (
	SubscriptionPath = "/api/graphql-sse"

	OperationAccountBalance = "SubscribeToAccountBalance"
	OperationTransactions   = "SubscribeToTransactions"
)

const (
	balanceQuery      = `subscription SubscribeToAccountBalance($accountId: ID!) { accountBalanceUpdated(accountId: $accountId) { id balance } }`
	transactionsQuery = `subscription SubscribeToTransactions($accountId: ID!) { transactionAdded(accountId: $accountId) { id date description amount balanceAfter } }`
)

// errStreamFinished stops parsing after a terminal event.
var errStreamFinished = errors.New("stream finished")

// maxFrameSize bounds a single line of the event stream.
const maxFrameSize = 1 << 20

// Event is one frame of a subscription stream.
type Event struct {
	ID    string
	Event string
	// Data is nil when the frame carried no data line.
	Data json.RawMessage
}

// Decode unmarshals the GraphQL envelope carried by the event.
func (e Event) Decode() (*GraphQLResponse, error) {
	if e.Data == nil {
		return nil, fmt.Errorf("%s event carries no data", e.Event)
	}
	var resp GraphQLResponse
	if err := json.Unmarshal(e.Data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse event data: %w", err)
	}
	return &resp, nil
}

// DecodeField unmarshals data.<field> of a next event into v.
func (e Event) DecodeField(field string, v any) error {
	resp, err := e.Decode()
	if err != nil {
		return err
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return fmt.Errorf("failed to parse event data: %w", err)
	}
	raw, ok := data[field]
	if !ok {
		return fmt.Errorf("event has no %q field", field)
	}
	return json.Unmarshal(raw, v)
}

// ErrorMessage returns the first GraphQL error message of an error event.
func (e Event) ErrorMessage() string {
	resp, err := e.Decode()
	if err != nil || len(resp.Errors) == 0 {
		return ""
	}
	return resp.Errors[0].Message
}

// ParseEvents reads an event stream and calls fn for every complete
// frame. Comment lines and unknown fields are skipped. Reading stops at
// the first error returned by fn.
func ParseEvents(r io.Reader, fn func(Event) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	var (
		current Event
		data    [][]byte
		started bool
	)
	dispatch := func() error {
		if !started {
			return nil
		}
		if data != nil {
			current.Data = json.RawMessage(bytes.Join(data, []byte("\n")))
		}
		err := fn(current)
		current, data, started = Event{}, nil, false
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if err := dispatch(); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "id":
			current.ID = value
		case "event":
			current.Event = value
		case "data":
			data = append(data, []byte(value))
		default:
			continue
		}
		started = true
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return dispatch()
}

// StreamConfig configures a subscription
type StreamConfig struct {
	// BufferSize for the event channel
	BufferSize int
}

// SetDefaults sets reasonable default values for StreamConfig
func (sc *StreamConfig) SetDefaults() {
	if sc.BufferSize == 0 {
		sc.BufferSize = 100
	}
}

// Subscription is one open subscription stream. Events is closed after the
// terminal complete or error event, on a transport error, or after Close.
type Subscription struct {
	events   chan Event
	errors   chan error
	done     chan struct{}
	cancel   context.CancelFunc
	response *http.Response
}

// Subscribe opens a subscription stream. Requests the server rejects
// before streaming fail here with an *APIError.
func (c *Client) Subscribe(ctx context.Context, req SubscriptionRequest, config StreamConfig) (*Subscription, error) {
	config.SetDefaults()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal subscription: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	streamURL := c.baseURL.ResolveReference(&url.URL{Path: SubscriptionPath})
	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodPost, streamURL.String(), bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create subscription request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to connect to stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		defer cancel()
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, parseAPIError(resp.StatusCode, bodyBytes)
	}

	sub := &Subscription{
		events:   make(chan Event, config.BufferSize),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
		cancel:   cancel,
		response: resp,
	}
	go sub.read(streamCtx)
	return sub, nil
}

// SubscribeBalance subscribes to balance updates of one account.
func (c *Client) SubscribeBalance(ctx context.Context, accountID string, config StreamConfig) (*Subscription, error) {
	return c.Subscribe(ctx, SubscriptionRequest{
		Query:         balanceQuery,
		OperationName: OperationAccountBalance,
		Variables:     map[string]any{"accountId": accountID},
	}, config)
}

// SubscribeTransactions subscribes to new transactions of one account.
func (c *Client) SubscribeTransactions(ctx context.Context, accountID string, config StreamConfig) (*Subscription, error) {
	return c.Subscribe(ctx, SubscriptionRequest{
		Query:         transactionsQuery,
		OperationName: OperationTransactions,
		Variables:     map[string]any{"accountId": accountID},
	}, config)
}

// Events returns the channel for receiving events
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Errors returns the channel for receiving transport errors
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Done returns a channel that's closed when streaming ends
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close stops the subscription. The server sees the disconnect and ends
// the stream.
func (s *Subscription) Close() error {
	s.cancel()
	<-s.done
	return nil
}

func (s *Subscription) read(ctx context.Context) {
	defer close(s.done)
	defer close(s.errors)
	defer close(s.events)
	defer s.response.Body.Close()
	defer s.cancel()

	err := ParseEvents(s.response.Body, func(e Event) error {
		select {
		case s.events <- e:
		case <-ctx.Done():
			return ctx.Err()
		}
		if e.Event == EventComplete || e.Event == EventError {
			return errStreamFinished
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStreamFinished) && ctx.Err() == nil {
		s.errors <- err
	}
}
