package tsproto

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tidwall/gjson"
)

// Client implements the sequenced request/response discipline over a
// transport. Arbitrary concurrent callers each own one pending entry;
// correlation relies solely on request_seq, never on arrival order.
type Client struct {
	transport *Transport
	log       *slog.Logger

	mu       sync.Mutex
	pending  map[int64]chan *response
	handlers map[string][]EventHandler

	nextSeq atomic.Int64
	closed  atomic.Bool
	done    chan struct{}
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithLogger sets the structured logger used for protocol diagnostics.
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a client over the given transport and starts its
// reader loop.
func NewClient(t *Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport: t,
		log:       slog.Default(),
		pending:   make(map[int64]chan *response),
		handlers:  make(map[string][]EventHandler),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	go c.readLoop()

	return c
}

// Call sends a request and suspends the caller until its matching response
// arrives, the context is done, or the transport terminates. Safe for
// concurrent use; responses may resolve in any order.
func (c *Client) Call(ctx context.Context, command string, args any, result any) error {
	if c.closed.Load() {
		return ErrServerTerminated
	}

	seq := c.nextSeq.Add(1)
	ch := make(chan *response, 1)

	c.mu.Lock()
	c.pending[seq] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
	}()

	req := &request{
		Seq:       seq,
		Type:      "request",
		Command:   command,
		Arguments: args,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	if err := c.transport.WriteLine(data); err != nil {
		return fmt.Errorf("send %s: %w", command, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrServerTerminated
	case resp := <-ch:
		if !resp.Success {
			return &ServiceError{Command: command, Message: resp.Message}
		}
		if result != nil && len(resp.Body) > 0 {
			if err := json.Unmarshal(resp.Body, result); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, command, err)
			}
		}
		return nil
	}
}

// Notify sends a request that the service does not answer (open, close).
// A sequence number is still consumed so the session-unique invariant
// holds across all outgoing messages.
func (c *Client) Notify(command string, args any) error {
	if c.closed.Load() {
		return ErrServerTerminated
	}

	req := &request{
		Seq:       c.nextSeq.Add(1),
		Type:      "request",
		Command:   command,
		Arguments: args,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.transport.WriteLine(data)
}

// OnEvent registers a handler for a named event. Handlers run in their own
// goroutine so the reader loop never blocks on a listener.
func (c *Client) OnEvent(event string, handler EventHandler) {
	c.mu.Lock()
	c.handlers[event] = append(c.handlers[event], handler)
	c.mu.Unlock()
}

// readLoop is the single background reader. It routes responses to pending
// callers by request_seq and dispatches events by name. Desync (a response
// with no pending entry) is logged and discarded, never fatal.
func (c *Client) readLoop() {
	defer c.terminate()

	for {
		line, err := c.transport.ReadLine()
		if err != nil {
			return
		}

		// tsserver output interleaves Content-Length headers and blank
		// lines with the JSON payload lines; only payload lines matter.
		if len(line) == 0 || line[0] != '{' {
			continue
		}

		probe := gjson.GetManyBytes(line, "type", "request_seq", "event")
		switch probe[0].String() {
		case "response":
			c.handleResponse(probe[1].Int(), line)
		case "event":
			c.handleEvent(probe[2].String(), line)
		}
	}
}

// handleResponse delivers a response line to its pending caller.
func (c *Client) handleResponse(requestSeq int64, line []byte) {
	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		c.log.Warn("tsserver: undecodable response line", "error", err)
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[resp.RequestSeq]
	if ok {
		delete(c.pending, resp.RequestSeq)
	}
	c.mu.Unlock()

	if !ok {
		c.log.Debug("tsserver: response with no pending request",
			"request_seq", requestSeq, "command", resp.Command)
		return
	}

	select {
	case ch <- &resp:
	default:
	}
}

// handleEvent dispatches an event line to registered listeners.
func (c *Client) handleEvent(event string, line []byte) {
	var msg struct {
		Event string          `json:"event"`
		Body  json.RawMessage `json:"body,omitempty"`
	}
	if err := json.Unmarshal(line, &msg); err != nil {
		return
	}

	c.mu.Lock()
	handlers := c.handlers[event]
	c.mu.Unlock()

	for _, h := range handlers {
		go h(event, msg.Body)
	}
}

// terminate fails every outstanding caller with ErrServerTerminated and
// marks the client closed. Runs exactly once, when the reader loop exits.
func (c *Client) terminate() {
	if c.closed.Swap(true) {
		return
	}

	close(c.done)

	c.mu.Lock()
	n := len(c.pending)
	c.pending = make(map[int64]chan *response)
	c.mu.Unlock()

	if n > 0 {
		c.log.Warn("tsserver terminated with requests outstanding", "count", n)
	}
}

// Close shuts down the client and its transport. Idempotent.
func (c *Client) Close() error {
	err := c.transport.Close()
	c.terminate()
	return err
}

// IsClosed returns true if the client is no longer usable.
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}
