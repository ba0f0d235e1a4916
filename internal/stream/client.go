// Package stream consumes the backend's server-sent event stream for one
// session and exposes the received events as an append-only typed message
// log. One client serves exactly one session; reconnection is never
// attempted — callers needing a retry create a new session.
package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/morahq/mora/internal/events"
	"github.com/morahq/mora/internal/log"
	"github.com/morahq/mora/internal/metrics"
)

// State is the connection state of the stream client.
type State string

const (
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

// Client opens one event-stream connection scoped to a session id and
// appends each decoded wire event to its message log. Prior log entries are
// never mutated or removed; consumers fold incrementally from their
// last-seen index via Since.
type Client struct {
	base   string
	http   *http.Client
	logger zerolog.Logger

	mu       sync.Mutex
	messages []events.Message
	state    State
	errMsg   string
	closed   bool
	cancel   context.CancelFunc
	body     io.Closer

	done    chan struct{}
	updates chan struct{}
}

// New creates a stream client against the given API base URL. The underlying
// HTTP client carries no overall timeout: the stream is long-lived and its
// lifetime is bounded by the caller's context and Close.
func New(base string) *Client {
	return &Client{
		base:    strings.TrimRight(base, "/"),
		http:    &http.Client{},
		logger:  log.WithComponent("stream"),
		state:   StateDisconnected,
		done:    make(chan struct{}),
		updates: make(chan struct{}, 1),
	}
}

// Open connects to the session's event stream and starts consuming it in the
// background. An empty session id performs no connection attempt and leaves
// the client disconnected with no error. Open may be called at most once.
func (c *Client) Open(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		c.logger.Debug().Str("event", "stream.skip").Msg("no session id, not connecting")
		c.teardown("")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	url := fmt.Sprintf("%s/api/session/%s/stream", c.base, sessionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		c.teardown(fmt.Sprintf("connection failed: %v", err))
		return fmt.Errorf("stream: build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	res, err := c.http.Do(req)
	if err != nil {
		cancel()
		c.teardown("connection failed")
		return fmt.Errorf("stream: connect: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		_ = res.Body.Close()
		cancel()
		msg := fmt.Sprintf("connection failed: unexpected status %d", res.StatusCode)
		c.teardown(msg)
		return fmt.Errorf("stream: connect: unexpected status %d", res.StatusCode)
	}

	c.mu.Lock()
	if c.closed {
		// Torn down while connecting; release the connection immediately.
		c.mu.Unlock()
		_ = res.Body.Close()
		cancel()
		return nil
	}
	c.state = StateConnected
	c.cancel = cancel
	c.body = res.Body
	c.mu.Unlock()

	metrics.IncActiveStreams()
	c.logger.Info().
		Str("event", "stream.open").
		Str(log.FieldSessionID, sessionID).
		Msg("event stream connected")

	go c.consume(res.Body, sessionID)
	return nil
}

// consume reads the event-stream framing until a terminal event, a transport
// failure, or teardown.
func (c *Client) consume(body io.Reader, sessionID string) {
	var (
		eventName string
		dataLines []string
	)

	flush := func() bool {
		name := eventName
		data := strings.Join(dataLines, "\n")
		eventName = ""
		dataLines = nil
		if name == "" && data == "" {
			return false
		}
		return c.dispatch(name, []byte(data), sessionID)
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case line == "":
			if terminal := flush(); terminal {
				return
			}
		case strings.HasPrefix(line, ":"):
			// Comment (heartbeat) line; keep-alive only.
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// Unknown SSE field (id:, retry:, …); the protocol does not use them.
		}
	}

	// Dispatch a final event that was not terminated by a blank line.
	if terminal := flush(); terminal {
		return
	}

	err := scanner.Err()
	c.mu.Lock()
	torn := c.closed
	c.mu.Unlock()
	if torn {
		return
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn().
			Err(err).
			Str("event", "stream.lost").
			Str(log.FieldSessionID, sessionID).
			Msg("event stream dropped")
		c.teardown("connection failed")
		return
	}

	// Server closed the stream without a terminal event.
	c.logger.Warn().
		Str("event", "stream.eof").
		Str(log.FieldSessionID, sessionID).
		Msg("event stream ended without done event")
	c.teardown("connection closed by server")
}

// dispatch decodes one wire event and appends it to the log. The return
// value reports whether the event was terminal and the stream torn down.
func (c *Client) dispatch(name string, data []byte, sessionID string) bool {
	msg, err := events.Decode(name, data)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, events.ErrUnknownType) {
			reason = "unknown"
		}
		metrics.IncStreamDropped(reason)
		c.logger.Warn().
			Err(err).
			Str("event", "stream.drop").
			Str(log.FieldEventType, name).
			Str(log.FieldSessionID, sessionID).
			Msg("dropping undecodable stream event")
		return false
	}

	metrics.IncStreamEvent(string(msg.Type))

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return true
	}
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
	c.signal()

	if !msg.Terminal() {
		return false
	}

	switch msg.Type {
	case events.TypeDone:
		metrics.IncSessionTerminal("completed")
		c.logger.Info().
			Str("event", "stream.done").
			Str(log.FieldSessionID, sessionID).
			Msg("session processing complete")
		c.teardown("")
	case events.TypeError:
		metrics.IncSessionTerminal("error")
		c.logger.Warn().
			Str("event", "stream.error").
			Str(log.FieldSessionID, sessionID).
			Str("message", msg.ErrMsg).
			Msg("session failed")
		c.teardown(msg.ErrMsg)
	}
	return true
}

// teardown closes the connection and transitions to disconnected. It is
// idempotent; only the first call records an error message.
func (c *Client) teardown(errMsg string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	wasConnected := c.state == StateConnected
	c.state = StateDisconnected
	if errMsg != "" && c.errMsg == "" {
		c.errMsg = errMsg
	}
	cancel := c.cancel
	body := c.body
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if body != nil {
		_ = body.Close()
	}
	if wasConnected {
		metrics.DecActiveStreams()
	}
	close(c.done)
	c.signal()
}

// Close tears the stream down. Safe to call any number of times, on any
// exit path, whether or not a terminal event was received.
func (c *Client) Close() error {
	c.teardown("")
	return nil
}

// Done is closed once the stream has fully terminated.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Updates signals (coalesced) whenever the message log grows or the
// connection state changes.
func (c *Client) Updates() <-chan struct{} {
	return c.updates
}

// Since returns a copy of the message log entries from index i onward. The
// log is append-only, so consecutive calls with a caller-tracked high-water
// mark observe every message exactly once.
func (c *Client) Since(i int) []events.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 {
		i = 0
	}
	if i >= len(c.messages) {
		return nil
	}
	out := make([]events.Message, len(c.messages)-i)
	copy(out, c.messages[i:])
	return out
}

// Messages returns a copy of the whole message log.
func (c *Client) Messages() []events.Message {
	return c.Since(0)
}

// Len reports the current length of the message log.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// State reports the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the captured connection or protocol error, if any.
func (c *Client) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

func (c *Client) signal() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}
