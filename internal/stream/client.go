// Package stream maintains the long-lived subscription to the backend's
// transaction event stream.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andreiluca/fraudwatch/internal/common"
	"github.com/andreiluca/fraudwatch/internal/normalize"
	"github.com/andreiluca/fraudwatch/internal/service"
)

// State is the connection state of the live feed client.
type State int32

// Connection states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

// EventNewTransaction is the only event kind the client forwards.
const EventNewTransaction = "new_transaction"

// DefaultReconnectDelay is used when the config leaves the delay unset.
const DefaultReconnectDelay = 3 * time.Second

// Config holds the live feed client settings.
type Config struct {
	URL            string
	ReconnectDelay time.Duration
	MaxRetries     int // 0 means retry forever
}

// envelope is the wire shape of one stream event body.
type envelope struct {
	Data normalize.RawPayload `json:"data"`
	Type string               `json:"type"`
}

// Client subscribes to the event stream and feeds normalized records to a
// sink. On any transport error it reconnects after a fixed delay; Disconnect
// cancels the subscription and any pending reconnect timer.
type Client struct {
	sink       service.Sink
	httpClient *http.Client
	cancel     context.CancelFunc
	done       chan struct{}
	cfg        Config
	state      atomic.Int32
	mu         sync.Mutex
}

// New creates a client delivering events to sink. The HTTP client carries no
// overall timeout: the stream request is meant to stay open.
func New(cfg Config, sink service.Sink) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	return &Client{
		cfg:        cfg,
		sink:       sink,
		httpClient: &http.Client{},
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Connect starts the subscription. Only one subscription may be active per
// client; a second Connect without a Disconnect is a caller error.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return common.ErrAlreadyActive
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go c.run(runCtx, done)
	return nil
}

// Disconnect terminates the subscription and waits for the run loop to stop,
// so no reconnect attempt can fire afterwards. Safe to call repeatedly and
// before Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// run is the reconnect loop. Context cancellation is the generation token: a
// canceled context stops both the live connection and any pending retry, so a
// stale retry can never resurrect a disconnected client.
func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer c.state.Store(int32(StateDisconnected))

	attempts := 0
	for {
		c.state.Store(int32(StateConnecting))
		err := c.consume(ctx)
		c.state.Store(int32(StateDisconnected))

		if ctx.Err() != nil {
			return
		}

		attempts++
		if c.cfg.MaxRetries > 0 && attempts > c.cfg.MaxRetries {
			common.LogError(err, "Live stream gave up reconnecting", common.Fields{
				"attempts": attempts,
			})
			return
		}

		slog.Warn("Live stream disconnected, reconnecting",
			"delay", c.cfg.ReconnectDelay,
			"attempt", attempts,
			"error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

// consume opens the stream and dispatches events until the transport fails or
// the context is canceled.
func (c *Client) consume(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stream connection failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	c.state.Store(int32(StateConnected))
	slog.Info("Live stream connected", "url", c.cfg.URL)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				c.dispatch(data.Bytes())
				data.Reset()
			}
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// event/id/retry fields and comments carry no payload we need;
			// the kind discriminator lives in the JSON body.
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStreamClosed, err)
	}
	return common.ErrStreamClosed
}

// dispatch parses one event body and forwards it. Events that are not a
// well-formed new_transaction with a payload are discarded without fuss;
// garbage on the wire is not an error condition for the dashboard.
func (c *Client) dispatch(body []byte) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		slog.Debug("Discarding unparsable stream event", "error", err)
		return
	}
	if env.Type != EventNewTransaction || env.Data == nil {
		return
	}

	tx := normalize.Transaction(env.Data)
	added, err := c.sink.Ingest(tx)
	if err != nil {
		// Normalizer contract violation; drop the record rather than die.
		slog.Warn("Dropping malformed record", "error", err)
		return
	}
	if !added {
		slog.Debug("Duplicate transaction suppressed", "transaction_id", tx.ID)
	}
}
