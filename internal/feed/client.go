package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"quoterelay/internal/model"
)

// Client is the Event Source Adapter contract. Subscribe registers the
// symbol set and handler, Start runs the feed loop in the background, and
// Stop halts it.
type Client interface {
	// Subscribe registers the symbols to stream and the handler invoked per
	// quote. Must be called exactly once, before Start.
	Subscribe(symbols []string, h Handler) error

	// Start connects, authenticates, subscribes, and begins the run loop on
	// a background goroutine. It does not block beyond the initial
	// handshake; handshake failures are startup errors.
	Start(ctx context.Context) error

	// Stop halts the run loop and closes the connection.
	Stop() error

	// IsConnected reports current connection state.
	IsConnected() bool
}

// wsClient implements Client over a single WebSocket connection.
type wsClient struct {
	cfg    Config
	logger *slog.Logger

	// Subscription, fixed at Subscribe time.
	symbols []string
	handler Handler

	// Write serialization
	writeMu sync.Mutex

	// State
	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	started   bool
	closed    bool
	lastMsgAt time.Time

	done chan struct{}
	wg   sync.WaitGroup
}

// NewClient creates a stream client.
func NewClient(cfg Config, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &wsClient{
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Subscribe registers the symbol set and handler.
func (c *wsClient) Subscribe(symbols []string, h Handler) error {
	if h == nil {
		return fmt.Errorf("handler is required")
	}

	norm, err := model.NormalizeSymbols(symbols)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}
	if c.handler != nil {
		return ErrAlreadySubscribed
	}

	c.symbols = norm
	c.handler = h
	return nil
}

// Start performs the initial handshake and launches the run loop.
func (c *wsClient) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	if c.handler == nil {
		c.mu.Unlock()
		return ErrNotSubscribed
	}
	c.started = true
	c.mu.Unlock()

	conn, err := c.handshake(ctx)
	if err != nil {
		return err
	}
	c.setConn(conn)

	c.wg.Add(1)
	go c.run(ctx)

	c.wg.Add(1)
	go c.heartbeatLoop(ctx)

	c.logger.Info("feed started",
		"url", c.cfg.URL,
		"symbols", c.symbols,
	)

	return nil
}

// Stop halts the run loop and closes the connection.
func (c *wsClient) Stop() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	close(c.done)

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		conn.Close()
	}

	c.wg.Wait()
	c.logger.Info("feed stopped")
	return nil
}

// IsConnected reports current connection state.
func (c *wsClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// handshake dials the stream, authenticates, and subscribes.
func (c *wsClient) handshake(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial stream: %w", err)
	}

	// The server greets with a "connected" control message before
	// accepting commands.
	if err := c.expectControl(conn, "connected"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("stream greeting: %w", err)
	}

	auth := authRequest{Action: "auth", Key: c.cfg.Key, Secret: c.cfg.Secret}
	if err := c.writeJSON(conn, auth); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send auth: %w", err)
	}
	if err := c.expectControl(conn, "authenticated"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	sub := subscribeRequest{Action: "subscribe", Quotes: c.symbols}
	if err := c.writeJSON(conn, sub); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send subscribe: %w", err)
	}

	// Keepalive bookkeeping: any pong (and any message, see readFrame)
	// counts as traffic.
	conn.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	return conn, nil
}

// expectControl reads one frame and requires a "success" message with the
// given text, surfacing stream-reported errors verbatim.
func (c *wsClient) expectControl(conn *websocket.Conn, want string) error {
	conn.SetReadDeadline(time.Now().Add(c.cfg.HandshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, data, err := conn.ReadMessage()
	if err != nil {
		return err
	}

	var msgs []wireMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		return fmt.Errorf("parse control frame: %w", err)
	}

	for _, m := range msgs {
		switch m.Type {
		case "error":
			return fmt.Errorf("stream error %d: %s", m.Code, m.Msg)
		case "success":
			if m.Msg == want {
				return nil
			}
		}
	}

	return fmt.Errorf("expected %q control message", want)
}

// writeJSON writes one outbound frame under the write deadline.
func (c *wsClient) writeJSON(conn *websocket.Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// run reads frames until the client stops, reconnecting on failure.
func (c *wsClient) run(ctx context.Context) {
	defer c.wg.Done()

	for {
		err := c.readFrames()

		if c.stopping(ctx) {
			return
		}

		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()

		c.logger.Warn("feed connection lost", "error", err)

		if !c.reconnect(ctx) {
			return
		}
	}
}

// readFrames consumes inbound frames on the current connection until a read
// error occurs.
func (c *wsClient) readFrames() error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.touch()
		c.dispatch(data)
	}
}

// dispatch parses one frame and invokes the handler per quote message.
func (c *wsClient) dispatch(data []byte) {
	var msgs []wireMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		c.logger.Warn("failed to parse frame", "error", err)
		return
	}

	for _, m := range msgs {
		switch m.Type {
		case "q":
			c.handler(m.quote())
		case "subscription":
			c.logger.Debug("subscription confirmed")
		case "error":
			c.logger.Warn("stream error message", "code", m.Code, "msg", m.Msg)
		}
	}
}

// reconnect re-establishes the stream with exponential backoff. Returns
// false when the client is stopping.
func (c *wsClient) reconnect(ctx context.Context) bool {
	wait := c.cfg.ReconnectBaseDelay

	for {
		select {
		case <-c.done:
			return false
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}

		c.logger.Info("reconnecting to feed", "wait", wait)

		conn, err := c.handshake(ctx)
		if err != nil {
			c.logger.Warn("feed reconnection failed", "error", err)

			wait *= 2
			if wait > c.cfg.ReconnectMaxDelay {
				wait = c.cfg.ReconnectMaxDelay
			}
			continue
		}

		c.setConn(conn)
		c.logger.Info("feed reconnected")
		return true
	}
}

// heartbeatLoop sends keepalive pings and closes stale connections so the
// read loop notices and reconnects.
func (c *wsClient) heartbeatLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c.mu.RLock()
		conn := c.conn
		connected := c.connected
		last := c.lastMsgAt
		c.mu.RUnlock()

		if !connected || conn == nil {
			continue
		}

		deadline := time.Now().Add(c.cfg.WriteTimeout)
		if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
			c.logger.Debug("failed to send ping", "error", err)
		}

		if time.Since(last) > c.cfg.ReadTimeout {
			c.logger.Warn("feed connection stale, forcing reconnect",
				"last_traffic", last,
				"timeout", c.cfg.ReadTimeout,
			)
			conn.Close()
		}
	}
}

func (c *wsClient) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.lastMsgAt = time.Now()
	c.mu.Unlock()
}

func (c *wsClient) touch() {
	c.mu.Lock()
	c.lastMsgAt = time.Now()
	c.mu.Unlock()
}

func (c *wsClient) stopping(ctx context.Context) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	return ctx.Err() != nil
}
