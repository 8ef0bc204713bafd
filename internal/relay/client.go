package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Client delivers quote documents to the downstream peer, one connection
// per send.
type Client struct {
	cfg    Config
	logger *slog.Logger

	// Serializes send attempts; guards nextReady.
	mu        sync.Mutex
	nextReady time.Time

	sends        atomic.Int64
	connectFails atomic.Int64
	sendFails    atomic.Int64
}

// NewClient creates a relay client for the configured peer.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		logger: logger.With("peer", cfg.Addr()),
	}
}

// Send delivers one document to the peer.
//
// The attempt opens a fresh connection, writes the full serialized payload,
// and closes the connection whether or not the write succeeded. A dial
// failure is reported as ErrConnect, a write failure as ErrSend; neither is
// retried here — the next event produces the next attempt. Concurrent calls
// are serialized, and each attempt waits out the pacing gate armed by the
// previous one, so sends are delayed but never dropped.
func (c *Client) Send(ctx context.Context, doc Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.waitForPace(ctx); err != nil {
		return err
	}
	defer func() {
		c.nextReady = time.Now().Add(c.cfg.PaceDelay)
	}()

	session := uuid.NewString()
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: marshal document: %v", ErrSend, err)
	}

	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Addr())
	if err != nil {
		c.connectFails.Add(1)
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if _, err := conn.Write(payload); err != nil {
		c.sendFails.Add(1)
		return fmt.Errorf("%w: %v", ErrSend, err)
	}

	c.sends.Add(1)
	c.logger.Debug("document delivered",
		"session", session,
		"bytes", len(payload),
	)

	return nil
}

// waitForPace blocks until the pacing gate from the previous attempt has
// passed, or the context is canceled. Called with c.mu held.
func (c *Client) waitForPace(ctx context.Context) error {
	wait := time.Until(c.nextReady)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns cumulative counters.
func (c *Client) Stats() Stats {
	return Stats{
		Sends:           c.sends.Load(),
		ConnectFailures: c.connectFails.Load(),
		SendFailures:    c.sendFails.Load(),
	}
}
