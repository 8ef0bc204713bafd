package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"quoterelay/internal/feed"
	"quoterelay/internal/model"
	"quoterelay/internal/relay"
	"quoterelay/internal/store"
)

// Errors
var (
	ErrAlreadyStarted = errors.New("coordinator already started")
	ErrNotRunning     = errors.New("coordinator not running")
)

// State is the coordinator lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateSubscribing
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSubscribing:
		return "subscribing"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Sender delivers one document downstream. Satisfied by *relay.Client.
type Sender interface {
	Send(ctx context.Context, doc relay.Document) error
	Stats() relay.Stats
}

// Config holds coordinator settings.
type Config struct {
	Symbols       []string      // Pairs to subscribe
	StatsInterval time.Duration // Cadence of the periodic stats log
}

// Coordinator owns the pipeline: feed → store → relay.
type Coordinator struct {
	cfg    Config
	feed   feed.Client
	store  *store.Store
	sender Sender
	logger *slog.Logger

	state    atomic.Int32
	ingested atomic.Int64

	cancel context.CancelFunc
	group  *errgroup.Group
}

// New creates a coordinator. Nothing runs until Start.
func New(cfg Config, fc feed.Client, st *store.Store, sender Sender, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = time.Minute
	}
	return &Coordinator{
		cfg:    cfg,
		feed:   fc,
		store:  st,
		sender: sender,
		logger: logger,
	}
}

// Start subscribes to the feed and launches the pipeline. Subscription and
// handshake failures are startup errors; once Start returns nil the
// pipeline runs until Stop.
func (c *Coordinator) Start(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateUninitialized), int32(StateSubscribing)) {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	handler := func(q model.Quote) {
		c.handleQuote(runCtx, q)
	}
	if err := c.feed.Subscribe(c.cfg.Symbols, handler); err != nil {
		cancel()
		c.state.Store(int32(StateStopped))
		return err
	}

	if err := c.feed.Start(runCtx); err != nil {
		cancel()
		c.state.Store(int32(StateStopped))
		return err
	}

	group, groupCtx := errgroup.WithContext(runCtx)
	c.group = group
	group.Go(func() error {
		c.statsLoop(groupCtx)
		return nil
	})

	c.state.Store(int32(StateRunning))
	c.logger.Info("coordinator running", "symbols", c.cfg.Symbols)

	return nil
}

// Stop halts the feed and waits for in-flight work, bounded by ctx.
func (c *Coordinator) Stop(ctx context.Context) error {
	prev := State(c.state.Swap(int32(StateStopped)))
	if prev != StateRunning {
		return ErrNotRunning
	}

	if err := c.feed.Stop(); err != nil {
		c.logger.Warn("feed stop failed", "error", err)
	}
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("coordinator stopped", "quotes_ingested", c.ingested.Load())
	case <-ctx.Done():
		c.logger.Warn("coordinator stop timed out")
	}

	return nil
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// handleQuote is the per-event path: merge, then relay the single-entry
// document for the just-updated symbol. Relay failures are logged and
// swallowed; the next event is the retry.
func (c *Coordinator) handleQuote(ctx context.Context, q model.Quote) {
	c.store.Merge(q)
	c.ingested.Add(1)

	doc := relay.NewDocument(q)
	if err := c.sender.Send(ctx, doc); err != nil {
		switch {
		case errors.Is(err, relay.ErrConnect):
			c.logger.Warn("relay connect failed", "symbol", q.Symbol, "error", err)
		case errors.Is(err, relay.ErrSend):
			c.logger.Warn("relay send failed", "symbol", q.Symbol, "error", err)
		case errors.Is(err, context.Canceled):
			// Shutting down.
		default:
			c.logger.Warn("relay failed", "symbol", q.Symbol, "error", err)
		}
		return
	}

	c.logger.Debug("quote relayed", "symbol", q.Symbol)
}

// statsLoop periodically logs pipeline counters.
func (c *Coordinator) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := c.sender.Stats()
			c.logger.Info("pipeline stats",
				"symbols_tracked", c.store.Len(),
				"quotes_ingested", c.ingested.Load(),
				"sends", stats.Sends,
				"connect_failures", stats.ConnectFailures,
				"send_failures", stats.SendFailures,
				"feed_connected", c.feed.IsConnected(),
			)
		}
	}
}
