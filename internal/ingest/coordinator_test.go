package ingest

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quoterelay/internal/feed"
	"quoterelay/internal/model"
	"quoterelay/internal/relay"
	"quoterelay/internal/store"
)

// fakeFeed is an in-memory feed.Client that lets tests push quotes straight
// into the registered handler.
type fakeFeed struct {
	mu      sync.Mutex
	symbols []string
	handler feed.Handler
	started bool
	stopped bool
}

func (f *fakeFeed) Subscribe(symbols []string, h feed.Handler) error {
	norm, err := model.NormalizeSymbols(symbols)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.symbols = norm
	f.handler = h
	return nil
}

func (f *fakeFeed) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handler == nil {
		return feed.ErrNotSubscribed
	}
	f.started = true
	return nil
}

func (f *fakeFeed) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeFeed) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started && !f.stopped
}

func (f *fakeFeed) emit(q model.Quote) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(q)
}

// testPeer is a downstream listener collecting one payload per connection.
func testPeer(t *testing.T) (net.Listener, <-chan []byte) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	payloads := make(chan []byte, 16)
	go acceptLoop(ln, payloads)
	return ln, payloads
}

func acceptLoop(ln net.Listener, payloads chan<- []byte) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go func(conn net.Conn) {
			defer conn.Close()
			data, err := io.ReadAll(conn)
			if err == nil {
				payloads <- data
			}
		}(conn)
	}
}

func relayConfig(t *testing.T, addr string) relay.Config {
	t.Helper()

	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := relay.DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	cfg.PaceDelay = time.Millisecond
	return cfg
}

func btcQuote() model.Quote {
	return model.Quote{
		Symbol:    "BTC/USD",
		Timestamp: time.Unix(1700000000, 0),
		AskPrice:  50000.5,
		AskSize:   0.1,
		BidPrice:  50000.0,
		BidSize:   0.2,
	}
}

func TestCoordinator_EndToEnd(t *testing.T) {
	ln, payloads := testPeer(t)

	ff := &fakeFeed{}
	st := store.New()
	sender := relay.NewClient(relayConfig(t, ln.Addr().String()), nil)

	coord := New(Config{Symbols: []string{"BTC/USD", "ETH/USD"}}, ff, st, sender, nil)
	require.Equal(t, StateUninitialized, coord.State())

	require.NoError(t, coord.Start(context.Background()))
	require.Equal(t, StateRunning, coord.State())

	ff.emit(btcQuote())

	var data []byte
	select {
	case data = <-payloads:
	case <-time.After(2 * time.Second):
		t.Fatal("peer never received a payload")
	}

	var doc map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	entry := doc["Live Market Data"]["BTC/USD"]
	require.NotNil(t, entry)
	require.Equal(t, "BTC/USD", entry["name"])
	require.Equal(t, 50000.5, entry["ask price"])

	// The store tracks the merged quote regardless of relay outcome.
	q, ok := st.Get("BTC/USD")
	require.True(t, ok)
	require.Equal(t, 50000.5, q.AskPrice)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, coord.Stop(ctx))
	require.Equal(t, StateStopped, coord.State())
	require.True(t, ff.stopped)
}

func TestCoordinator_SurvivesRelayFailure(t *testing.T) {
	// Reserve a port with nothing listening on it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ff := &fakeFeed{}
	st := store.New()
	sender := relay.NewClient(relayConfig(t, addr), nil)

	coord := New(Config{Symbols: []string{"BTC/USD"}}, ff, st, sender, nil)
	require.NoError(t, coord.Start(context.Background()))

	// Peer down: the send fails but ingestion continues.
	ff.emit(btcQuote())
	require.Equal(t, StateRunning, coord.State())
	require.Equal(t, int64(1), sender.Stats().ConnectFailures)

	_, ok := st.Get("BTC/USD")
	require.True(t, ok, "failed send must not lose the merged quote")

	// Peer comes back; the next event is delivered normally.
	ln, err = net.Listen("tcp", addr)
	require.NoError(t, err)
	defer ln.Close()
	payloads := make(chan []byte, 1)
	go acceptLoop(ln, payloads)

	second := btcQuote()
	second.AskPrice = 50100.0
	ff.emit(second)

	select {
	case data := <-payloads:
		var doc map[string]map[string]map[string]any
		require.NoError(t, json.Unmarshal(data, &doc))
		require.Equal(t, 50100.0, doc["Live Market Data"]["BTC/USD"]["ask price"])
	case <-time.After(2 * time.Second):
		t.Fatal("peer never received a payload after recovery")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, coord.Stop(ctx))
}

func TestCoordinator_BadSymbolsFailStartup(t *testing.T) {
	ff := &fakeFeed{}
	coord := New(Config{Symbols: []string{"BTCUSD"}}, ff, store.New(), relay.NewClient(relay.DefaultConfig(), nil), nil)

	err := coord.Start(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, model.ErrBadSymbol)
	require.Equal(t, StateStopped, coord.State())
}

func TestCoordinator_DoubleStart(t *testing.T) {
	ln, _ := testPeer(t)

	ff := &fakeFeed{}
	coord := New(Config{Symbols: []string{"BTC/USD"}}, ff, store.New(),
		relay.NewClient(relayConfig(t, ln.Addr().String()), nil), nil)

	require.NoError(t, coord.Start(context.Background()))
	require.ErrorIs(t, coord.Start(context.Background()), ErrAlreadyStarted)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, coord.Stop(ctx))
	require.ErrorIs(t, coord.Stop(ctx), ErrNotRunning)
}
