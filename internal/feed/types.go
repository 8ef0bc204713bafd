package feed

import (
	"errors"
	"time"

	"quoterelay/internal/model"
)

// Errors
var (
	ErrNotSubscribed     = errors.New("no subscription registered")
	ErrAlreadySubscribed = errors.New("already subscribed")
	ErrAlreadyStarted    = errors.New("already started")
	ErrAlreadyClosed     = errors.New("already closed")
	ErrAuthFailed        = errors.New("stream authentication failed")
	ErrStaleConnection   = errors.New("connection stale (no traffic)")
)

// Handler is invoked once per received quote. Invocations happen on the
// adapter's read goroutine; handlers that block slow down the feed.
type Handler func(model.Quote)

// Config configures the stream client.
type Config struct {
	URL                string        // WebSocket endpoint of the quote stream
	Key                string        // API key ID
	Secret             string        // API secret
	HandshakeTimeout   time.Duration // Timeout for dial + auth handshake
	WriteTimeout       time.Duration // Write deadline for outbound frames
	PingInterval       time.Duration // Keepalive ping cadence
	ReadTimeout        time.Duration // Max silence before the connection is declared stale
	ReconnectBaseDelay time.Duration // First reconnect wait
	ReconnectMaxDelay  time.Duration // Backoff ceiling
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:                "wss://stream.data.alpaca.markets/v1beta3/crypto/us",
		HandshakeTimeout:   10 * time.Second,
		WriteTimeout:       5 * time.Second,
		PingInterval:       15 * time.Second,
		ReadTimeout:        60 * time.Second,
		ReconnectBaseDelay: time.Second,
		ReconnectMaxDelay:  60 * time.Second,
	}
}

// authRequest authenticates the session after connect.
type authRequest struct {
	Action string `json:"action"` // "auth"
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

// subscribeRequest subscribes the session to quote updates.
type subscribeRequest struct {
	Action string   `json:"action"` // "subscribe"
	Quotes []string `json:"quotes"`
}

// wireMessage is one element of an inbound frame. Frames are JSON arrays of
// these; the "T" discriminator selects which fields are populated.
type wireMessage struct {
	Type string `json:"T"` // "success", "error", "subscription", "q"

	// Control fields
	Msg  string `json:"msg,omitempty"`
	Code int    `json:"code,omitempty"`

	// Quote fields
	Symbol   string    `json:"S,omitempty"`
	AskPrice float64   `json:"ap,omitempty"`
	AskSize  float64   `json:"as,omitempty"`
	BidPrice float64   `json:"bp,omitempty"`
	BidSize  float64   `json:"bs,omitempty"`
	Time     time.Time `json:"t,omitempty"`
}

// quote converts a "q" message to the model type.
func (m wireMessage) quote() model.Quote {
	return model.Quote{
		Symbol:    m.Symbol,
		Timestamp: m.Time,
		AskPrice:  m.AskPrice,
		AskSize:   m.AskSize,
		BidPrice:  m.BidPrice,
		BidSize:   m.BidSize,
	}
}
