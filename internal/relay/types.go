package relay

import (
	"errors"
	"net"
	"strconv"
	"time"

	"quoterelay/internal/model"
)

// Errors. Both are transient: the caller logs and keeps ingesting, and the
// next event's send attempt is independent of any prior failure.
var (
	ErrConnect = errors.New("relay connect failed")
	ErrSend    = errors.New("relay send failed")
)

// Entry is one symbol's position inside the wire document. Field names and
// JSON keys are fixed by the downstream consumer.
type Entry struct {
	Name     string  `json:"name"`
	Time     float64 `json:"time"` // Unix epoch seconds, sub-second precision
	AskPrice float64 `json:"ask price"`
	AskSize  float64 `json:"ask size"`
	BidPrice float64 `json:"bid price"`
	BidSize  float64 `json:"bid size"`
}

// Document is the envelope written to the peer on each send.
//
// Framing note: each document carries only the just-updated symbol's entry,
// not the full snapshot. The Snapshot Store still tracks every symbol; the
// single-entry shape is what the downstream peer parses.
type Document struct {
	LiveMarketData map[string]Entry `json:"Live Market Data"`
}

// NewDocument builds the single-entry document for one quote.
func NewDocument(q model.Quote) Document {
	return Document{
		LiveMarketData: map[string]Entry{
			q.Symbol: {
				Name:     q.Symbol,
				Time:     q.EpochSeconds(),
				AskPrice: q.AskPrice,
				AskSize:  q.AskSize,
				BidPrice: q.BidPrice,
				BidSize:  q.BidSize,
			},
		},
	}
}

// Config configures a relay client.
type Config struct {
	Host         string        // Downstream peer address
	Port         int           // Downstream peer port
	DialTimeout  time.Duration // Timeout for establishing the connection
	WriteTimeout time.Duration // Write deadline for the payload
	PaceDelay    time.Duration // Minimum interval between send attempts
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:         "127.0.0.1",
		Port:         65535,
		DialTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PaceDelay:    time.Second,
	}
}

// Addr returns the peer address in host:port form.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Stats contains cumulative relay counters.
type Stats struct {
	Sends           int64 // Successful deliveries
	ConnectFailures int64 // Dials that never produced a connection
	SendFailures    int64 // Connections that failed during write
}
