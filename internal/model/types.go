package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Errors
var (
	ErrNoSymbols = errors.New("no symbols to subscribe")
	ErrBadSymbol = errors.New("malformed symbol")
)

// symbolPattern is the accepted "BASE/QUOTE" shape after normalization.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9]+/[A-Z0-9]+$`)

// Quote is a single market update for one symbol. Immutable once constructed.
type Quote struct {
	Symbol    string    // Normalized pair (e.g., "BTC/USD")
	Timestamp time.Time // Exchange event time
	AskPrice  float64   // Best ask price
	AskSize   float64   // Quantity at best ask
	BidPrice  float64   // Best bid price
	BidSize   float64   // Quantity at best bid
}

// EpochSeconds returns the quote's event time as Unix seconds with
// sub-second precision, the form the downstream wire format uses.
func (q Quote) EpochSeconds() float64 {
	return float64(q.Timestamp.UnixNano()) / float64(time.Second)
}

// NormalizeSymbol trims and uppercases a symbol and validates its
// "BASE/QUOTE" shape.
func NormalizeSymbol(s string) (string, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	if !symbolPattern.MatchString(norm) {
		return "", fmt.Errorf("%w: %q", ErrBadSymbol, s)
	}
	return norm, nil
}

// NormalizeSymbols normalizes every symbol in the list, removing duplicates
// while preserving order. An empty list is a configuration error.
func NormalizeSymbols(symbols []string) ([]string, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}

	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		norm, err := NormalizeSymbol(s)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out, nil
}
