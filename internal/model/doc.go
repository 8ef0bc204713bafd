// Package model defines shared data types for the quote relay.
//
// Conventions:
//   - Symbols: "BASE/QUOTE" pairs, uppercase (e.g., "BTC/USD")
//   - Prices and sizes: float64, matching the downstream wire format
//   - Timestamps: time.Time internally, epoch seconds (float) on the wire
package model
