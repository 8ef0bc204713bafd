// Package store implements the Snapshot Store: the latest known quote for
// each tracked symbol, safe for concurrent merge and read.
//
// Merges are last-write-wins per symbol. No staleness check is made against
// the quote's exchange timestamp; an out-of-order late event overwrites a
// newer one. Downstream consumers can detect this from the "time" field.
package store
