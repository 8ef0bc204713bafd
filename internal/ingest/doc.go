// Package ingest wires the feed adapter, snapshot store, and relay client
// into the running pipeline: every received quote is merged into the store
// and immediately relayed downstream as a single-entry document.
//
// There is deliberately no batching, coalescing, or queueing between
// ingestion and relay; feed cadence drives relay attempts one-to-one, and a
// failed send is simply superseded by the next event's attempt.
package ingest
