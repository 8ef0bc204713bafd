// Package feed implements the Event Source Adapter: a WebSocket client for
// the upstream crypto quote stream that invokes a registered handler once
// per received quote.
//
// The adapter owns feed-level resilience. If the stream drops, it
// reconnects with exponential backoff, re-authenticates, and re-subscribes
// on its own; callers only see a gap in handler invocations. Relay-level
// failures are out of its hands entirely.
package feed
