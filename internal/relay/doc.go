// Package relay implements the Relay Client: delivery of one serialized
// quote document per send to a fixed downstream TCP peer.
//
// Every send opens a fresh connection, writes a single UTF-8 JSON document,
// and closes the connection on every exit path. No acknowledgement is read
// back. Sends are serialized so at most one connection is open per client,
// and a fixed pacing delay separates consecutive attempts.
package relay
