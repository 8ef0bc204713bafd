// Package creds resolves the upstream API credentials at startup.
//
// Credentials live as AES-256-GCM sealed rows in an embedded key-value
// database; the sealing key is read from a separate key file. Any failure
// here is fatal: the relay cannot operate without valid credentials.
package creds
