// Package errs defines the error taxonomy shared across the listener: a
// small set of sentinel errors that every layer wraps with context instead
// of inventing ad-hoc error strings. Callers use errors.Is against these
// sentinels to decide whether to log-and-continue or exit.
package errs

import "errors"

// Sentinel errors, one per taxonomy category from the error handling design.
var (
	// ErrConfig covers bad flags/env, invalid TOML-equivalent input, and
	// bad key material at startup. Always fatal.
	ErrConfig = errors.New("config error")

	// ErrTransport covers transport agent initialization and topic-update
	// failures. Fatal at startup, logged-and-continued at runtime.
	ErrTransport = errors.New("transport error")

	// ErrDecode covers unsupported payloads, field mismatches, and
	// malformed bytes. Always per-message, never fatal.
	ErrDecode = errors.New("decode error")

	// ErrStore covers connection and query failures against the backing
	// store. Never fatal; callers retry on the next tick or return a
	// query error to the client.
	ErrStore = errors.New("store error")

	// ErrTimeout covers the bounded operations described in the
	// concurrency model: 5s maintenance calls, 1s per-message decode, and
	// the 180s scheduler watchdog. Never fatal.
	ErrTimeout = errors.New("operation timed out")

	// ErrNotifier covers outbound webhook delivery failures. Always
	// swallowed after a warning log.
	ErrNotifier = errors.New("notifier error")

	// ErrNotFound is returned by store lookups for a missing row.
	ErrNotFound = errors.New("not found")
)
