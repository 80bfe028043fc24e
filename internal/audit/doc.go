// Package audit delivers security-relevant events (logins, refreshes,
// logouts) to a caller-supplied sink without blocking the request path.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, zerolog, no-op).
//   - [Dispatcher]: buffered async relay, drop-if-full or block-if-full.
//   - [Event]: one structured record.
//
// The Engine decides which events to emit; this package only buffers and
// delivers them.
package audit
