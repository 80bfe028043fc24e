// Package tokenauth provides an email/password authentication engine that
// issues short-lived JWT access tokens and rotating JWT refresh tokens backed
// by per-user session tracking.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Session model
//
// Every refresh token is a session. A user holds at most
// Config.Session.MaxSessionsPerUser live sessions (five by default); logging
// in beyond that evicts the oldest. Sessions expire a fixed lifetime after
// creation and are cleaned up lazily. Refresh revokes the presented token and
// stores its replacement in one atomic step, so a refresh token is usable
// exactly once.
//
// # Architecture boundaries
//
// tokenauth is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (LoginResult, MetricsSnapshot, AuditEvent, etc.). Flow
// orchestration, audit dispatch and metric storage live under internal/.
// Storage backends live in the session package, token encoding in jwt and
// hashing in password.
//
// # What this package must NOT do
//
//   - Expose Redis clients or store internals in its public API.
//   - Perform I/O outside of Engine methods.
//   - Import any sub-package that re-imports tokenauth (no import cycles).
package tokenauth
