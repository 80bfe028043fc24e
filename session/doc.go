// Package session tracks the live refresh-token sessions of each user.
//
// # Architecture boundaries
//
// This package owns the [Store] contract and its two implementations:
// [MemoryStore] (process-local, sharded) and [RedisStore] (shared, Lua
// scripted). It does NOT interpret JWT tokens or evaluate credentials; those
// responsibilities belong to the Engine.
//
// # Invariants
//
//   - A user never holds more than the configured cap of live sessions.
//     Storing at capacity evicts exactly one session, the oldest.
//   - Expired sessions are removed lazily by Store, Validate, ActiveCount and
//     Rotate. There is no background sweep.
//   - All operations for one user are serialized; Rotate is atomic.
//
// # What this package must NOT do
//
//   - Import tokenauth or jwt (no upward imports).
//   - Persist plaintext refresh tokens outside process memory.
package session
