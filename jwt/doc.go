// Package jwt issues and verifies the HS256 access and refresh tokens used by
// the authentication engine.
//
// Access and refresh tokens share one signing algorithm but use distinct
// secrets and lifetimes. Verification never panics and reports failure as a
// plain ok=false so callers cannot leak why a token was rejected.
//
// # What this package must NOT do
//
//   - Track sessions or revocation state; that belongs to package session.
//   - Import tokenauth (no upward imports).
package jwt
