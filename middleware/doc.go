// Package middleware exposes HTTP middleware that authenticates requests by
// their bearer access token.
//
// # Guards
//
//   - [RequireAuth]: rejects requests without a valid access token.
//   - [OptionalAuth]: attaches the token payload when present and valid,
//     and never rejects.
//
// Both read the Authorization header ("Bearer <token>"), call
// Engine.VerifyAccess and store the verified payload in the request context,
// where handlers read it with [PayloadFromContext].
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Touch the session store. Access tokens are verified statelessly.
package middleware
