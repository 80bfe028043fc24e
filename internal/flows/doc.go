// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunRefresh, RunLogout, etc.) accepts a typed
// dependency struct and returns a result value describing what happened.
// The Engine maps results onto errors, metrics and audit events, so flows
// can be tested with plain function fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate the token codec, the user lookup, the password
// verifier and the session store. They do NOT own any of these resources;
// ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import tokenauth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
