// Package internal holds the pieces of tokenauth that are not part of its
// public API.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function orchestrators for every Engine operation
//   - metrics: lock-free counters and latency histograms
//   - config: environment/file configuration for the authd binary
//   - logging: zerolog construction for authd
//   - httpapi: the HTTP adapter mounted by authd
//
// # What this package must NOT do
//
//   - Export types that appear in the public tokenauth API.
//   - Be imported by any package outside the tokenauth module.
package internal
