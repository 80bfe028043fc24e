// Package prometheus exposes engine metrics as a client_golang
// [prometheus.Collector].
//
// [NewCollector] reads the engine snapshot on every scrape; nothing is
// cached. Counter names are tokenauth_*_total and the two latency
// histograms are tokenauth_login_latency_seconds and
// tokenauth_refresh_latency_seconds.
//
// # What this package must NOT do
//
//   - Register with the global default registry. Callers register the
//     Collector themselves or mount [Handler].
//   - Mutate engine state.
package prometheus
