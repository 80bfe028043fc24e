// Package otel publishes engine metrics through OpenTelemetry.
//
// [NewExporter] registers observable instruments on any meter. Counters keep
// their Prometheus names; each latency histogram becomes a <name>_bucket
// gauge with an "le" attribute per bound plus a <name>_count counter.
// [NewMeterProvider] builds a push-based provider for an OTLP/gRPC collector.
package otel
