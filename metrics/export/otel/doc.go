// Package otel publishes goPasswordless metrics through an OpenTelemetry
// meter.
//
// [New] registers one callback that reads [goPasswordless.Engine.MetricsSnapshot]
// on every collection. Engine counters map to Int64ObservableCounters of the
// same name. Latency histograms map to a "<name>_bucket" gauge with an "le"
// attribute per cumulative bucket. Audit delivery is a single counter split
// by an "outcome" attribute.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
