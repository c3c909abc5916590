// Package prometheus exposes goPasswordless engine metrics as a
// [prometheus.Collector].
//
// [NewCollector] reads [goPasswordless.Engine.MetricsSnapshot] on every scrape
// and emits const metrics, so the engine keeps its lock-free counters and
// Prometheus only sees copies. [Handler] serves a private registry holding
// just this collector.
//
// # What this package must NOT do
//
//   - Register into the global Prometheus registry.
//   - Mutate engine state.
package prometheus
