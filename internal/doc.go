// Package internal contains helper utilities that are private to goPasswordless,
// mainly secure random generation for session identifiers and login tokens.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function orchestrators for issuer and client operations
//   - limiters: login-token request and redeem throttles
//   - metrics: lock-free counters and latency histograms
//   - rate: fixed-window Redis counter primitive
//   - stores: Redis-backed login-token records
//
// # What this package must NOT do
//
//   - Export types that appear in the public goPasswordless API.
//   - Be imported by any package outside the goPasswordless module.
package internal
