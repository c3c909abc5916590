// Package session provides Redis-backed session persistence with a compact
// binary encoding.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model.
// It does NOT interpret JWT tokens or login tokens; those belong to the
// Engine.
//
// # What this package must NOT do
//
//   - Import goPasswordless or jwt (no upward imports).
//   - Store plaintext secrets in [Session] fields.
package session
