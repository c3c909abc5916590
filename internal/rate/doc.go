// Package rate provides the fixed-window Redis counter used to build the
// login-token throttles in internal/limiters.
//
// # Window semantics
//
// INCR + conditional EXPIRE on first hit. Keys are owned by the callers; this
// package never builds key names itself.
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in internal/limiters).
//   - Be imported outside the goPasswordless module.
package rate
