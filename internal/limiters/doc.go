// Package limiters provides the login-token throttles built on top of the
// internal/rate fixed-window primitive.
//
// [LoginTokenLimiter] counts token requests and token redemptions separately,
// per identifier and per client IP. All methods are nil-safe: calling any
// method on a nil receiver returns nil.
//
// # What this package must NOT do
//
//   - Import goPasswordless or any sibling internal package except internal/rate.
//   - Make policy decisions beyond counting. Flow functions decide consequences.
package limiters
