// Package stores provides the Redis-backed store for one-time login tokens.
//
// # Design
//
// Each record is a versioned, binary-encoded blob with a TTL, keyed by tenant
// and user so a user has at most one outstanding token. Consume uses
// WATCH/MULTI optimistic transactions with retry on contention. Records are
// single-use: deleted on success, and deleted once the attempt limit is
// reached. Secret comparisons are constant-time.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for token records. It
// does NOT generate tokens, enforce rate limits, or make authentication
// decisions; those belong to internal/flows.
//
// # What this package must NOT do
//
//   - Import goPasswordless or any sibling internal package.
//   - Log or expose plaintext tokens.
//   - Use non-constant-time comparisons for secret matching.
package stores
