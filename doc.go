// Package goPasswordless provides passwordless login with one-time login
// tokens: an issuer Engine that sends a short-lived token to a user out of
// band and redeems it for a JWT-backed session, plus the shared types used by
// the client and server packages.
//
// Engine methods are safe to call from multiple goroutines once
// [Builder.Build] has returned.
//
// # Architecture boundaries
//
// goPasswordless is the public surface. It exposes [Engine], [Builder],
// [Config], [Selector], [Error] and the value types exchanged with clients.
// Flow orchestration, token records, throttling, session encoding and audit
// dispatch live under internal/ and are never exported. The client package
// consumes tokens from a remote server; the server package exposes an Engine
// over HTTP.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Store or log plaintext login tokens. Only their SHA-256 is persisted.
//   - Import client, server, or any sub-package that re-imports goPasswordless.
//
// # Performance contract
//
// Validate verifies the JWT locally and makes one Redis round-trip to confirm
// the session. RequestLoginToken and LoginWithToken each make a bounded
// number of round-trips: throttle counters, the user lookup through
// [UserProvider], and one token record read or write.
package goPasswordless
