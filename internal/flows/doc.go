// Package flows contains pure-function orchestrators for the issuer Engine
// and the token-exchange client.
//
// Each flow function (RunRequestLoginToken, RunRedeemLoginToken, RunValidate,
// RunAutoLogin, ...) accepts a typed dependency struct of function fields and
// returns results without side effects beyond those dependencies. Tests drive
// the flows with hand-written fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the token store, session store, JWT
// manager, rate limiter, audit dispatcher and metrics. They do NOT own any of
// these resources; ownership stays with the Engine or Client.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goPasswordless or client (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
