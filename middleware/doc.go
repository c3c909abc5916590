// Package middleware adapts Engine token validation to net/http.
//
// [Guard] reads the Authorization header, calls Validate, and stores the
// accepted [goPasswordless.AuthResult] in the request context, where
// handlers read it back with [AuthResultFromContext].
//
// The package makes no authentication decisions of its own and never
// touches Redis or parses JWTs directly.
package middleware
