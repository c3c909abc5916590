// Package server serves the login-token methods over HTTP.
//
// Routes:
//
//	POST /methods/login                     {selector, token} -> LoginResult
//	POST /methods/requestLoginTokenForUser  {selector, userData, options} -> {}
//	POST /methods/logout                    bearer token required -> 204
//	GET  /methods/me                        bearer token required -> MeResponse
//
// Failures are written as {"error":{"code","reason","details"}} with the
// code also used as the HTTP status. Reasons of known engine errors are the
// error messages, so clients can restore them with
// goPasswordless.FromWireError.
package server
