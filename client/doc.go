// Package client redeems one-time login tokens against a remote accounts
// server.
//
// A Client wraps a Connection to the server. LoginWithToken returns the
// outcome as a value; LoginWithTokenCallback and RequestLoginTokenForUser
// also accept a callback that receives the error instead of the caller.
//
// AutoLoginWithToken is the startup entry point for pages opened from a
// magic link: it reads loginToken and selector from the page URL, logs in
// when nobody is logged in yet, and scrubs the token from the visible URL.
package client
