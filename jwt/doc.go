// Package jwt issues and verifies the short-lived access tokens handed out
// after a successful login-token exchange.
package jwt
