// Package httpcall connects a client.Client to a goPasswordless server over
// HTTP.
package httpcall
