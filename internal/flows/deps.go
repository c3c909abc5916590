package flows

// Deps groups the flow dependency sets the Engine builds once at
// construction time.
type Deps struct {
	LoginToken LoginTokenDeps
	Validate   ValidateDeps
	Logout     LogoutDeps

	Introspection IntrospectionDeps
}
