package middleware

import (
	"context"
	"net/http"
	"strings"

	goPasswordless "github.com/MrEthical07/goPasswordless"
)

// Validator checks a bearer access token. *goPasswordless.Engine implements
// it.
type Validator interface {
	Validate(ctx context.Context, accessToken string) (*goPasswordless.AuthResult, error)
}

type authResultContextKey struct{}

func AuthResultFromContext(ctx context.Context) (*goPasswordless.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*goPasswordless.AuthResult)
	return res, ok
}

// WithAuthResult stores res in ctx the way Guard does.
func WithAuthResult(ctx context.Context, res *goPasswordless.AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

// Guard rejects requests without a valid bearer token and a live session.
func Guard(v Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := v.Validate(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthResult(r.Context(), res)))
		})
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(value string) (string, bool) {
	return bearerToken(value)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
