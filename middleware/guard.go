package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/axelferr/authcore"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity resolved by [RequireSession] for
// the current request.
func IdentityFromContext(ctx context.Context) (authcore.IdentityRecord, bool) {
	ident, ok := ctx.Value(identityContextKey{}).(authcore.IdentityRecord)
	return ident, ok
}

// RequireSession validates the request's bearer token before the wrapped
// handler runs. Credential and token failures answer 401 with the generic
// boundary message; a store outage answers 503 so clients know to retry.
func RequireSession(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "authentication failed", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "authentication failed", http.StatusUnauthorized)
				return
			}

			ident, err := engine.Validate(r.Context(), token)
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, authcore.ErrStoreUnavailable) {
					status = http.StatusServiceUnavailable
				}
				http.Error(w, authcore.PublicMessage(err), status)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
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
