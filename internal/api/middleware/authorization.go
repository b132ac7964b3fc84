package middleware

import (
	"context"
	"net/http"
	"strings"

	internaljwt "talkative-backend/internal/jwt"
)

type identityContextKey struct{}

// ValidateUserJWT rejects requests without a valid bearer token. The verified
// identity is stored on the request context for IdentityFrom.
func ValidateUserJWT(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		identity, err := internaljwt.Verify(token)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
		next(w, r.WithContext(ctx))
	}
}

// IdentityFrom returns the identity stored by ValidateUserJWT.
func IdentityFrom(r *http.Request) (internaljwt.Identity, bool) {
	identity, ok := r.Context().Value(identityContextKey{}).(internaljwt.Identity)
	return identity, ok
}
