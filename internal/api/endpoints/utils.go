package endpoints

import (
	"fmt"
	"net/http"
	"strings"

	"talkative-backend/internal/api"
	"talkative-backend/internal/api/middleware"
	internaljwt "talkative-backend/internal/jwt"
)

type HTTPError = api.HTTPError

type ApiMessageResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return api.WriteJSON(w, status, v)
}

func MethodHandler(
	w http.ResponseWriter,
	r *http.Request,
	allowed map[string]func(http.ResponseWriter, *http.Request) error,
) error {
	if handler, ok := allowed[r.Method]; ok {
		return handler(w, r)
	}
	return &HTTPError{
		StatusCode: http.StatusMethodNotAllowed,
		Message:    "Method not allowed.",
		ErrorLog:   fmt.Errorf("method not allowed"),
	}
}

// callerIdentity reads the identity placed on the context by the auth
// middleware, falling back to the Authorization header for routes that mix
// authenticated and anonymous methods on one path.
func callerIdentity(r *http.Request) (internaljwt.Identity, error) {
	if identity, ok := middleware.IdentityFrom(r); ok {
		return identity, nil
	}

	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if header == "" || token == header {
		return internaljwt.Identity{}, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("no bearer token on request"),
		}
	}

	identity, err := internaljwt.Verify(token)
	if err != nil {
		return internaljwt.Identity{}, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("verify bearer token: %w", err),
		}
	}
	return identity, nil
}
