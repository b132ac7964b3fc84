package jwt

import (
	"errors"

	"github.com/golang-jwt/jwt"
)

var (
	// ErrTokenExpired distinguishes an expired credential from a broken one
	// so the client can refresh and retry instead of forcing a logout.
	ErrTokenExpired = errors.New("jwt expired")
	ErrTokenInvalid = errors.New("Invalid token")
)

// Verify checks an access token and returns the identity it carries.
func Verify(tokenString string) (Identity, error) {
	claims, err := ParseToken(tokenString)
	if err != nil {
		var vErr *jwt.ValidationError
		if errors.As(err, &vErr) && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrTokenInvalid
	}

	id, _ := claims["id"].(string)
	email, _ := claims["email"].(string)
	if id == "" {
		return Identity{}, ErrTokenInvalid
	}

	return Identity{UserID: id, Email: email}, nil
}
