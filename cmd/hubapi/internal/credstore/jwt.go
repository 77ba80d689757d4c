package credstore

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims are the claims the credential store puts in access tokens.
type tokenClaims struct {
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// verifyLocal checks an HS256 access token against the project secret.
// Anonymous tokens (role "anon") carry no user and are rejected.
func verifyLocal(secret []byte, token string) (*Identity, error) {
	claims := new(tokenClaims)
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience("authenticated"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if claims.Subject == "" || claims.Role == "anon" {
		return nil, fmt.Errorf("%w: token has no user", ErrInvalidCredential)
	}
	return user{ID: claims.Subject, Email: claims.Email, UserMetadata: claims.UserMetadata}.identity(), nil
}
