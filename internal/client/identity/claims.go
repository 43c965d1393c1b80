package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// sessionClaims are the profile claims the service puts into access tokens.
type sessionClaims struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	FullName    string `json:"full_name"`
	PasswordSet bool   `json:"password_set"`
	jwt.RegisteredClaims
}

// userFromToken reads the user profile carried by an access token.
// The signature is not checked here: tokens come straight from the service
// over its own channel and are only verified by the service itself.
func userFromToken(token string) (*User, error) {
	claims := &sessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("session token has no subject")
	}

	role, err := ParseRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("session token: %w", err)
	}

	return &User{
		ID:          claims.Subject,
		Email:       claims.Email,
		Role:        role,
		FullName:    claims.FullName,
		PasswordSet: claims.PasswordSet,
	}, nil
}
