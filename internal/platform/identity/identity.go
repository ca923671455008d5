// Package identity verifies federated sign-in tokens minted by the trusted
// identity gateway and extracts the email claim. Callers never see token
// internals.
package identity

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret string
}

func New(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// EmailFromToken validates the token signature and expiry and returns the
// email claim.
func (v *Verifier) EmailFromToken(tokenString string) (string, error) {
	if v.secret == "" {
		return "", errors.New("identity verification not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(v.secret), nil
	})
	if err != nil {
		return "", err
	}
	parsed, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", errors.New("invalid identity token")
	}
	if parsed.Email == "" {
		return "", errors.New("identity token has no email claim")
	}
	return parsed.Email, nil
}
