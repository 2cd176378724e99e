package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errNotAccessToken = errors.New("token is not an access token")
	errNoSubject      = errors.New("token has no subject")
)

// Validator verifies HS256 access tokens issued by the identity service.
type Validator struct {
	secret []byte
}

// NewValidator builds a validator for the shared signing secret.
func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

type accessClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// Validate checks signature, expiry, and the access-token type claim,
// returning the subject user id.
func (v *Validator) Validate(token string) (string, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}
	if claims.Type != "access" {
		return "", errNotAccessToken
	}
	if claims.Subject == "" {
		return "", errNoSubject
	}
	return claims.Subject, nil
}
