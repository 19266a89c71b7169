package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid access token")

// TokenValidator verifies Supabase access tokens (HS256, signed with the project's JWT secret).
type TokenValidator struct {
	Secret   []byte
	Audience string
	Leeway   time.Duration
}

func NewTokenValidator(secret, audience string) *TokenValidator {
	if audience == "" {
		audience = "authenticated"
	}
	return &TokenValidator{Secret: []byte(secret), Audience: audience, Leeway: 30 * time.Second}
}

// AccessClaims is the subset of Supabase claims the service reads.
type AccessClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Validate returns the user id carried in "sub".
func (v *TokenValidator) Validate(tokenString string) (string, error) {
	claims, err := v.Claims(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Claims parses and verifies the token.
func (v *TokenValidator) Claims(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(v.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.Leeway),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Issue signs a token for userID. Used by tests and local tooling.
func (v *TokenValidator) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Role: "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{v.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.Secret)
}
