package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenValidatorRoundTrip(t *testing.T) {
	v := NewTokenValidator("super-secret", "")
	token, err := v.Issue("user-123", time.Hour)
	require.NoError(t, err)

	userID, err := v.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestTokenValidatorRejects(t *testing.T) {
	v := NewTokenValidator("super-secret", "authenticated")

	expired, err := v.Issue("user-123", -time.Hour)
	require.NoError(t, err)
	_, err = v.Validate(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewTokenValidator("other-secret", "authenticated").Issue("user-123", time.Hour)
	require.NoError(t, err)
	_, err = v.Validate(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongAud, err := NewTokenValidator("super-secret", "anon").Issue("user-123", time.Hour)
	require.NoError(t, err)
	_, err = v.Validate(wrongAud)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{"authenticated"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("super-secret"))
	require.NoError(t, err)
	_, err = v.Validate(noSub)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Validate("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
