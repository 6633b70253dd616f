package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/abdulaziz-backend/pixelpainter/internal/service"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_IssueAndParse(t *testing.T) {
	tokens, err := service.NewTokenService("test-secret", 1)
	require.NoError(t, err)

	token, err := tokens.Issue("abc123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	id, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
}

func TestTokenService_RequiresSecret(t *testing.T) {
	_, err := service.NewTokenService("", 1)
	assert.Error(t, err)
}

func TestTokenService_RejectsForeignSignature(t *testing.T) {
	issuer, _ := service.NewTokenService("secret-a", 1)
	verifier, _ := service.NewTokenService("secret-b", 1)

	token, err := issuer.Issue("abc")
	require.NoError(t, err)

	_, err = verifier.Parse(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInvalidToken))
	assert.False(t, service.IsExpired(err))
}

func TestTokenService_RejectsExpired(t *testing.T) {
	tokens, _ := service.NewTokenService("secret", 1)
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		service.SessionClaim: "abc",
		"exp":                time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = tokens.Parse(signed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInvalidToken))
	assert.True(t, service.IsExpired(err))
}

func TestTokenService_RequiresSessionClaim(t *testing.T) {
	tokens, _ := service.NewTokenService("secret", 1)
	noClaim := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 5})
	signed, _ := noClaim.SignedString([]byte("secret"))

	_, err := tokens.Parse(signed)
	assert.True(t, errors.Is(err, service.ErrInvalidToken))
}
