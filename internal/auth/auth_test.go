package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_GenerateToken(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	token, err := svc.GenerateToken(1, "testuser")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestService_ValidateToken_Valid(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	token, err := svc.GenerateToken(1, "testuser")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)

	require.NoError(t, err)
	assert.Equal(t, 1, claims.UserID)
	assert.Equal(t, "testuser", claims.Username)
}

func TestService_ValidateToken_Invalid(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	_, err := svc.ValidateToken("invalid-token")

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ValidateToken_WrongSecret(t *testing.T) {
	token, err := NewService("secret-a", time.Hour).GenerateToken(1, "testuser")
	require.NoError(t, err)

	_, err = NewService("secret-b", time.Hour).ValidateToken(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ValidateToken_Expired(t *testing.T) {
	svc := NewService("test-secret", -time.Hour)

	token, err := svc.GenerateToken(1, "testuser")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestCheckPassword(t *testing.T) {
	password := "mypassword123"
	hash, err := HashPassword(password)
	require.NoError(t, err)

	assert.True(t, CheckPassword(password, hash))
	assert.False(t, CheckPassword("wrongpassword", hash))
}
