package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	assert.NotEqual(t, "hunter2", hash)
	assert.True(t, VerifyPassword(hash, "hunter2"))
	assert.False(t, VerifyPassword(hash, "hunter3"))
}

func TestVerifyGarbageHash(t *testing.T) {
	assert.False(t, VerifyPassword("not-a-hash", "anything"))
}

func TestTokenRoundTrip(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour)

	token, err := manager.Issue("alice")
	require.NoError(t, err)

	username, err := manager.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret", time.Hour).Issue("alice")
	require.NoError(t, err)

	_, err = NewJWTManager("other", time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiry(t *testing.T) {
	manager := NewJWTManager("secret", -time.Minute)

	token, err := manager.Issue("alice")
	require.NoError(t, err)

	_, err = manager.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenGarbage(t *testing.T) {
	_, err := NewJWTManager("secret", time.Hour).Validate("definitely.not.ajwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
