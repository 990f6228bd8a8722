package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSymmetricKey = "0123456789abcdef0123456789abcdef"

func TestNewTokenMaker_RejectsShortKey(t *testing.T) {
	_, err := NewTokenMaker("short", nil)
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)
	maker, err := NewTokenMaker(testSymmetricKey, func() time.Time { return now })
	require.NoError(t, err)

	access, refresh, err := maker.GenerateTokens(42, "caregiver")
	require.NoError(t, err)
	assert.NotEqual(t, access, refresh)

	claims, err := maker.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "caregiver", claims.Role)

	_, err = maker.ValidateToken(access, "patient", "caregiver")
	require.NoError(t, err)

	_, err = maker.ValidateToken(access, "patient")
	assert.ErrorIs(t, err, ErrInsufficientPermission)
}

func TestTokenExpiry(t *testing.T) {
	now := time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	maker, err := NewTokenMaker(testSymmetricKey, clock)
	require.NoError(t, err)

	access, refresh, err := maker.GenerateTokens(1, "patient")
	require.NoError(t, err)

	now = now.Add(AccessTokenExpiry + time.Minute)
	_, err = maker.ValidateToken(access)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = maker.ValidateToken(refresh)
	assert.NoError(t, err)
}

func TestValidateToken_RejectsForeignKey(t *testing.T) {
	issuer, err := NewTokenMaker(testSymmetricKey, nil)
	require.NoError(t, err)
	other, err := NewTokenMaker("fedcba9876543210fedcba9876543210", nil)
	require.NoError(t, err)

	token, err := issuer.GenerateAccessToken(1, "patient")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
	_, err = issuer.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Str0ng!Pass")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "Str0ng!Pass"))
	assert.False(t, CheckPassword(hash, "str0ng!pass"))
}
