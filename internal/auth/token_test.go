package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestTokenStore_MissingToken(t *testing.T) {
	s := NewTokenStore()
	_, err := s.Token()
	assert.ErrorIs(t, err, ErrMissingToken)
	assert.Equal(t, "", s.Optional())
}

func TestTokenStore_ReadsClaims(t *testing.T) {
	s := NewTokenStore()
	s.Set(signed(t, jwt.MapClaims{
		"user_id": 42,
		"roles":   []string{"admin", "cliente"},
		"exp":     time.Now().Add(time.Hour).Unix(),
	}))

	tok, err := s.Token()
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	c := s.Claims()
	assert.Equal(t, int64(42), c.UserID)
	assert.True(t, c.HasRole("admin"))
	assert.False(t, c.HasRole("asistente"))
}

func TestTokenStore_Expired(t *testing.T) {
	s := NewTokenStore()
	s.Set(signed(t, jwt.MapClaims{"userId": "7", "exp": time.Now().Add(-time.Minute).Unix()}))

	_, err := s.Token()
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, int64(7), s.Claims().UserID)
}

func TestTokenStore_OpaqueToken(t *testing.T) {
	s := NewTokenStore()
	s.Set("not-a-jwt")

	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "not-a-jwt", tok)
	assert.Zero(t, s.Claims().UserID)
}

func TestTokenStore_Clear(t *testing.T) {
	s := NewTokenStore()
	s.Set(signed(t, jwt.MapClaims{"id": 1, "role": "admin"}))
	assert.True(t, s.Claims().HasRole("admin"))

	s.Clear()
	_, err := s.Token()
	assert.ErrorIs(t, err, ErrMissingToken)
	assert.False(t, s.Claims().HasRole("admin"))
}
