package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jordanlanch/backoffice/pkg/cache"
	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-key-minimum-32-characters-long"

func setupBlacklist(t *testing.T) (*TokenBlacklist, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := cache.NewClient("redis://"+mr.Addr(), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewTokenBlacklist(client), mr
}

func TestValidateJWT(t *testing.T) {
	t.Run("Success - round trip", func(t *testing.T) {
		token, err := GenerateJWT(123, "alice", secret, time.Hour)
		require.NoError(t, err)

		claims, err := ValidateJWT(token, secret)

		require.NoError(t, err)
		assert.Equal(t, uint(123), claims.UserID)
		assert.Equal(t, "alice", claims.Username)
		assert.InDelta(t, time.Hour.Seconds(), claims.Remaining(time.Now()).Seconds(), 5)
	})

	t.Run("Error - wrong secret", func(t *testing.T) {
		token, err := GenerateJWT(1, "alice", secret, time.Hour)
		require.NoError(t, err)

		_, err = ValidateJWT(token, "another-secret-key-minimum-32-characters")
		assert.Error(t, err)
	})

	t.Run("Error - expired", func(t *testing.T) {
		token, err := GenerateJWT(1, "alice", secret, -time.Minute)
		require.NoError(t, err)

		_, err = ValidateJWT(token, secret)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("Error - other signing method", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1})
		raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = ValidateJWT(raw, secret)
		assert.Error(t, err)
	})

	t.Run("Error - malformed", func(t *testing.T) {
		_, err := ValidateJWT("not.a.token", secret)
		assert.Error(t, err)
	})
}

func TestTokenBlacklist(t *testing.T) {
	blacklist, mr := setupBlacklist(t)
	ctx := context.Background()

	token, err := GenerateJWT(7, "bob", secret, time.Hour)
	require.NoError(t, err)

	t.Run("Success - valid before revocation", func(t *testing.T) {
		claims, err := ValidateJWTWithBlacklist(ctx, token, secret, blacklist)
		require.NoError(t, err)
		assert.Equal(t, uint(7), claims.UserID)
	})

	t.Run("Error - revoked", func(t *testing.T) {
		require.NoError(t, blacklist.Add(ctx, token, time.Hour))

		_, err := ValidateJWTWithBlacklist(ctx, token, secret, blacklist)
		assert.ErrorIs(t, err, ErrRevoked)
	})

	t.Run("Success - entry expires with the token", func(t *testing.T) {
		mr.FastForward(2 * time.Hour)

		revoked, err := blacklist.IsBlacklisted(ctx, token)
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("Success - raw token is not stored", func(t *testing.T) {
		require.NoError(t, blacklist.Add(ctx, token, time.Hour))
		assert.False(t, mr.Exists("jwt:blacklist:"+token))
		assert.Len(t, mr.Keys(), 1)
	})

	t.Run("Success - nil blacklist skips the check", func(t *testing.T) {
		other, err := GenerateJWT(8, "carol", secret, time.Hour)
		require.NoError(t, err)
		_, err = ValidateJWTWithBlacklist(ctx, other, secret, nil)
		assert.NoError(t, err)
	})
}
