package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jordanlanch/backoffice/pkg/auth"
	"github.com/jordanlanch/backoffice/pkg/cache"
	"github.com/jordanlanch/backoffice/pkg/database/dbtest"
	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-key-minimum-32-characters-long"

func TestJWT(t *testing.T) {
	db := dbtest.Open(t)
	mr := miniredis.RunT(t)
	client, err := cache.NewClient("redis://"+mr.Addr(), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	blacklist := auth.NewTokenBlacklist(client)

	active := models.User{Username: "alice", Role: models.RoleManager, IsActive: true}
	require.NoError(t, db.Create(&active).Error)
	inactive := models.User{Username: "bob", Role: models.RoleEmployee}
	require.NoError(t, db.Create(&inactive).Error)

	var seen scope.Actor
	handler := JWT(secret, blacklist, db)(func(c echo.Context) error {
		seen, _ = Actor(c)
		return c.NoContent(http.StatusOK)
	})

	call := func(header string) *httptest.ResponseRecorder {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		require.NoError(t, handler(e.NewContext(req, rec)))
		return rec
	}
	tokenFor := func(id uint) string {
		tok, err := auth.GenerateJWT(id, "someone", secret, time.Hour)
		require.NoError(t, err)
		return tok
	}

	t.Run("Success - actor loaded from the store", func(t *testing.T) {
		rec := call("Bearer " + tokenFor(active.ID))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, scope.Actor{UserID: active.ID, Role: models.RoleManager}, seen)
	})

	t.Run("Error - missing header", func(t *testing.T) {
		rec := call("")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "missing_token")
	})

	t.Run("Error - wrong scheme", func(t *testing.T) {
		rec := call("Token " + tokenFor(active.ID))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid_token_format")
	})

	t.Run("Error - inactive user", func(t *testing.T) {
		rec := call("Bearer " + tokenFor(inactive.ID))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "account_inactive")
	})

	t.Run("Error - unknown user", func(t *testing.T) {
		rec := call("Bearer " + tokenFor(9999))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "user_not_found")
	})

	t.Run("Error - revoked token", func(t *testing.T) {
		tok := tokenFor(active.ID)
		require.NoError(t, blacklist.Add(context.Background(), tok, time.Hour))

		rec := call("Bearer " + tok)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "token_revoked")
	})
}
