package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apimw "github.com/jordanlanch/backoffice/pkg/api/middleware"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func serve(t *testing.T, h echo.HandlerFunc, ip string, userID uint, lang string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = ip + ":1234"
	if lang != "" {
		req.Header.Set("Accept-Language", lang)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != 0 {
		c.Set(apimw.ActorKey, scope.Actor{UserID: userID})
	}
	assert.NoError(t, h(c))
	return rec
}

func TestRateLimiter_Burst(t *testing.T) {
	rl := NewRateLimiter(60, 3)
	limited := 0
	rl.OnLimit = func() { limited++ }
	h := rl.Middleware()(func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(t, h, "10.0.0.1", 0, "").Code)
	}
	rec := serve(t, h, "10.0.0.1", 0, "")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")
	assert.Equal(t, 1, limited)

	assert.Equal(t, http.StatusOK, serve(t, h, "10.0.0.2", 0, "").Code, "other clients keep their own bucket")
}

func TestRateLimiter_KeysByUser(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	h := rl.Middleware()(func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	assert.Equal(t, http.StatusOK, serve(t, h, "10.0.0.1", 1, "").Code)
	assert.Equal(t, http.StatusOK, serve(t, h, "10.0.0.1", 2, "").Code, "same IP, different user")
	assert.Equal(t, http.StatusTooManyRequests, serve(t, h, "10.0.0.9", 1, "").Code, "same user, different IP")
}

func TestRateLimiter_LocalizedMessage(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	h := rl.Middleware()(func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	serve(t, h, "10.0.0.1", 0, "ar")
	rec := serve(t, h, "10.0.0.1", 0, "ar")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "طلبات كثيرة جداً")
}

func TestRateLimiter_Cleanup(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 1)
	rl.now = func() time.Time { return now }

	rl.limiter("ip:a")
	now = now.Add(2 * time.Minute)
	rl.limiter("ip:b")
	now = now.Add(2 * time.Minute)

	assert.Equal(t, 1, rl.Cleanup())
	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "ip:b")
}
