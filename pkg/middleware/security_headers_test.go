package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders(SecurityHeadersConfig{DocsPrefix: "/swagger/", NoStorePrefix: "/api/"}))
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/api/v1/sales/sales", ok)
	e.GET("/swagger/*", ok)
	e.GET("/health", ok)

	tests := []struct {
		path        string
		wantPolicy  string
		wantNoStore bool
	}{
		{"/api/v1/sales/sales", APIPolicy, true},
		{"/swagger/index.html", DocsPolicy, false},
		{"/health", APIPolicy, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantPolicy, rec.Header().Get("Content-Security-Policy"))
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
			assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
			if tt.wantNoStore {
				assert.Equal(t, "no-store", rec.Header().Get(echo.HeaderCacheControl))
			} else {
				assert.Empty(t, rec.Header().Get(echo.HeaderCacheControl))
			}
		})
	}
}

func TestSecurityHeaders_ErrorResponses(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders(SecurityHeadersConfig{NoStorePrefix: "/api/"}))
	e.GET("/api/v1/fail", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusForbidden, "nope")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/fail", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, APIPolicy, rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "no-store", rec.Header().Get(echo.HeaderCacheControl))
}
