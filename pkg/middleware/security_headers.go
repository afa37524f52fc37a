package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	// APIPolicy is sent with JSON responses. Nothing in them is rendered.
	APIPolicy = "default-src 'none'; frame-ancestors 'none'"
	// DocsPolicy lets the Swagger UI run its bundled scripts and styles.
	DocsPolicy = "default-src 'self'; script-src 'self' 'unsafe-inline'; " +
		"style-src 'self' 'unsafe-inline'; img-src 'self' data:; frame-ancestors 'none'"
)

// SecurityHeadersConfig selects the paths that get special treatment.
type SecurityHeadersConfig struct {
	// DocsPrefix is served with DocsPolicy instead of APIPolicy.
	DocsPrefix string
	// NoStorePrefix marks responses that carry business data and must not
	// be kept by caches.
	NoStorePrefix string
}

// SecurityHeaders sets the content security, framing and caching headers
// of every response.
func SecurityHeaders(cfg SecurityHeadersConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			h := c.Response().Header()

			policy := APIPolicy
			if hasPrefix(path, cfg.DocsPrefix) {
				policy = DocsPolicy
			}
			h.Set("Content-Security-Policy", policy)
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			if hasPrefix(path, cfg.NoStorePrefix) {
				h.Set(echo.HeaderCacheControl, "no-store")
			}
			return next(c)
		}
	}
}

func hasPrefix(path, prefix string) bool {
	return prefix != "" && strings.HasPrefix(path, prefix)
}
