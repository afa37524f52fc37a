package logger

import (
	"time"

	"github.com/labstack/echo/v4"
)

// RequestIDKey is the header and context key carrying the request id.
const RequestIDKey = "X-Request-ID"

const contextKey = "logger"

// Middleware returns an Echo middleware that logs HTTP requests and stores a
// request-scoped logger in the context.
func Middleware(base Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			requestID := c.Request().Header.Get(RequestIDKey)
			if requestID == "" {
				requestID = c.Response().Header().Get(RequestIDKey)
			}

			reqLogger := base.With("request_id", requestID)
			c.Set(contextKey, reqLogger)

			err := next(c)

			fields := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"latency", time.Since(start),
				"ip", c.RealIP(),
			}
			if err != nil {
				reqLogger.Error("HTTP request failed", append(fields, "error", err)...)
			} else {
				reqLogger.Info("HTTP request completed", fields...)
			}
			return err
		}
	}
}

// FromEcho returns the request-scoped logger, falling back to the given one.
func FromEcho(c echo.Context, fallback Logger) Logger {
	if l, ok := c.Get(contextKey).(Logger); ok {
		return l
	}
	if fallback == nil {
		return Default()
	}
	return fallback
}
