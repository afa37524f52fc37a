package middleware

import (
	"net/http"

	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/labstack/echo/v4/middleware"
)

// preflightMaxAge is how long browsers may cache a preflight, in seconds.
const preflightMaxAge = 600

// CORSConfig allows the back office front ends at origins to call the API
// with a bearer token and a preferred language.
func CORSConfig(origins []string) middleware.CORSConfig {
	return middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowCredentials: true,
		AllowHeaders: []string{
			"Content-Type",
			"Accept",
			"Accept-Language",
			"Authorization",
			logger.RequestIDKey,
		},
		ExposeHeaders: []string{logger.RequestIDKey},
		MaxAge:        preflightMaxAge,
	}
}
