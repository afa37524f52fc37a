// Package middleware authenticates API requests and exposes the resulting
// actor to handlers.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jordanlanch/backoffice/pkg/auth"
	"github.com/jordanlanch/backoffice/pkg/i18n"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// Context keys set by JWT.
const (
	TokenKey  = "token"
	ClaimsKey = "claims"
	ActorKey  = "actor"
)

// JWT validates the bearer token, rejects revoked tokens and loads the
// user behind it. Inactive or missing users are rejected.
func JWT(secret string, blacklist *auth.TokenBlacklist, db *gorm.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorized(c, "missing_token", "Authorization header is required")
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return unauthorized(c, "invalid_token_format", "Authorization header must be 'Bearer {token}'")
			}
			token := parts[1]

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			claims, err := auth.ValidateJWTWithBlacklist(ctx, token, secret, blacklist)
			if err != nil {
				if errors.Is(err, auth.ErrRevoked) {
					return unauthorized(c, "token_revoked", err.Error())
				}
				return unauthorized(c, "invalid_token", i18n.T(c, i18n.MsgUnauthorized))
			}

			var user models.User
			if err := db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return unauthorized(c, "user_not_found", "User account not found")
				}
				return err
			}
			if !user.IsActive {
				return unauthorized(c, "account_inactive", "This account has been deactivated")
			}

			c.Set(TokenKey, token)
			c.Set(ClaimsKey, claims)
			c.Set(ActorKey, scope.Actor{UserID: user.ID, Role: user.Role})
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, code, msg string) error {
	return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: code, Message: msg})
}

// Actor returns the authenticated actor of the request.
func Actor(c echo.Context) (scope.Actor, bool) {
	a, ok := c.Get(ActorKey).(scope.Actor)
	return a, ok
}

// Claims returns the validated token claims of the request.
func Claims(c echo.Context) (*auth.Claims, bool) {
	cl, ok := c.Get(ClaimsKey).(*auth.Claims)
	return cl, ok
}
