package middleware

import (
	"net/http"

	apimw "github.com/jordanlanch/backoffice/pkg/api/middleware"
	"github.com/jordanlanch/backoffice/pkg/i18n"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/labstack/echo/v4"
)

// RequireAdmin ensures the authenticated user is an administrator.
// Apply it after the JWT middleware.
func RequireAdmin() echo.MiddlewareFunc {
	return RequireRole(models.RoleAdmin)
}

// RequireRole ensures the authenticated user holds one of roles.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := apimw.Actor(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "unauthorized",
					Message: i18n.T(c, i18n.MsgUnauthorized),
				})
			}

			if !models.Contains(roles, actor.Role) {
				return c.JSON(http.StatusForbidden, models.ErrorResponse{
					Error:   "insufficient_permissions",
					Message: i18n.T(c, i18n.MsgAdminRequired),
					Details: map[string]string{"current_role": string(actor.Role)},
				})
			}
			return next(c)
		}
	}
}
