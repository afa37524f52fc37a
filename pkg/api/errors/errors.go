// Package errors writes error responses. Internal details are logged and
// never sent to the client.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/i18n"
	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/labstack/echo/v4"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ValidationError returns a validation error listing the offending fields.
func ValidationError(c echo.Context, err error) error {
	logger.FromEcho(c, nil).Debug("validation error", "path", c.Request().URL.Path, "error", err)

	resp := models.ErrorResponse{
		Error:   "validation_error",
		Message: i18n.T(c, i18n.MsgValidationFailed),
	}
	if de, ok := domain.AsDomainError(err); ok {
		resp.Details = de.Fields
	}
	return c.JSON(http.StatusBadRequest, resp)
}

// BadRequest returns a malformed request error.
func BadRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

// InternalError returns a generic internal server error
func InternalError(c echo.Context, err error) error {
	logger.FromEcho(c, nil).Error("internal error", "path", c.Request().URL.Path, "error", err)

	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: i18n.T(c, i18n.MsgInternalError),
	})
}

// UnauthorizedError returns a generic unauthorized error
func UnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "unauthorized",
		Message: i18n.T(c, i18n.MsgUnauthorized),
	})
}

// ForbiddenError returns a forbidden error with a localized message.
func ForbiddenError(c echo.Context, message string) error {
	if message == "" {
		message = i18n.MsgForbidden
	}
	return c.JSON(http.StatusForbidden, models.ErrorResponse{
		Error:   "forbidden",
		Message: localize(i18n.FromEcho(c), message),
	})
}

// NotFoundError returns a localized not found error for resource.
func NotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:   "not_found",
		Message: i18n.NotFound(i18n.FromEcho(c), resource),
	})
}

// ConflictError returns a conflict error
func ConflictError(c echo.Context, message string, details map[string]string) error {
	return c.JSON(http.StatusConflict, models.ErrorResponse{
		Error:   "conflict",
		Message: message,
		Details: details,
	})
}

// TimeoutError is returned when a request ran out of time.
func TimeoutError(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
		Error:   "timeout",
		Message: i18n.T(c, i18n.MsgTimeout),
	})
}

// FromDomain writes the response matching err. Domain errors map onto
// their status code, anything else is an internal error.
func FromDomain(c echo.Context, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		logger.FromEcho(c, nil).Warn("request timed out", "path", c.Request().URL.Path, "error", err)
		return TimeoutError(c)
	}
	de, ok := domain.AsDomainError(err)
	if !ok {
		return InternalError(c, err)
	}
	tag := i18n.FromEcho(c)

	switch de.Code {
	case domain.ErrCodeNotFound:
		return NotFoundError(c, de.Resource)
	case domain.ErrCodeValidation:
		if len(de.Fields) > 0 && de.Message == "validation failed" {
			return ValidationError(c, de)
		}
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: localizeError(tag, de),
			Details: de.Fields,
		})
	case domain.ErrCodeForbidden:
		return ForbiddenError(c, de.Message)
	case domain.ErrCodeUnauthorized:
		return UnauthorizedError(c)
	case domain.ErrCodeConflict:
		if de.Err != nil {
			logger.FromEcho(c, nil).Warn("conflict", "path", c.Request().URL.Path, "error", de.Err)
		}
		return ConflictError(c, localizeError(tag, de), de.Fields)
	case domain.ErrCodeBadRequest:
		return BadRequest(c, localize(tag, de.Message))
	}
	return InternalError(c, err)
}

// localizeError renders the message of de in tag, substituting the
// localized resource name into the known templates.
func localizeError(tag language.Tag, de *domain.DomainError) string {
	if tag == language.English {
		return de.Message
	}
	p := message.NewPrinter(tag)
	if de.Resource != "" {
		for _, tmpl := range i18n.ResourceTemplates {
			if fmt.Sprintf(tmpl, de.Resource) == de.Message {
				return p.Sprintf(tmpl, p.Sprintf(de.Resource))
			}
		}
	}
	if sku, ok := de.Fields["sku"]; ok && fmt.Sprintf(i18n.MsgInsufficientStock, sku) == de.Message {
		return p.Sprintf(i18n.MsgInsufficientStock, sku)
	}
	return localize(tag, de.Message)
}

func localize(tag language.Tag, msg string) string {
	if !i18n.Has(msg) {
		return msg
	}
	return i18n.Translate(tag, msg)
}
