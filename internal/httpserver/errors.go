package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/user_management/internal/oauth"
	"github.com/Skotchmaster/user_management/internal/service"
)

type errorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// statusFor maps a service error onto its HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, oauth.ErrUnsupportedProvider):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, oauth.ErrMissingFederatedEmail),
		errors.Is(err, oauth.ErrProviderConflict):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrTokenRefresh),
		errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrStorageConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// toHTTPError turns a service error into an echo error. Internal errors get a
// generic message so nothing about storage leaks to clients.
func toHTTPError(err error) *echo.HTTPError {
	code := statusFor(err)
	msg := err.Error()
	switch {
	case code == http.StatusInternalServerError:
		msg = "internal error"
	case errors.Is(err, service.ErrValidation):
		msg = "invalid request: " + strings.TrimPrefix(msg, service.ErrValidation.Error()+": ")
	}
	return echo.NewHTTPError(code, errorResponse{Status: code, Message: msg}).SetInternal(err)
}
