package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/outpost9/accountd/pkg/domain"
)

// statusFor maps a domain error to an HTTP status code. Unknown errors map
// to 500 and their message is not exposed to the client.
func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidUsername),
		errors.Is(err, domain.ErrWeakPassword),
		errors.Is(err, domain.ErrInvalidResetRequest),
		errors.Is(err, domain.ErrCodeNotRequested),
		errors.Is(err, domain.ErrCodeExpired),
		errors.Is(err, domain.ErrCodeUsed),
		errors.Is(err, domain.ErrCodeInvalid),
		errors.Is(err, domain.ErrTwoFactorNotEnabled):
		return http.StatusBadRequest, true
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrIncorrectPassword),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenInvalid):
		return http.StatusUnauthorized, true
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrAccountNotActive):
		return http.StatusForbidden, true
	case errors.Is(err, domain.ErrPrincipalNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict, true
	case errors.Is(err, domain.ErrNotificationFailed):
		return http.StatusBadGateway, true
	}
	return http.StatusInternalServerError, false
}

// DomainError writes the HTTP translation of a domain error. The error's own
// message is used for known domain errors; anything else is logged and
// reported as a generic internal error.
func DomainError(w http.ResponseWriter, err error) {
	status, known := statusFor(err)
	if !known {
		slog.Error("unexpected error", "error", err)
		Error(w, status, "internal server error")
		return
	}
	// The notification error wraps transport detail that must not reach the
	// client.
	if errors.Is(err, domain.ErrNotificationFailed) {
		slog.Error("notification delivery failed", "error", err)
		Error(w, status, domain.ErrNotificationFailed.Error())
		return
	}
	Error(w, status, err.Error())
}
