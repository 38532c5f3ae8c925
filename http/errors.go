package http

import (
	"errors"
	"net/http"

	"github.com/sagarc03/filedock"
)

// statusFor maps an error to its HTTP status and machine-readable code.
func statusFor(err error) (int, string) {
	if errors.Is(err, filedock.ErrUnauthorized) {
		return http.StatusUnauthorized, "unauthorized"
	}

	kind := filedock.KindOf(err)
	switch kind {
	case filedock.KindValidation:
		return http.StatusBadRequest, kind.String()
	case filedock.KindNotFound:
		return http.StatusNotFound, kind.String()
	case filedock.KindConflict:
		return http.StatusConflict, kind.String()
	default:
		return http.StatusInternalServerError, kind.String()
	}
}

func defaultMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "Invalid request"
	case http.StatusNotFound:
		return "Resource not found"
	case http.StatusConflict:
		return "Request conflicts with existing data"
	case http.StatusUnauthorized:
		return "Invalid or expired signature"
	default:
		return "Internal server error"
	}
}

func messageOf(err error, code int) string {
	return filedock.MessageOf(err, defaultMessage(code))
}
