package clientcli

import (
	"errors"
	"fmt"
	"net/http"
)

// Errors for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoProfiles      = errors.New("no profiles configured")
	ErrProfileExists   = errors.New("profile already exists")
)

var ErrConfigRequired = errors.New("config is required")

// Errors for input validation.
var (
	ErrNoIDs     = errors.New("no IDs provided")
	ErrEmptyPath = errors.New("path is required")
	ErrEmptyID   = errors.New("ID is required")
)

// APIError is a non-2xx response from the filedock API or an object store.
// Code and Message are filled from the JSON error body when there is one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    string
	Body       string
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "" && e.Details != "":
		return fmt.Sprintf("server error: %d %s - %s (%s)", e.StatusCode, e.Code, e.Message, e.Details)
	case e.Message != "":
		return fmt.Sprintf("server error: %d %s - %s", e.StatusCode, e.Code, e.Message)
	default:
		return fmt.Sprintf("server error: %d - %s", e.StatusCode, e.Body)
	}
}

// Is matches any *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	ErrBadRequest   = &APIError{StatusCode: http.StatusBadRequest}
	ErrUnauthorized = &APIError{StatusCode: http.StatusUnauthorized}
	ErrNotFound     = &APIError{StatusCode: http.StatusNotFound}
	ErrConflict     = &APIError{StatusCode: http.StatusConflict}
	ErrTooLarge     = &APIError{StatusCode: http.StatusRequestEntityTooLarge}
)
