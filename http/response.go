package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse represents a JSON error response. Details carries the
// underlying error and is omitted in production.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	writeErrorResponse(w, code, ErrorResponse{Error: errCode, Message: message})
}

func writeErrorResponse(w http.ResponseWriter, code int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError classifies err and writes the matching error response.
// Internal errors get a generic message; the cause is attached as details
// only when exposeDetails is set.
func HandleError(w http.ResponseWriter, err error, exposeDetails bool) {
	code, errCode := statusFor(err)

	resp := ErrorResponse{Error: errCode}
	if code == http.StatusInternalServerError {
		slog.Error("request error", "error", err)
		resp.Message = defaultMessage(code)
	} else {
		resp.Message = messageOf(err, code)
	}
	if exposeDetails {
		resp.Details = err.Error()
	}

	writeErrorResponse(w, code, resp)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
