package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/shopauth"
)

// StatusCSRFMismatch is returned when the csrf header is missing or wrong.
// The session itself was valid, so this is kept apart from 401 and 403.
const StatusCSRFMismatch = 419

var errMalformedCSRF = errors.New("malformed csrf token")

// ErrorResponse is the JSON body of every error written by this package.
type ErrorResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes v as the response body with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"message": msg} with status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Message: msg})
}

// StatusFor maps the session and login errors shared by every route onto a
// status and client message. ok is false for anything else, which callers
// must treat as internal.
func StatusFor(err error) (status int, msg string, ok bool) {
	switch {
	case errors.Is(err, shopauth.ErrSessionNotFound), errors.Is(err, shopauth.ErrUserNotFound):
		return http.StatusUnauthorized, "unauthorized", true
	case errors.Is(err, shopauth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials", true
	case errors.Is(err, shopauth.ErrCSRFMismatch):
		return StatusCSRFMismatch, "invalid csrf token", true
	case errors.Is(err, errMalformedCSRF):
		return http.StatusBadRequest, "malformed csrf token", true
	case errors.Is(err, shopauth.ErrBruteforceLockout):
		return http.StatusTooManyRequests, "too many attempts", true
	default:
		return http.StatusInternalServerError, "internal error", false
	}
}

// WriteFailure writes the response StatusFor chooses for err, logging errors
// that end up as 500.
func WriteFailure(w http.ResponseWriter, r *http.Request, logger Logger, err error) {
	status, msg, ok := StatusFor(err)
	if !ok {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	WriteError(w, status, msg)
}
