package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/flexora/jobboard-api/internal/domain"
	"github.com/flexora/jobboard-api/pkg/logger"
)

// ErrorResponse is the JSON error body. Message is safe for clients; Code is
// a machine-readable discriminator.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Common error codes
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeOTPExpired         = "OTP_EXPIRED"
	CodeInvalidOTP         = "INVALID_OTP"
	CodeSessionExpired     = "SESSION_EXPIRED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeMailFailure        = "MAIL_FAILURE"
	CodeInternalError      = "INTERNAL_ERROR"
)

func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Message: message, Code: code})
}

// FromError maps domain errors to HTTP responses. Client-visible messages for
// credential and OTP failures stay deliberately generic; anything unexpected
// is logged and becomes an opaque 500.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		WriteError(w, http.StatusBadRequest, err.Error(), CodeInvalidInput)
	case errors.Is(err, domain.ErrEmailExists):
		WriteError(w, http.StatusBadRequest, "Email already exists", CodeEmailExists)
	case errors.Is(err, domain.ErrOTPExpired):
		WriteError(w, http.StatusBadRequest, "OTP expired or invalid", CodeOTPExpired)
	case errors.Is(err, domain.ErrInvalidOTP):
		WriteError(w, http.StatusBadRequest, "Invalid OTP", CodeInvalidOTP)
	case errors.Is(err, domain.ErrSessionExpired):
		WriteError(w, http.StatusBadRequest, "Session expired. Please register again", CodeSessionExpired)
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusBadRequest, "Invalid email or password", CodeInvalidCredentials)
	case errors.Is(err, domain.ErrInvalidToken):
		WriteError(w, http.StatusForbidden, "Invalid or expired token", CodeInvalidToken)
	case errors.Is(err, domain.ErrAccountNotFound):
		WriteError(w, http.StatusForbidden, "Account not found", CodeNotFound)
	case errors.Is(err, domain.ErrNotificationFailure):
		WriteError(w, http.StatusInternalServerError, "Failed to send OTP email", CodeMailFailure)
	default:
		logger.ErrorContext(r.Context(), "Unhandled error", "error", err, "path", r.URL.Path)
		WriteError(w, http.StatusInternalServerError, "Internal server error", CodeInternalError)
	}
}
