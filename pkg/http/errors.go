package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// Stable machine-readable rejection reasons. Callers map these to behavior;
// the strings are part of the API contract and must not change.
const (
	ReasonInvalidCredentials     = "invalid_credentials"
	ReasonAccountLocked          = "account_locked"
	ReasonAccountInactive        = "account_inactive"
	ReasonRateLimited            = "rate_limited"
	ReasonTokenInvalidOrExpired  = "token_invalid_or_expired"
	ReasonPasswordTooWeak        = "password_too_weak"
	ReasonPasswordUnchanged      = "password_unchanged"
	ReasonEmailInUse             = "email_in_use"
	ReasonForbiddenTierEscalation = "forbidden_tier_escalation"
	ReasonSelfDeleteForbidden    = "self_delete_forbidden"
)

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error   string `json:"error"`             // Machine-readable reason code
	Message string `json:"message"`           // Human-readable message
	Details string `json:"details,omitempty"` // Optional additional context
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteErrorWithDetails(w, statusCode, errorCode, message, "")
}

// WriteErrorWithDetails writes a JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, errorCode, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Error:   errorCode,
		Message: message,
		Details: details,
	}

	// Encoding errors are not surfaced to the client
	_ = json.NewEncoder(w).Encode(resp)
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteInvalidCredentials(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, ReasonInvalidCredentials, "Invalid email or password")
}

func WriteForbidden(w http.ResponseWriter, errorCode, message string) {
	WriteError(w, http.StatusForbidden, errorCode, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

func WriteConflict(w http.ResponseWriter, errorCode, message string) {
	WriteError(w, http.StatusConflict, errorCode, message)
}

// WriteTooManyRequests writes a 429 with a Retry-After header when the caller
// knows when the window or lockout expires.
func WriteTooManyRequests(w http.ResponseWriter, errorCode, message string, retryAfter time.Duration) {
	if retryAfter > 0 {
		seconds := int(retryAfter.Round(time.Second).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	WriteError(w, http.StatusTooManyRequests, errorCode, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}
