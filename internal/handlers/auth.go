package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/numisma/numisma/internal/auth"
	"github.com/numisma/numisma/internal/models"
	"github.com/numisma/numisma/internal/services"
	pkgauth "github.com/numisma/numisma/pkg/auth"
	pkghttp "github.com/numisma/numisma/pkg/http"
)

// AuthServiceInterface defines the authentication business logic the
// handler depends on.
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string, meta services.RequestMeta) (*services.AuthResponse, error)
	CurrentAccount(ctx context.Context, accountID string) (*services.AccountResponse, error)
	ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string, meta services.RequestMeta) error
}

// ResetServiceInterface defines the password reset flow.
type ResetServiceInterface interface {
	Request(ctx context.Context, email string, meta services.RequestMeta) error
	Verify(ctx context.Context, token string) error
	Redeem(ctx context.Context, token, newPassword string, meta services.RequestMeta) error
}

// AuthHandler handles authentication HTTP requests.
type AuthHandler struct {
	service      AuthServiceInterface
	resetService ResetServiceInterface
	ipConfig     *pkghttp.IPConfig

	// Hint for the Retry-After header on throttled responses.
	rateLimitWindow time.Duration
}

func NewAuthHandler(service AuthServiceInterface, resetService ResetServiceInterface, ipConfig *pkghttp.IPConfig, rateLimitWindow time.Duration) *AuthHandler {
	return &AuthHandler{
		service:         service,
		resetService:    resetService,
		ipConfig:        ipConfig,
		rateLimitWindow: rateLimitWindow,
	}
}

// Request DTOs

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (h *AuthHandler) meta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: pkghttp.UserAgent(r),
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// Login authenticates an email/password pair and returns a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	authResp, err := h.service.Login(r.Context(), req.Email, req.Password, h.meta(r))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteInvalidCredentials(w)
		case errors.Is(err, models.ErrAccountLocked):
			var lockErr *models.AccountLockedError
			var retryAfter time.Duration
			if errors.As(err, &lockErr) {
				retryAfter = time.Until(lockErr.Until)
			}
			pkghttp.WriteTooManyRequests(w, pkghttp.ReasonAccountLocked,
				"Account temporarily locked after repeated failures. Try again later.", retryAfter)
		case errors.Is(err, models.ErrAccountInactive):
			pkghttp.WriteError(w, http.StatusUnauthorized, pkghttp.ReasonAccountInactive,
				"Account is deactivated")
		case errors.Is(err, models.ErrRateLimited):
			pkghttp.WriteTooManyRequests(w, pkghttp.ReasonRateLimited,
				"Too many failed login attempts. Please try again later.", h.rateLimitWindow)
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, authResp)
}

// Logout acknowledges a logout. Sessions are stateless, so discarding the
// token client-side is the whole operation.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

// Me returns the authenticated account's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccountFromContext(r)
	if account == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	resp, err := h.service.CurrentAccount(r.Context(), account.ID)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteUnauthorized(w, "Authentication required")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ChangePassword rotates the authenticated account's password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccountFromContext(r)
	if account == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.ChangePassword(r.Context(), account.ID, req.CurrentPassword, req.NewPassword, h.meta(r))
	if err != nil {
		writePasswordChangeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password updated"})
}

// ForgotPassword issues a reset token. The response is the same whether or
// not the email matched an account; only a deactivated account is told apart,
// since it cannot log in either way.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.resetService.Request(r.Context(), req.Email, h.meta(r)); err != nil {
		if errors.Is(err, models.ErrAccountInactive) {
			pkghttp.WriteError(w, http.StatusBadRequest, pkghttp.ReasonAccountInactive,
				"Account is deactivated")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{
		Message: "If that email has an account, a reset link has been sent.",
	})
}

// VerifyResetToken reports whether a reset token is still redeemable.
func (h *AuthHandler) VerifyResetToken(w http.ResponseWriter, r *http.Request) {
	var req VerifyTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.resetService.Verify(r.Context(), req.Token); err != nil {
		if errors.Is(err, models.ErrTokenInvalid) {
			pkghttp.WriteError(w, http.StatusBadRequest, pkghttp.ReasonTokenInvalidOrExpired,
				"Reset token is invalid or has expired")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// ResetPassword redeems a reset token for a new password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.resetService.Redeem(r.Context(), req.Token, req.NewPassword, h.meta(r))
	if err != nil {
		if errors.Is(err, models.ErrTokenInvalid) {
			pkghttp.WriteError(w, http.StatusBadRequest, pkghttp.ReasonTokenInvalidOrExpired,
				"Reset token is invalid or has expired")
			return
		}
		writePasswordChangeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password has been reset"})
}

// writePasswordChangeError maps the shared failure modes of the change and
// reset flows onto stable reason codes.
func writePasswordChangeError(w http.ResponseWriter, err error) {
	var ruleErr *pkgauth.PasswordRuleError

	switch {
	case errors.As(err, &ruleErr):
		pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, pkghttp.ReasonPasswordTooWeak,
			"Password does not meet strength requirements", ruleErr.Error())
	case errors.Is(err, models.ErrPasswordUnchanged):
		pkghttp.WriteError(w, http.StatusBadRequest, pkghttp.ReasonPasswordUnchanged,
			"New password must differ from the current password")
	case errors.Is(err, models.ErrCurrentPasswordInvalid):
		pkghttp.WriteError(w, http.StatusBadRequest, "invalid_current_password",
			"Current password is incorrect")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication required")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
