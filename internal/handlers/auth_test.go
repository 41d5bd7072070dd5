package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numisma/numisma/internal/auth"
	"github.com/numisma/numisma/internal/models"
	"github.com/numisma/numisma/internal/services"
	pkgauth "github.com/numisma/numisma/pkg/auth"
	pkghttp "github.com/numisma/numisma/pkg/http"
)

func newAuthHandler(svc AuthServiceInterface, reset ResetServiceInterface) *AuthHandler {
	return NewAuthHandler(svc, reset, &pkghttp.IPConfig{}, time.Hour)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()
	var resp pkghttp.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestLoginHandler_Success(t *testing.T) {
	svc := &MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string, meta services.RequestMeta) (*services.AuthResponse, error) {
			assert.Equal(t, "curator@example.com", email)
			return &services.AuthResponse{
				AccessToken: "signed-token",
				TokenType:   "bearer",
				ExpiresIn:   1800,
				Account:     &services.AccountResponse{Email: email},
			}, nil
		},
	}

	h := newAuthHandler(svc, &MockResetService{})
	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{
		Email: "curator@example.com", Password: "Correct-Horse-1",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp services.AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "signed-token", resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
}

func TestLoginHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantReason string
	}{
		{"invalid credentials", models.ErrInvalidCredentials, http.StatusUnauthorized, pkghttp.ReasonInvalidCredentials},
		{"locked account", models.ErrAccountLocked, http.StatusTooManyRequests, pkghttp.ReasonAccountLocked},
		{"locked account with expiry", &models.AccountLockedError{Until: time.Now().Add(time.Hour)}, http.StatusTooManyRequests, pkghttp.ReasonAccountLocked},
		{"inactive account", models.ErrAccountInactive, http.StatusUnauthorized, pkghttp.ReasonAccountInactive},
		{"rate limited", models.ErrRateLimited, http.StatusTooManyRequests, pkghttp.ReasonRateLimited},
		{"infrastructure failure", models.ErrInternalServer, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockAuthService{
				LoginFunc: func(ctx context.Context, email, password string, meta services.RequestMeta) (*services.AuthResponse, error) {
					return nil, tt.serviceErr
				},
			}

			h := newAuthHandler(svc, &MockResetService{})
			rec := postJSON(t, h.Login, "/auth/login", LoginRequest{
				Email: "curator@example.com", Password: "whatever",
			})

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantReason, decodeError(t, rec).Error)
		})
	}
}

func TestLoginHandler_RateLimitSetsRetryAfter(t *testing.T) {
	svc := &MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string, meta services.RequestMeta) (*services.AuthResponse, error) {
			return nil, models.ErrRateLimited
		},
	}

	h := newAuthHandler(svc, &MockResetService{})
	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{
		Email: "curator@example.com", Password: "whatever",
	})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))
}

func TestLoginHandler_LockoutSetsRetryAfter(t *testing.T) {
	svc := &MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string, meta services.RequestMeta) (*services.AuthResponse, error) {
			return nil, &models.AccountLockedError{Until: time.Now().Add(30 * time.Minute)}
		},
	}

	h := newAuthHandler(svc, &MockResetService{})
	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{
		Email: "curator@example.com", Password: "whatever",
	})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, pkghttp.ReasonAccountLocked, decodeError(t, rec).Error)

	seconds, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.InDelta(t, 1800, seconds, 5)
}

func TestLoginHandler_InvalidBody(t *testing.T) {
	h := newAuthHandler(&MockAuthService{}, &MockResetService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginHandler_MissingEmail(t *testing.T) {
	h := newAuthHandler(&MockAuthService{}, &MockResetService{})

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Password: "whatever"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForgotPassword_AlwaysGeneric(t *testing.T) {
	for _, found := range []bool{true, false} {
		reset := &MockResetService{
			RequestFunc: func(ctx context.Context, email string, meta services.RequestMeta) error {
				return nil // service is uniform regardless of account existence
			},
		}

		h := newAuthHandler(&MockAuthService{}, reset)
		rec := postJSON(t, h.ForgotPassword, "/auth/forgot-password", ForgotPasswordRequest{
			Email: "someone@example.com",
		})

		require.Equal(t, http.StatusOK, rec.Code, "found=%v", found)

		var resp MessageResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Contains(t, resp.Message, "If that email has an account")
	}
}

func TestVerifyResetToken(t *testing.T) {
	reset := &MockResetService{
		VerifyFunc: func(ctx context.Context, token string) error {
			if token == "valid-token" {
				return nil
			}
			return models.ErrTokenInvalid
		},
	}

	h := newAuthHandler(&MockAuthService{}, reset)

	rec := postJSON(t, h.VerifyResetToken, "/auth/verify-token", VerifyTokenRequest{Token: "valid-token"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, h.VerifyResetToken, "/auth/verify-token", VerifyTokenRequest{Token: "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, pkghttp.ReasonTokenInvalidOrExpired, decodeError(t, rec).Error)
}

func TestResetPassword_WeakPasswordReason(t *testing.T) {
	reset := &MockResetService{
		RedeemFunc: func(ctx context.Context, token, newPassword string, meta services.RequestMeta) error {
			return &pkgauth.PasswordRuleError{Rule: pkgauth.RuleDigit}
		},
	}

	h := newAuthHandler(&MockAuthService{}, reset)
	rec := postJSON(t, h.ResetPassword, "/auth/reset-password", ResetPasswordRequest{
		Token: "valid-token", NewPassword: "NoDigitsHere",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, pkghttp.ReasonPasswordTooWeak, resp.Error)
	assert.Contains(t, resp.Details, "digit")
}

func TestResetPassword_Success(t *testing.T) {
	var redeemed string
	reset := &MockResetService{
		RedeemFunc: func(ctx context.Context, token, newPassword string, meta services.RequestMeta) error {
			redeemed = token
			return nil
		},
	}

	h := newAuthHandler(&MockAuthService{}, reset)
	rec := postJSON(t, h.ResetPassword, "/auth/reset-password", ResetPasswordRequest{
		Token: "valid-token", NewPassword: "Brand-New-Pass-1",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "valid-token", redeemed)
}

func authedRequest(method, path string, body []byte, account *models.Account) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), auth.AccountContextKey, account)
	return req.WithContext(ctx)
}

func TestChangePassword_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantReason string
	}{
		{"wrong current password", models.ErrCurrentPasswordInvalid, http.StatusBadRequest, "invalid_current_password"},
		{"unchanged password", models.ErrPasswordUnchanged, http.StatusBadRequest, pkghttp.ReasonPasswordUnchanged},
	}

	account := &models.Account{ID: "acct_1", Role: models.RoleAdmin, Active: true}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockAuthService{
				ChangePasswordFunc: func(ctx context.Context, accountID, currentPassword, newPassword string, meta services.RequestMeta) error {
					return tt.serviceErr
				},
			}

			h := newAuthHandler(svc, &MockResetService{})

			body, _ := json.Marshal(ChangePasswordRequest{
				CurrentPassword: "Old-Password-1", NewPassword: "New-Password-1",
			})
			rec := httptest.NewRecorder()
			h.ChangePassword(rec, authedRequest(http.MethodPost, "/auth/change-password", body, account))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantReason, decodeError(t, rec).Error)
		})
	}
}

func TestMe_RequiresContext(t *testing.T) {
	h := newAuthHandler(&MockAuthService{}, &MockResetService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_Stateless(t *testing.T) {
	h := newAuthHandler(&MockAuthService{}, &MockResetService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
