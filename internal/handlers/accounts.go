package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/numisma/numisma/internal/auth"
	"github.com/numisma/numisma/internal/models"
	"github.com/numisma/numisma/internal/services"
	pkghttp "github.com/numisma/numisma/pkg/http"
)

// AccountServiceInterface defines the administrative account operations.
type AccountServiceInterface interface {
	GetAccount(ctx context.Context, id string) (*services.AccountResponse, error)
	ListAccounts(ctx context.Context, search string, limit, offset int) ([]*services.AccountResponse, error)
	CreateAccount(ctx context.Context, actor *models.Account, input services.CreateAccountInput) (*services.AccountResponse, error)
	UpdateAccount(ctx context.Context, actor *models.Account, id string, input services.UpdateAccountInput) (*services.AccountResponse, error)
	DeleteAccount(ctx context.Context, actor *models.Account, id string) error
	SetPassword(ctx context.Context, actor *models.Account, id, newPassword string) error
	ListLoginAttempts(ctx context.Context, id string, limit int) ([]*services.LoginAttemptResponse, error)
}

// AccountHandler handles administrative account management requests.
type AccountHandler struct {
	service AccountServiceInterface
}

func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

// Request DTOs

type CreateAccountRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
	Role      string `json:"role" validate:"omitempty,oneof=admin super_admin"`
	Active    *bool  `json:"active"`
	Phone     string `json:"phone" validate:"omitempty,max=30"`
	City      string `json:"city" validate:"omitempty,max=100"`
	Address   string `json:"address" validate:"omitempty,max=200"`
	Country   string `json:"country" validate:"omitempty,max=100"`
}

type UpdateAccountRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
	Role      string `json:"role" validate:"omitempty,oneof=admin super_admin"`
	Active    bool   `json:"active"`
	Phone     string `json:"phone" validate:"omitempty,max=30"`
	City      string `json:"city" validate:"omitempty,max=100"`
	Address   string `json:"address" validate:"omitempty,max=200"`
	Country   string `json:"country" validate:"omitempty,max=100"`
}

type SetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required"`
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// List returns accounts, optionally filtered by a search term.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	search := r.URL.Query().Get("search")

	accounts, err := h.service.ListAccounts(r.Context(), search, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, accounts)
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Account not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAccountFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	account, err := h.service.CreateAccount(r.Context(), actor, services.CreateAccountInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		Active:    active,
		Phone:     req.Phone,
		City:      req.City,
		Address:   req.Address,
		Country:   req.Country,
	})
	if err != nil {
		writeAccountError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAccountFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	account, err := h.service.UpdateAccount(r.Context(), actor, id, services.UpdateAccountInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		Active:    req.Active,
		Phone:     req.Phone,
		City:      req.City,
		Address:   req.Address,
		Country:   req.Country,
	})
	if err != nil {
		writeAccountError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAccountFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")

	if err := h.service.DeleteAccount(r.Context(), actor, id); err != nil {
		writeAccountError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetPassword lets an administrator force a new password onto an account,
// clearing any lockout in the process.
func (h *AccountHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAccountFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")

	var req SetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.SetPassword(r.Context(), actor, id, req.NewPassword); err != nil {
		writeAccountError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password updated"})
}

// ListLoginAttempts returns an account's recent authentication trail.
func (h *AccountHandler) ListLoginAttempts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := queryInt(r, "limit", 50)

	attempts, err := h.service.ListLoginAttempts(r.Context(), id, limit)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Account not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, attempts)
}

func writeAccountError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Account not found")
	case errors.Is(err, models.ErrEmailInUse):
		pkghttp.WriteConflict(w, pkghttp.ReasonEmailInUse, "Email is already in use")
	case errors.Is(err, models.ErrTierEscalation):
		pkghttp.WriteForbidden(w, pkghttp.ReasonForbiddenTierEscalation,
			"Only a super admin can grant the super admin role")
	case errors.Is(err, models.ErrSelfDelete):
		pkghttp.WriteForbidden(w, pkghttp.ReasonSelfDeleteForbidden,
			"You cannot delete your own account")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "forbidden", "Insufficient permissions")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	default:
		writePasswordChangeError(w, err)
	}
}
