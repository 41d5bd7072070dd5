package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/numisma/numisma/internal/config"
	"github.com/numisma/numisma/internal/models"
	pkgauth "github.com/numisma/numisma/pkg/auth"
	pkglogger "github.com/numisma/numisma/pkg/logger"
)

// AccountService implements administrative account management. Route
// middleware gates who may call each operation; the rules that depend on the
// acting account (role escalation, self-deletion) are enforced here.
type AccountService struct {
	accounts    AccountRepository
	attempts    LoginAttemptRepository
	cfg         config.AuthConfig
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewAccountService(accounts AccountRepository, attempts LoginAttemptRepository, cfg config.AuthConfig, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AccountService {
	return &AccountService{
		accounts:    accounts,
		attempts:    attempts,
		cfg:         cfg,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// CreateAccountInput carries the fields an administrator sets when creating
// an account.
type CreateAccountInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	Active    bool
	Phone     string
	City      string
	Address   string
	Country   string
}

// UpdateAccountInput carries the mutable profile fields.
type UpdateAccountInput struct {
	Email     string
	FirstName string
	LastName  string
	Role      string
	Active    bool
	Phone     string
	City      string
	Address   string
	Country   string
}

// canAssignRole reports whether actor may grant the given role.
func canAssignRole(actor *models.Account, role string) bool {
	if role == models.RoleSuperAdmin {
		return actor.Role == models.RoleSuperAdmin
	}
	return true
}

func (s *AccountService) GetAccount(ctx context.Context, id string) (*AccountResponse, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return accountModelToResponse(account), nil
}

func (s *AccountService) ListAccounts(ctx context.Context, search string, limit, offset int) ([]*AccountResponse, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var accounts []*models.Account
	var err error

	if search = strings.TrimSpace(search); search != "" {
		accounts, err = s.accounts.Search(ctx, search, limit, offset)
	} else {
		accounts, err = s.accounts.List(ctx, limit, offset)
	}
	if err != nil {
		s.logger.Error("failed to list accounts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	responses := make([]*AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		responses = append(responses, accountModelToResponse(account))
	}

	return responses, nil
}

// CreateAccount provisions a new administrator. Granting super_admin
// requires a super_admin actor.
func (s *AccountService) CreateAccount(ctx context.Context, actor *models.Account, input CreateAccountInput) (*AccountResponse, error) {
	role := input.Role
	if role == "" {
		role = models.RoleAdmin
	}
	if !models.ValidRole(role) {
		return nil, models.ErrBadRequest
	}
	if !canAssignRole(actor, role) {
		return nil, models.ErrTierEscalation
	}

	if err := pkgauth.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := pkgauth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	account := &models.Account{
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         role,
		Active:       input.Active,
		Phone:        input.Phone,
		City:         input.City,
		Address:      input.Address,
		Country:      input.Country,
	}

	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrEmailInUse
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("account_created", created.ID, "", map[string]string{
		"created_by": actor.ID,
		"role":       created.Role,
	})

	return accountModelToResponse(created), nil
}

// UpdateAccount modifies a profile. Promoting anyone to super_admin requires
// a super_admin actor.
func (s *AccountService) UpdateAccount(ctx context.Context, actor *models.Account, id string, input UpdateAccountInput) (*AccountResponse, error) {
	target, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	role := input.Role
	if role == "" {
		role = target.Role
	}
	if !models.ValidRole(role) {
		return nil, models.ErrBadRequest
	}
	if role != target.Role && !canAssignRole(actor, role) {
		return nil, models.ErrTierEscalation
	}

	target.Email = strings.ToLower(strings.TrimSpace(input.Email))
	target.FirstName = input.FirstName
	target.LastName = input.LastName
	target.Role = role
	target.Active = input.Active
	target.Phone = input.Phone
	target.City = input.City
	target.Address = input.Address
	target.Country = input.Country

	updated, err := s.accounts.Update(ctx, id, target)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrEmailInUse
		}
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("account_updated", updated.ID, "", map[string]string{
		"updated_by": actor.ID,
	})

	return accountModelToResponse(updated), nil
}

// DeleteAccount removes an account. Self-deletion is always rejected, no
// matter the tier.
func (s *AccountService) DeleteAccount(ctx context.Context, actor *models.Account, id string) error {
	if actor.ID == id {
		return models.ErrSelfDelete
	}

	if err := s.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete account", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("account_deleted", id, "", map[string]string{
		"deleted_by": actor.ID,
	})

	return nil
}

// LoginAttemptResponse is one row of an account's authentication trail.
type LoginAttemptResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	IPAddress   string `json:"ip_address"`
	UserAgent   string `json:"user_agent"`
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	AttemptedAt string `json:"attempted_at"`
}

// ListLoginAttempts returns the recent authentication trail for an account,
// newest first. The trail is keyed by email, so rows recorded before the
// account was (re)created still show up.
func (s *AccountService) ListLoginAttempts(ctx context.Context, id string, limit int) ([]*LoginAttemptResponse, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	attempts, err := s.attempts.ListByEmail(ctx, account.Email, limit)
	if err != nil {
		s.logger.Error("failed to list login attempts",
			slog.String("account_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	responses := make([]*LoginAttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		responses = append(responses, &LoginAttemptResponse{
			ID:          attempt.ID,
			Email:       attempt.Email,
			IPAddress:   attempt.IPAddress,
			UserAgent:   attempt.UserAgent,
			Success:     attempt.Success,
			Message:     attempt.Message,
			AttemptedAt: attempt.AttemptedAt.Format(time.RFC3339),
		})
	}

	return responses, nil
}

// SetPassword lets an administrator force a new password onto an account.
// The swap clears the failure counter and lockout, so it doubles as the
// manual unlock path.
func (s *AccountService) SetPassword(ctx context.Context, actor *models.Account, id, newPassword string) error {
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := pkgauth.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.accounts.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to set password",
			slog.String("account_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("password_set_by_admin", id, "", map[string]string{
		"set_by": actor.ID,
	})

	return nil
}
