package handlers

import (
	"context"

	"github.com/numisma/numisma/internal/models"
	"github.com/numisma/numisma/internal/services"
)

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc          func(ctx context.Context, email, password string, meta services.RequestMeta) (*services.AuthResponse, error)
	CurrentAccountFunc func(ctx context.Context, accountID string) (*services.AccountResponse, error)
	ChangePasswordFunc func(ctx context.Context, accountID, currentPassword, newPassword string, meta services.RequestMeta) error
}

func (m *MockAuthService) Login(ctx context.Context, email, password string, meta services.RequestMeta) (*services.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, meta)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockAuthService) CurrentAccount(ctx context.Context, accountID string) (*services.AccountResponse, error) {
	if m.CurrentAccountFunc != nil {
		return m.CurrentAccountFunc(ctx, accountID)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string, meta services.RequestMeta) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, accountID, currentPassword, newPassword, meta)
	}
	return nil
}

// MockResetService implements ResetServiceInterface for testing
type MockResetService struct {
	RequestFunc func(ctx context.Context, email string, meta services.RequestMeta) error
	VerifyFunc  func(ctx context.Context, token string) error
	RedeemFunc  func(ctx context.Context, token, newPassword string, meta services.RequestMeta) error
}

func (m *MockResetService) Request(ctx context.Context, email string, meta services.RequestMeta) error {
	if m.RequestFunc != nil {
		return m.RequestFunc(ctx, email, meta)
	}
	return nil
}

func (m *MockResetService) Verify(ctx context.Context, token string) error {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, token)
	}
	return models.ErrTokenInvalid
}

func (m *MockResetService) Redeem(ctx context.Context, token, newPassword string, meta services.RequestMeta) error {
	if m.RedeemFunc != nil {
		return m.RedeemFunc(ctx, token, newPassword, meta)
	}
	return models.ErrTokenInvalid
}

// MockAccountService implements AccountServiceInterface for testing
type MockAccountService struct {
	GetAccountFunc    func(ctx context.Context, id string) (*services.AccountResponse, error)
	ListAccountsFunc  func(ctx context.Context, search string, limit, offset int) ([]*services.AccountResponse, error)
	CreateAccountFunc func(ctx context.Context, actor *models.Account, input services.CreateAccountInput) (*services.AccountResponse, error)
	UpdateAccountFunc func(ctx context.Context, actor *models.Account, id string, input services.UpdateAccountInput) (*services.AccountResponse, error)
	DeleteAccountFunc     func(ctx context.Context, actor *models.Account, id string) error
	SetPasswordFunc       func(ctx context.Context, actor *models.Account, id, newPassword string) error
	ListLoginAttemptsFunc func(ctx context.Context, id string, limit int) ([]*services.LoginAttemptResponse, error)
}

func (m *MockAccountService) GetAccount(ctx context.Context, id string) (*services.AccountResponse, error) {
	if m.GetAccountFunc != nil {
		return m.GetAccountFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountService) ListAccounts(ctx context.Context, search string, limit, offset int) ([]*services.AccountResponse, error) {
	if m.ListAccountsFunc != nil {
		return m.ListAccountsFunc(ctx, search, limit, offset)
	}
	return []*services.AccountResponse{}, nil
}

func (m *MockAccountService) CreateAccount(ctx context.Context, actor *models.Account, input services.CreateAccountInput) (*services.AccountResponse, error) {
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(ctx, actor, input)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountService) UpdateAccount(ctx context.Context, actor *models.Account, id string, input services.UpdateAccountInput) (*services.AccountResponse, error) {
	if m.UpdateAccountFunc != nil {
		return m.UpdateAccountFunc(ctx, actor, id, input)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountService) DeleteAccount(ctx context.Context, actor *models.Account, id string) error {
	if m.DeleteAccountFunc != nil {
		return m.DeleteAccountFunc(ctx, actor, id)
	}
	return nil
}

func (m *MockAccountService) SetPassword(ctx context.Context, actor *models.Account, id, newPassword string) error {
	if m.SetPasswordFunc != nil {
		return m.SetPasswordFunc(ctx, actor, id, newPassword)
	}
	return nil
}

func (m *MockAccountService) ListLoginAttempts(ctx context.Context, id string, limit int) ([]*services.LoginAttemptResponse, error) {
	if m.ListLoginAttemptsFunc != nil {
		return m.ListLoginAttemptsFunc(ctx, id, limit)
	}
	return []*services.LoginAttemptResponse{}, nil
}
