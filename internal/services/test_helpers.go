package services

import (
	"context"
	"time"

	"github.com/numisma/numisma/internal/models"
)

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	GetByIDFunc            func(ctx context.Context, id string) (*models.Account, error)
	GetByEmailFunc         func(ctx context.Context, email string) (*models.Account, error)
	ListFunc               func(ctx context.Context, limit, offset int) ([]*models.Account, error)
	SearchFunc             func(ctx context.Context, term string, limit, offset int) ([]*models.Account, error)
	CreateFunc             func(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdateFunc             func(ctx context.Context, id string, account *models.Account) (*models.Account, error)
	DeleteFunc             func(ctx context.Context, id string) error
	RecordLoginFailureFunc func(ctx context.Context, id string, threshold int, lockout time.Duration) (*models.Account, error)
	RecordLoginSuccessFunc func(ctx context.Context, id string) (*models.Account, error)
	UpdatePasswordFunc     func(ctx context.Context, id, passwordHash string) error
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.Account{}, nil
}

func (m *MockAccountRepository) Search(ctx context.Context, term string, limit, offset int) ([]*models.Account, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, term, limit, offset)
	}
	return []*models.Account{}, nil
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountRepository) Update(ctx context.Context, id string, account *models.Account) (*models.Account, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, account)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockAccountRepository) RecordLoginFailure(ctx context.Context, id string, threshold int, lockout time.Duration) (*models.Account, error) {
	if m.RecordLoginFailureFunc != nil {
		return m.RecordLoginFailureFunc(ctx, id, threshold, lockout)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) RecordLoginSuccess(ctx context.Context, id string) (*models.Account, error) {
	if m.RecordLoginSuccessFunc != nil {
		return m.RecordLoginSuccessFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

// MockLoginAttemptRepository implements LoginAttemptRepository for testing
type MockLoginAttemptRepository struct {
	RecordFunc                  func(ctx context.Context, attempt *models.LoginAttempt) error
	CountRecentFailuresByIPFunc func(ctx context.Context, ip string, window time.Duration) (int, error)
	ListByEmailFunc             func(ctx context.Context, email string, limit int) ([]*models.LoginAttempt, error)
}

func (m *MockLoginAttemptRepository) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, attempt)
	}
	return nil
}

func (m *MockLoginAttemptRepository) CountRecentFailuresByIP(ctx context.Context, ip string, window time.Duration) (int, error) {
	if m.CountRecentFailuresByIPFunc != nil {
		return m.CountRecentFailuresByIPFunc(ctx, ip, window)
	}
	return 0, nil
}

func (m *MockLoginAttemptRepository) ListByEmail(ctx context.Context, email string, limit int) ([]*models.LoginAttempt, error) {
	if m.ListByEmailFunc != nil {
		return m.ListByEmailFunc(ctx, email, limit)
	}
	return []*models.LoginAttempt{}, nil
}

// MockResetTokenRepository implements ResetTokenRepository for testing
type MockResetTokenRepository struct {
	IssueFunc         func(ctx context.Context, token *models.ResetToken) (*models.ResetToken, error)
	GetRedeemableFunc func(ctx context.Context, token string) (*models.ResetToken, error)
	RedeemFunc        func(ctx context.Context, tokenID, accountID, passwordHash string) error
}

func (m *MockResetTokenRepository) Issue(ctx context.Context, token *models.ResetToken) (*models.ResetToken, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, token)
	}
	token.ID = "token_123"
	return token, nil
}

func (m *MockResetTokenRepository) GetRedeemable(ctx context.Context, token string) (*models.ResetToken, error) {
	if m.GetRedeemableFunc != nil {
		return m.GetRedeemableFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockResetTokenRepository) Redeem(ctx context.Context, tokenID, accountID, passwordHash string) error {
	if m.RedeemFunc != nil {
		return m.RedeemFunc(ctx, tokenID, accountID, passwordHash)
	}
	return nil
}

// MockEmailSender implements EmailSender for testing
type MockEmailSender struct {
	SendPasswordResetFunc func(ctx context.Context, email, token string, expiresAt time.Time) error
}

func (m *MockEmailSender) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendPasswordResetFunc != nil {
		return m.SendPasswordResetFunc(ctx, email, token, expiresAt)
	}
	return nil
}

// MockCountryRepository implements CountryRepository for testing
type MockCountryRepository struct {
	GetByIDFunc func(ctx context.Context, id int64) (*models.Country, error)
	ListFunc    func(ctx context.Context) ([]*models.Country, error)
	CreateFunc  func(ctx context.Context, country *models.Country) (*models.Country, error)
	UpdateFunc  func(ctx context.Context, id int64, country *models.Country) (*models.Country, error)
	DeleteFunc  func(ctx context.Context, id int64) error
}

func (m *MockCountryRepository) GetByID(ctx context.Context, id int64) (*models.Country, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockCountryRepository) List(ctx context.Context) ([]*models.Country, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.Country{}, nil
}

func (m *MockCountryRepository) Create(ctx context.Context, country *models.Country) (*models.Country, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, country)
	}
	return country, nil
}

func (m *MockCountryRepository) Update(ctx context.Context, id int64, country *models.Country) (*models.Country, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, country)
	}
	return nil, models.ErrNotFound
}

func (m *MockCountryRepository) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockBanknoteRepository implements BanknoteRepository for testing
type MockBanknoteRepository struct {
	GetByIDFunc       func(ctx context.Context, id int64) (*models.Banknote, error)
	ListFunc          func(ctx context.Context, limit, offset int) ([]*models.Banknote, error)
	ListByCountryFunc func(ctx context.Context, countryID int64) ([]*models.Banknote, error)
	CreateFunc        func(ctx context.Context, note *models.Banknote) (*models.Banknote, error)
	UpdateFunc        func(ctx context.Context, id int64, note *models.Banknote) (*models.Banknote, error)
	DeleteFunc        func(ctx context.Context, id int64) error
}

func (m *MockBanknoteRepository) GetByID(ctx context.Context, id int64) (*models.Banknote, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockBanknoteRepository) List(ctx context.Context, limit, offset int) ([]*models.Banknote, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.Banknote{}, nil
}

func (m *MockBanknoteRepository) ListByCountry(ctx context.Context, countryID int64) ([]*models.Banknote, error) {
	if m.ListByCountryFunc != nil {
		return m.ListByCountryFunc(ctx, countryID)
	}
	return []*models.Banknote{}, nil
}

func (m *MockBanknoteRepository) Create(ctx context.Context, note *models.Banknote) (*models.Banknote, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, note)
	}
	return note, nil
}

func (m *MockBanknoteRepository) Update(ctx context.Context, id int64, note *models.Banknote) (*models.Banknote, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, note)
	}
	return nil, models.ErrNotFound
}

func (m *MockBanknoteRepository) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockCharacteristicRepository implements CharacteristicRepository for testing
type MockCharacteristicRepository struct {
	GetByIDFunc func(ctx context.Context, id int64) (*models.Characteristic, error)
	ListFunc    func(ctx context.Context) ([]*models.Characteristic, error)
	CreateFunc  func(ctx context.Context, c *models.Characteristic) (*models.Characteristic, error)
	DeleteFunc  func(ctx context.Context, id int64) error
}

func (m *MockCharacteristicRepository) GetByID(ctx context.Context, id int64) (*models.Characteristic, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockCharacteristicRepository) List(ctx context.Context) ([]*models.Characteristic, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.Characteristic{}, nil
}

func (m *MockCharacteristicRepository) Create(ctx context.Context, c *models.Characteristic) (*models.Characteristic, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, c)
	}
	return c, nil
}

func (m *MockCharacteristicRepository) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}
