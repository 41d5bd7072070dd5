package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numisma/numisma/internal/models"
	pkgauth "github.com/numisma/numisma/pkg/auth"
	pkglogger "github.com/numisma/numisma/pkg/logger"
)

func newTestAccountService(accounts *MockAccountRepository) *AccountService {
	return newTestAccountServiceWithAttempts(accounts, &MockLoginAttemptRepository{})
}

func newTestAccountServiceWithAttempts(accounts *MockAccountRepository, attempts *MockLoginAttemptRepository) *AccountService {
	logger := discardLogger()
	return NewAccountService(accounts, attempts, testAuthConfig(), logger, pkglogger.NewAuditLogger(logger))
}

func actorWithRole(role string) *models.Account {
	return &models.Account{
		ID:     "99999999-9999-9999-9999-999999999999",
		Email:  "actor@example.com",
		Role:   role,
		Active: true,
	}
}

func validCreateInput() CreateAccountInput {
	return CreateAccountInput{
		Email:     "new@example.com",
		Password:  "Brand-New-Pass-1",
		FirstName: "New",
		LastName:  "Admin",
		Role:      models.RoleAdmin,
		Active:    true,
	}
}

func TestCreateAccount_AdminCannotGrantSuperAdmin(t *testing.T) {
	accounts := &MockAccountRepository{
		CreateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			t.Fatal("escalating create must not reach storage")
			return nil, nil
		},
	}
	svc := newTestAccountService(accounts)

	input := validCreateInput()
	input.Role = models.RoleSuperAdmin

	_, err := svc.CreateAccount(context.Background(), actorWithRole(models.RoleAdmin), input)
	assert.ErrorIs(t, err, models.ErrTierEscalation)
}

func TestCreateAccount_SuperAdminGrantsSuperAdmin(t *testing.T) {
	accounts := &MockAccountRepository{
		CreateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			created := *account
			created.CreatedAt = time.Now()
			created.UpdatedAt = time.Now()
			return &created, nil
		},
	}
	svc := newTestAccountService(accounts)

	input := validCreateInput()
	input.Role = models.RoleSuperAdmin

	resp, err := svc.CreateAccount(context.Background(), actorWithRole(models.RoleSuperAdmin), input)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, resp.Role)
}

func TestCreateAccount_HashesPasswordAndNormalizesEmail(t *testing.T) {
	var stored *models.Account
	accounts := &MockAccountRepository{
		CreateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			stored = account
			created := *account
			created.CreatedAt = time.Now()
			created.UpdatedAt = time.Now()
			return &created, nil
		},
	}
	svc := newTestAccountService(accounts)

	input := validCreateInput()
	input.Email = " New@Example.COM "

	_, err := svc.CreateAccount(context.Background(), actorWithRole(models.RoleAdmin), input)
	require.NoError(t, err)

	require.NotNil(t, stored)
	assert.Equal(t, "new@example.com", stored.Email)
	assert.NotEqual(t, input.Password, stored.PasswordHash)
	assert.NoError(t, pkgauth.ComparePassword(stored.PasswordHash, input.Password))
}

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	accounts := &MockAccountRepository{
		CreateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			return nil, models.ErrConflict
		},
	}
	svc := newTestAccountService(accounts)

	_, err := svc.CreateAccount(context.Background(), actorWithRole(models.RoleAdmin), validCreateInput())
	assert.ErrorIs(t, err, models.ErrEmailInUse)
}

func TestCreateAccount_InvalidRole(t *testing.T) {
	svc := newTestAccountService(&MockAccountRepository{})

	input := validCreateInput()
	input.Role = "owner"

	_, err := svc.CreateAccount(context.Background(), actorWithRole(models.RoleSuperAdmin), input)
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestCreateAccount_WeakPassword(t *testing.T) {
	svc := newTestAccountService(&MockAccountRepository{})

	input := validCreateInput()
	input.Password = "nodigitsorupper"

	_, err := svc.CreateAccount(context.Background(), actorWithRole(models.RoleAdmin), input)

	var ruleErr *pkgauth.PasswordRuleError
	assert.ErrorAs(t, err, &ruleErr)
}

func TestUpdateAccount_AdminCannotPromoteToSuperAdmin(t *testing.T) {
	target := actorWithRole(models.RoleAdmin)
	target.ID = "22222222-2222-2222-2222-222222222222"

	accounts := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return target, nil
		},
	}
	svc := newTestAccountService(accounts)

	_, err := svc.UpdateAccount(context.Background(), actorWithRole(models.RoleAdmin), target.ID, UpdateAccountInput{
		Email: target.Email, Role: models.RoleSuperAdmin, Active: true,
	})
	assert.ErrorIs(t, err, models.ErrTierEscalation)
}

func TestUpdateAccount_SuperAdminPromotes(t *testing.T) {
	target := actorWithRole(models.RoleAdmin)
	target.ID = "22222222-2222-2222-2222-222222222222"

	accounts := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return target, nil
		},
		UpdateFunc: func(ctx context.Context, id string, account *models.Account) (*models.Account, error) {
			return account, nil
		},
	}
	svc := newTestAccountService(accounts)

	resp, err := svc.UpdateAccount(context.Background(), actorWithRole(models.RoleSuperAdmin), target.ID, UpdateAccountInput{
		Email: target.Email, Role: models.RoleSuperAdmin, Active: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, resp.Role)
}

func TestDeleteAccount_SelfDeleteForbidden(t *testing.T) {
	actor := actorWithRole(models.RoleSuperAdmin)

	accounts := &MockAccountRepository{
		DeleteFunc: func(ctx context.Context, id string) error {
			t.Fatal("self-delete must not reach storage")
			return nil
		},
	}
	svc := newTestAccountService(accounts)

	err := svc.DeleteAccount(context.Background(), actor, actor.ID)
	assert.ErrorIs(t, err, models.ErrSelfDelete)
}

func TestDeleteAccount_Success(t *testing.T) {
	targetID := "22222222-2222-2222-2222-222222222222"

	var deleted string
	accounts := &MockAccountRepository{
		DeleteFunc: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := newTestAccountService(accounts)

	err := svc.DeleteAccount(context.Background(), actorWithRole(models.RoleSuperAdmin), targetID)
	require.NoError(t, err)
	assert.Equal(t, targetID, deleted)
}

func TestDeleteAccount_UnknownAccount(t *testing.T) {
	accounts := &MockAccountRepository{
		DeleteFunc: func(ctx context.Context, id string) error {
			return models.ErrNotFound
		},
	}
	svc := newTestAccountService(accounts)

	err := svc.DeleteAccount(context.Background(), actorWithRole(models.RoleSuperAdmin), "22222222-2222-2222-2222-222222222222")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListLoginAttempts_UnknownAccount(t *testing.T) {
	svc := newTestAccountService(&MockAccountRepository{})

	_, err := svc.ListLoginAttempts(context.Background(), "missing", 50)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListLoginAttempts_TrailKeyedByAccountEmail(t *testing.T) {
	target := actorWithRole(models.RoleAdmin)
	target.ID = "22222222-2222-2222-2222-222222222222"
	target.Email = "curator@example.com"

	var gotEmail string
	var gotLimit int
	attempts := &MockLoginAttemptRepository{
		ListByEmailFunc: func(ctx context.Context, email string, limit int) ([]*models.LoginAttempt, error) {
			gotEmail = email
			gotLimit = limit
			return []*models.LoginAttempt{
				{ID: 2, Email: email, IPAddress: "203.0.113.9", Success: false, Message: "invalid credentials", AttemptedAt: time.Now()},
				{ID: 1, Email: email, IPAddress: "203.0.113.9", Success: true, Message: "login successful", AttemptedAt: time.Now().Add(-time.Minute)},
			}, nil
		},
	}
	accounts := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return target, nil
		},
	}
	svc := newTestAccountServiceWithAttempts(accounts, attempts)

	trail, err := svc.ListLoginAttempts(context.Background(), target.ID, 5000)
	require.NoError(t, err)

	assert.Equal(t, target.Email, gotEmail)
	assert.Equal(t, 50, gotLimit, "out-of-range limit falls back to the default")

	require.Len(t, trail, 2)
	assert.Equal(t, int64(2), trail[0].ID)
	assert.False(t, trail[0].Success)
	assert.Equal(t, "203.0.113.9", trail[0].IPAddress)
	assert.True(t, trail[1].Success)
}

func TestSetPassword_ClearsLockoutViaPasswordSwap(t *testing.T) {
	targetID := "22222222-2222-2222-2222-222222222222"

	var storedHash string
	accounts := &MockAccountRepository{
		UpdatePasswordFunc: func(ctx context.Context, id, passwordHash string) error {
			assert.Equal(t, targetID, id)
			storedHash = passwordHash
			return nil
		},
	}
	svc := newTestAccountService(accounts)

	err := svc.SetPassword(context.Background(), actorWithRole(models.RoleSuperAdmin), targetID, "Brand-New-Pass-1")
	require.NoError(t, err)
	assert.NoError(t, pkgauth.ComparePassword(storedHash, "Brand-New-Pass-1"))
}

func TestSetPassword_WeakPasswordRejected(t *testing.T) {
	accounts := &MockAccountRepository{
		UpdatePasswordFunc: func(ctx context.Context, id, passwordHash string) error {
			t.Fatal("a rejected password must not reach storage")
			return nil
		},
	}
	svc := newTestAccountService(accounts)

	err := svc.SetPassword(context.Background(), actorWithRole(models.RoleSuperAdmin), "22222222-2222-2222-2222-222222222222", "weak")

	var ruleErr *pkgauth.PasswordRuleError
	assert.ErrorAs(t, err, &ruleErr)
}
