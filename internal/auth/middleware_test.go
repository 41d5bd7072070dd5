package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numisma/numisma/internal/models"
)

type mockAccountFetcher struct {
	GetByIDFunc func(ctx context.Context, id string) (*models.Account, error)
}

func (m *mockAccountFetcher) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return m.GetByIDFunc(ctx, id)
}

func activeAccount(role string) *models.Account {
	return &models.Account{
		ID:     "11111111-1111-1111-1111-111111111111",
		Email:  "curator@example.com",
		Role:   role,
		Active: true,
	}
}

func authedRequest(t *testing.T, tm *TokenManager, account *models.Account) *http.Request {
	t.Helper()

	tokenString, err := tm.Issue(account)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	return req
}

func TestRequireAuth_ValidToken(t *testing.T) {
	tm := NewTokenManager("test-secret-key-for-tokens", 30*time.Minute)
	account := activeAccount(models.RoleAdmin)

	fetcher := &mockAccountFetcher{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			assert.Equal(t, account.ID, id)
			return account, nil
		},
	}

	var seen *models.Account
	handler := RequireAuth(tm, fetcher)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetAccountFromContext(r)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, tm, account))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, account.Email, seen.Email)
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	tm := NewTokenManager("test-secret-key-for-tokens", 30*time.Minute)
	fetcher := &mockAccountFetcher{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			t.Fatal("should not reach account lookup")
			return nil, nil
		},
	}

	handler := RequireAuth(tm, fetcher)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	tm := NewTokenManager("test-secret-key-for-tokens", 30*time.Minute)
	fetcher := &mockAccountFetcher{}

	handler := RequireAuth(tm, fetcher)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Basic abc123")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_DeactivatedAccount(t *testing.T) {
	tm := NewTokenManager("test-secret-key-for-tokens", 30*time.Minute)
	account := activeAccount(models.RoleAdmin)
	account.Active = false

	fetcher := &mockAccountFetcher{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return account, nil
		},
	}

	handler := RequireAuth(tm, fetcher)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, tm, account))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAuth_DeletedAccount(t *testing.T) {
	tm := NewTokenManager("test-secret-key-for-tokens", 30*time.Minute)
	account := activeAccount(models.RoleAdmin)

	fetcher := &mockAccountFetcher{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return nil, models.ErrNotFound
		},
	}

	handler := RequireAuth(tm, fetcher)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, tm, account))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func requestWithAccount(account *models.Account) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	if account != nil {
		ctx := context.WithValue(req.Context(), AccountContextKey, account)
		req = req.WithContext(ctx)
	}
	return req
}

func TestRequireAdmin_TierOrdering(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		wantStatus int
	}{
		{"admin passes", models.RoleAdmin, http.StatusOK},
		{"super_admin passes", models.RoleSuperAdmin, http.StatusOK},
		{"unknown role fails closed", "editor", http.StatusForbidden},
		{"empty role fails closed", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, requestWithAccount(activeAccount(tt.role)))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRequireSuperAdmin_RejectsAdmin(t *testing.T) {
	handler := RequireSuperAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithAccount(activeAccount(models.RoleAdmin)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithAccount(activeAccount(models.RoleSuperAdmin)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin_NoAccountInContext(t *testing.T) {
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithAccount(nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
