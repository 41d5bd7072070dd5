package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/numisma/numisma/internal/auth"
	"github.com/numisma/numisma/internal/config"
	"github.com/numisma/numisma/internal/database"
	"github.com/numisma/numisma/internal/handlers"
	middlewareCustom "github.com/numisma/numisma/internal/middleware"
	"github.com/numisma/numisma/internal/routes"
	"github.com/numisma/numisma/internal/services"
	pkghttp "github.com/numisma/numisma/pkg/http"
	pkglogger "github.com/numisma/numisma/pkg/logger"
)

// SentEmail is a captured password reset email
type SentEmail struct {
	To        string
	Token     string
	ExpiresAt time.Time
}

// MockEmailService captures reset emails for test assertions. Delivery runs
// off the request goroutine, so WaitForEmail blocks until one arrives.
type MockEmailService struct {
	mu     sync.Mutex
	sent   []SentEmail
	notify chan SentEmail
}

func NewMockEmailService() *MockEmailService {
	return &MockEmailService{
		notify: make(chan SentEmail, 16),
	}
}

func (m *MockEmailService) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	msg := SentEmail{To: email, Token: token, ExpiresAt: expiresAt}

	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	m.notify <- msg
	return nil
}

// WaitForEmail blocks until an email is captured or the timeout elapses
func (m *MockEmailService) WaitForEmail(timeout time.Duration) (*SentEmail, bool) {
	select {
	case msg := <-m.notify:
		return &msg, true
	case <-time.After(timeout):
		return nil, false
	}
}

// SentCount returns how many emails were captured so far
func (m *MockEmailService) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// TestServer wraps httptest.Server with the real database and all dependencies
type TestServer struct {
	Server       *httptest.Server
	DB           *database.DB
	EmailService *MockEmailService
	Config       *config.Config
	TokenManager *auth.TokenManager

	logger *slog.Logger
}

// NewTestServer initializes a complete HTTP server with real database + mocked email
func NewTestServer(db *database.DB) (*TestServer, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-32-characters-long-for-testing",
			SessionTokenTTL: 30 * time.Minute,
			BcryptCost:      12,

			LockoutThreshold: 5,
			LockoutDuration:  1 * time.Hour,

			RateLimitWindow:      1 * time.Hour,
			RateLimitMaxFailures: 20,

			ResetTokenTTL: 24 * time.Hour,

			// No timing pad in tests, failure paths return immediately
			TimingDelayBaseMs:   0,
			TimingDelayRandomMs: 0,
		},
		Server: config.ServerConfig{
			Port:           "0",
			Env:            "test",
			AllowedOrigins: []string{},
			TrustedProxies: []string{},
		},
	}

	accountRepo, resetTokenRepo, loginAttemptRepo, countryRepo, banknoteRepo, characteristicRepo :=
		InitializeRepositories(db)

	mockEmail := NewMockEmailService()

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTokenTTL)
	auditLogger := pkglogger.NewAuditLogger(logger)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})

	authService, err := services.NewAuthService(
		accountRepo, loginAttemptRepo, tokenManager, timingDelay, cfg.Auth, logger, auditLogger)
	if err != nil {
		return nil, err
	}
	resetService := services.NewResetService(
		accountRepo, resetTokenRepo, mockEmail, timingDelay, cfg.Auth, logger, auditLogger)
	accountService := services.NewAccountService(accountRepo, loginAttemptRepo, cfg.Auth, logger, auditLogger)
	catalogService := services.NewCatalogService(countryRepo, banknoteRepo, characteristicRepo, logger)

	ipConfig := &pkghttp.IPConfig{
		TrustedProxies: cfg.Server.TrustedProxies,
	}
	authHandler := handlers.NewAuthHandler(authService, resetService, ipConfig, cfg.Auth.RateLimitWindow)
	accountHandler := handlers.NewAccountHandler(accountService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		routes.RegisterRoutes(r, authHandler, accountHandler, catalogHandler, tokenManager, accountRepo)
	})

	server := httptest.NewServer(r)

	return &TestServer{
		Server:       server,
		DB:           db,
		EmailService: mockEmail,
		Config:       cfg,
		TokenManager: tokenManager,
		logger:       logger,
	}, nil
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with an access token
func (ts *TestServer) RequestWithAuth(method, path, accessToken string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}
	return ts.Request(method, path, body, headers)
}

// Login performs a login request and returns the response
func (ts *TestServer) Login(email, password string) (*http.Response, error) {
	return ts.Request(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
}

// ParseJSONResponse parses a JSON response body into the target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// ExtractAccessToken pulls the access token out of a login response
func ExtractAccessToken(resp *http.Response) (string, error) {
	var authResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := ParseJSONResponse(resp, &authResp); err != nil {
		return "", err
	}
	return authResp.AccessToken, nil
}

// GetErrorReason extracts the machine-readable reason code from an error response
func GetErrorReason(resp *http.Response) (string, error) {
	var errResp struct {
		Error string `json:"error"`
	}
	if err := ParseJSONResponse(resp, &errResp); err != nil {
		return "", err
	}
	return errResp.Error, nil
}
