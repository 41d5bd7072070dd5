package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/numisma/numisma/internal/auth"
	"github.com/numisma/numisma/internal/background"
	"github.com/numisma/numisma/internal/config"
	"github.com/numisma/numisma/internal/database"
	"github.com/numisma/numisma/internal/handlers"
	middlewareCustom "github.com/numisma/numisma/internal/middleware"
	"github.com/numisma/numisma/internal/models"
	"github.com/numisma/numisma/internal/repositories"
	"github.com/numisma/numisma/internal/routes"
	"github.com/numisma/numisma/internal/services"
	pkgauth "github.com/numisma/numisma/pkg/auth"
	pkghttp "github.com/numisma/numisma/pkg/http"
	pkglogger "github.com/numisma/numisma/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Repositories
	accountRepo := repositories.NewAccountRepository(db)
	loginAttemptRepo := repositories.NewLoginAttemptRepository(db)
	resetTokenRepo := repositories.NewResetTokenRepository(db)
	countryRepo := repositories.NewCountryRepository(db)
	banknoteRepo := repositories.NewBanknoteRepository(db)
	characteristicRepo := repositories.NewCharacteristicRepository(db)

	cleanupManager := background.NewCleanupManager(
		resetTokenRepo, loginAttemptRepo,
		cfg.Auth.LoginAttemptRetention, cfg.Auth.CleanupInterval,
		logger,
	)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTokenTTL)
	auditLogger := pkglogger.NewAuditLogger(logger)

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})

	emailSender, err := services.NewAWSSESEmailSender(
		cfg.Email.AWSRegion,
		cfg.Email.FromAddress,
		cfg.Email.ResetURLBase,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize email sender", slog.Any("error", err))
		os.Exit(1)
	}

	// Services
	authService, err := services.NewAuthService(accountRepo, loginAttemptRepo, tokenManager, timingDelay, cfg.Auth, logger, auditLogger)
	if err != nil {
		logger.Error("failed to initialize auth service", slog.Any("error", err))
		os.Exit(1)
	}
	resetService := services.NewResetService(accountRepo, resetTokenRepo, emailSender, timingDelay, cfg.Auth, logger, auditLogger)
	accountService := services.NewAccountService(accountRepo, loginAttemptRepo, cfg.Auth, logger, auditLogger)
	catalogService := services.NewCatalogService(countryRepo, banknoteRepo, characteristicRepo, logger)

	// Handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(authService, resetService, ipConfig, cfg.Auth.RateLimitWindow)
	accountHandler := handlers.NewAccountHandler(accountService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)

	// Bootstrap the first super admin if configured
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureSuperAdmin(bootCtx, accountRepo, cfg.Auth.BcryptCost, logger); err != nil {
		logger.Error("failed to ensure super admin account", slog.Any("error", err))
	}
	bootCancel()

	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Route("/api/v1", func(r chi.Router) {
		routes.RegisterRoutes(r, authHandler, accountHandler, catalogHandler, tokenManager, accountRepo)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureSuperAdmin creates the first super admin account when ADMIN_EMAIL
// and ADMIN_PASSWORD are set and no account with that email exists.
func ensureSuperAdmin(ctx context.Context, accountRepo *repositories.AccountRepository, bcryptCost int, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping bootstrap")
		return nil
	}

	_, err := accountRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("bootstrap account already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check for bootstrap account: %w", err)
	}

	if err := pkgauth.ValidatePassword(adminPassword); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD rejected: %w", err)
	}

	hash, err := pkgauth.HashPassword(adminPassword, bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	_, err = accountRepo.Create(ctx, &models.Account{
		Email:        adminEmail,
		PasswordHash: hash,
		FirstName:    "Admin",
		LastName:     "Account",
		Role:         models.RoleSuperAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("failed to create bootstrap account: %w", err)
	}

	logger.Info("super admin account created")
	return nil
}
