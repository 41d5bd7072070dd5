package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/numisma/numisma/internal/repositories"
)

// CleanupManager periodically purges dead reset tokens and trims the login
// attempt trail past its retention horizon.
type CleanupManager struct {
	resetTokens   *repositories.ResetTokenRepository
	loginAttempts *repositories.LoginAttemptRepository
	retention     time.Duration
	interval      time.Duration
	logger        *slog.Logger
	stopCh        chan struct{}
}

func NewCleanupManager(
	resetTokens *repositories.ResetTokenRepository,
	loginAttempts *repositories.LoginAttemptRepository,
	retention time.Duration,
	interval time.Duration,
	logger *slog.Logger,
) *CleanupManager {
	return &CleanupManager{
		resetTokens:   resetTokens,
		loginAttempts: loginAttempts,
		retention:     retention,
		interval:      interval,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
}

// Start begins the periodic cleanup task. Runs once immediately.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tokensPurged, err := cm.resetTokens.PurgeExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to purge reset tokens", slog.Any("error", err))
	} else if tokensPurged > 0 {
		cm.logger.Info("purged dead reset tokens", slog.Int64("rows_deleted", tokensPurged))
	}

	attemptsTrimmed, err := cm.loginAttempts.DeleteOlderThan(cleanupCtx, cm.retention)
	if err != nil {
		cm.logger.Error("failed to trim login attempts", slog.Any("error", err))
	} else if attemptsTrimmed > 0 {
		cm.logger.Info("trimmed old login attempts", slog.Int64("rows_deleted", attemptsTrimmed))
	}
}

// Stop signals the cleanup manager to stop.
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
