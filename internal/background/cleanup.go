package background

import (
	"context"
	"log/slog"
	"time"

	"gatehouse/internal/repositories"
)

// CleanupManager periodically prunes login attempts past their retention
// horizon and expired reset tokens
type CleanupManager struct {
	attemptRepo *repositories.LoginAttemptRepository
	tokenRepo   *repositories.ResetTokenRepository
	logger      *slog.Logger
	interval    time.Duration
	stopCh      chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	attemptRepo *repositories.LoginAttemptRepository,
	tokenRepo *repositories.ResetTokenRepository,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		attemptRepo: attemptRepo,
		tokenRepo:   tokenRepo,
		logger:      logger,
		interval:    interval,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
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

// runCleanup removes expired rows from both tables
func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	attemptsDeleted, err := cm.attemptRepo.DeleteExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to prune login attempts", slog.Any("error", err))
	} else if attemptsDeleted > 0 {
		cm.logger.Info("pruned login attempts", slog.Int64("rows_deleted", attemptsDeleted))
	}

	tokensDeleted, err := cm.tokenRepo.CleanupExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to prune reset tokens", slog.Any("error", err))
	} else if tokensDeleted > 0 {
		cm.logger.Info("pruned reset tokens", slog.Int64("rows_deleted", tokensDeleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
