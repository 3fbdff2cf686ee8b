// Package jobs holds the background loops that run next to the HTTP server.
//
// expired_users.go implements the ExpiredUserSweeper, which periodically
// deactivates batch-created users whose batch expiration date has passed.
// Deactivation is a single UPDATE against the store, so a missed tick (or a
// restart) only delays the sweep; it never loses it.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/radius-gateway/radius-gateway/internal/config"
	"github.com/radius-gateway/radius-gateway/internal/db/repositories"
	"github.com/radius-gateway/radius-gateway/internal/telemetry"
)

// ExpiredUserSweeper deactivates users belonging to expired batches.
type ExpiredUserSweeper struct {
	userRepo *repositories.UserRepository
	interval time.Duration
	stopChan chan struct{}
}

// NewExpiredUserSweeper creates a new ExpiredUserSweeper.
// cfg.ExpiredUsersInterval controls how often the sweep runs (default 1h).
func NewExpiredUserSweeper(userRepo *repositories.UserRepository, cfg *config.JobsConfig) *ExpiredUserSweeper {
	interval := cfg.ExpiredUsersInterval
	if interval <= 0 {
		interval = time.Hour
	}
	return &ExpiredUserSweeper{
		userRepo: userRepo,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background sweep loop. It runs an initial sweep
// immediately, then repeats on the configured interval. The loop exits when
// ctx is cancelled or Stop() is called.
func (s *ExpiredUserSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("expired-user sweeper started", "interval", s.interval)

	s.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			slog.Info("expired-user sweeper stopped")
			return
		case <-ctx.Done():
			slog.Info("expired-user sweeper context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (s *ExpiredUserSweeper) Stop() {
	close(s.stopChan)
}

// sweep runs one deactivation pass.
func (s *ExpiredUserSweeper) sweep(ctx context.Context) {
	deactivated, err := s.userRepo.DeactivateExpiredBatchUsers(ctx, time.Now())
	if err != nil {
		slog.Error("expired-user sweep failed", "error", err)
		return
	}
	if deactivated == 0 {
		return
	}

	telemetry.ExpiredUsersDeactivatedTotal.Add(float64(deactivated))
	slog.Info("expired-user sweep deactivated users", "count", deactivated)
}
