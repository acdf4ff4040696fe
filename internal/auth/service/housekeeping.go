package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/halcyonlabs/authd/internal/auth/store"
	"github.com/jonboulle/clockwork"
)

// LoginAttemptRetention is how long audit rows are kept. It comfortably
// exceeds the guard's sliding window, so reaping never affects rate checks.
const LoginAttemptRetention = 30 * 24 * time.Hour

// HousekeepingService periodically deletes expired refresh and single-use
// token rows and stale login attempts, keeping the store from growing
// without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Clock    clockwork.Clock
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, clock clockwork.Clock, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Clock:    clock,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background worker. Non-blocking; call Stop to shut it
// down gracefully.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress sweep finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep runs one cleanup pass. Each deletion is independent; a failure in
// one does not stop the others.
func (s *HousekeepingService) Sweep(ctx context.Context) {
	now := s.Clock.Now()

	if err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	}
	if err := s.Store.SingleUseTokens().DeleteExpiredSingleUseTokens(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired single-use tokens", "error", err)
	}
	if err := s.Store.LoginAttempts().DeleteLoginAttemptsBefore(ctx, now.Add(-LoginAttemptRetention)); err != nil {
		s.Logger.Error("failed to delete stale login attempts", "error", err)
	}

	s.Logger.Debug("housekeeping sweep completed")
}
