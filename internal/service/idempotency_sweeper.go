package service

import (
	"context"
	"log/slog"
	"time"
)

type idempotencySweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// IdempotencySweeper periodically deletes expired idempotency entries so
// replay records do not accumulate in the store.
type IdempotencySweeper struct {
	repo     idempotencySweeper
	logger   *slog.Logger
	interval time.Duration
}

func NewIdempotencySweeper(repo idempotencySweeper, logger *slog.Logger, interval time.Duration) *IdempotencySweeper {
	return &IdempotencySweeper{
		repo:     repo,
		logger:   logger,
		interval: interval,
	}
}

func (s *IdempotencySweeper) Start(ctx context.Context) {
	s.logger.Info("idempotency sweeper started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("idempotency sweeper stopped")
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *IdempotencySweeper) poll(ctx context.Context) {
	removed, err := s.repo.Sweep(ctx)
	if err != nil {
		s.logger.Error("idempotency sweep failed", "removed", removed, "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("expired idempotency entries removed", "count", removed)
	}
}
