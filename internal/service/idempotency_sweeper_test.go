package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/budgetory/internal/repository"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (c *countingSweeper) Sweep(context.Context) (int, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestIdempotencySweeper_PollRemovesExpiredEntries(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemoryStore()
	repo := repository.NewIdempotencyRepository(kv)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, repo.Set(ctx, &repository.IdempotencyCacheEntry{
		Key:        "old",
		StatusCode: 201,
		CreatedAt:  past.Add(-24 * time.Hour),
		ExpiresAt:  past,
	}))
	require.Contains(t, kv.Dump(), "@budgetory_idempotency:old")

	NewIdempotencySweeper(repo, slog.Default(), time.Minute).poll(ctx)

	assert.NotContains(t, kv.Dump(), "@budgetory_idempotency:old")
}

func TestIdempotencySweeper_StartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sweeper := &countingSweeper{}
	s := NewIdempotencySweeper(sweeper, slog.Default(), 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return sweeper.calls.Load() > 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
