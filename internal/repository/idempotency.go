package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/josh-kwaku/budgetory/internal/logging"
)

const (
	keyIdempotencyPrefix = "@budgetory_idempotency:"
	// keyIdempotencyIndex maps every stored idempotency key to its expiry so
	// Sweep can find entries without scanning the store.
	keyIdempotencyIndex = "@budgetory_idempotency_index"
)

type IdempotencyCacheEntry struct {
	Key          string    `json:"key"`
	RequestHash  string    `json:"request_hash"`
	StatusCode   int       `json:"status_code"`
	ResponseBody []byte    `json:"response_body"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type IdempotencyRepository struct {
	mu  sync.Mutex
	kv  kvStore
	now func() time.Time
}

func NewIdempotencyRepository(kv kvStore) *IdempotencyRepository {
	return &IdempotencyRepository{kv: kv, now: time.Now}
}

// Get returns nil when nothing usable is stored under key. Expired entries
// are removed on the way out.
func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*IdempotencyCacheEntry, error) {
	storageKey := keyIdempotencyPrefix + key

	raw, ok, err := r.kv.Get(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var e IdempotencyCacheEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		logging.FromContext(ctx).Warn("discarding unreadable idempotency entry", "key", key, "error", err)
		return nil, nil
	}

	if !e.ExpiresAt.After(r.now()) {
		if err := r.kv.Remove(ctx, storageKey); err != nil {
			logging.FromContext(ctx).Warn("failed to remove expired idempotency entry", "key", key, "error", err)
		}
		return nil, nil
	}
	return &e, nil
}

// Set stores entry and records its expiry in the index, in one write.
func (r *IdempotencyRepository) Set(ctx context.Context, entry *IdempotencyCacheEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("Set: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	index := r.loadIndex(ctx)
	index[entry.Key] = entry.ExpiresAt
	rawIndex, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("Set: %w", err)
	}

	err = r.kv.MultiSet(ctx,
		KeyValue{Key: keyIdempotencyPrefix + entry.Key, Value: string(b)},
		KeyValue{Key: keyIdempotencyIndex, Value: string(rawIndex)},
	)
	if err != nil {
		return fmt.Errorf("Set: %w", err)
	}
	return nil
}

// Sweep deletes every expired entry and returns how many it removed. Keys
// whose removal fails stay in the index for the next sweep.
func (r *IdempotencyRepository) Sweep(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index := r.loadIndex(ctx)
	now := r.now()

	removed := 0
	var firstErr error
	for key, expiresAt := range index {
		if expiresAt.After(now) {
			continue
		}
		if err := r.kv.Remove(ctx, keyIdempotencyPrefix+key); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		delete(index, key)
		removed++
	}

	if removed > 0 {
		rawIndex, err := json.Marshal(index)
		if err != nil {
			return removed, fmt.Errorf("Sweep: %w", err)
		}
		if err := r.kv.Set(ctx, keyIdempotencyIndex, string(rawIndex)); err != nil {
			return removed, fmt.Errorf("Sweep: %w", err)
		}
	}
	if firstErr != nil {
		return removed, fmt.Errorf("Sweep: %w", firstErr)
	}
	return removed, nil
}

// loadIndex never fails: an unreadable index starts over empty, leaving
// the entries it listed to lazy removal in Get.
func (r *IdempotencyRepository) loadIndex(ctx context.Context) map[string]time.Time {
	index := make(map[string]time.Time)

	raw, ok, err := r.kv.Get(ctx, keyIdempotencyIndex)
	if err != nil || !ok {
		return index
	}
	if err := json.Unmarshal([]byte(raw), &index); err != nil {
		logging.FromContext(ctx).Warn("idempotency index is unreadable, starting a new one", "error", err)
		return make(map[string]time.Time)
	}
	return index
}
