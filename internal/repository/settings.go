package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/josh-kwaku/budgetory/internal/logging"
)

const (
	KeySelectedCurrency = "@budgetory_selected_currency"
	KeyDefaultCurrency  = "@budgetory_default_currency"
)

type SettingsStore struct {
	kv kvStore
}

func NewSettingsStore(kv kvStore) *SettingsStore {
	return &SettingsStore{kv: kv}
}

// Load never fails. Unknown or unreadable entries are ignored, and a stored
// default currency doubles as the display currency when none was selected.
func (s *SettingsStore) Load(ctx context.Context) domain.Settings {
	log := logging.FromContext(ctx)
	settings := domain.DefaultSettings()

	values, err := s.kv.MultiGet(ctx, KeySelectedCurrency, KeyDefaultCurrency)
	if err != nil {
		log.Error("failed to read settings, using defaults", "error", err)
		return settings
	}

	selected, hasSelected := decodeCurrency(ctx, KeySelectedCurrency, values)
	def, hasDefault := decodeCurrency(ctx, KeyDefaultCurrency, values)

	if hasDefault {
		settings.DefaultCurrency = &def
	}
	switch {
	case hasSelected:
		settings.DisplayCurrency = selected
	case hasDefault:
		settings.DisplayCurrency = def
	}
	return settings
}

// Save writes both preferences. Clearing the default is done before the
// display currency is written, so a failed clear leaves the previous
// settings intact.
func (s *SettingsStore) Save(ctx context.Context, settings domain.Settings) error {
	selected, err := encodeCurrency(settings.DisplayCurrency)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}

	if settings.DefaultCurrency == nil {
		if err := s.kv.Remove(ctx, KeyDefaultCurrency); err != nil {
			return fmt.Errorf("Save: %w", &domain.StorageError{Op: "remove", Key: KeyDefaultCurrency, Err: err})
		}
		if err := s.kv.Set(ctx, KeySelectedCurrency, selected); err != nil {
			return fmt.Errorf("Save: %w", &domain.StorageError{Op: "set", Key: KeySelectedCurrency, Err: err})
		}
		return nil
	}

	def, err := encodeCurrency(*settings.DefaultCurrency)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	err = s.kv.MultiSet(ctx,
		KeyValue{Key: KeySelectedCurrency, Value: selected},
		KeyValue{Key: KeyDefaultCurrency, Value: def},
	)
	if err != nil {
		return fmt.Errorf("Save: %w", &domain.StorageError{Op: "multi-set", Key: KeySelectedCurrency, Err: err})
	}
	return nil
}

func decodeCurrency(ctx context.Context, key string, values map[string]string) (domain.Currency, bool) {
	raw, ok := values[key]
	if !ok || raw == "" {
		return "", false
	}

	var info domain.CurrencyInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		logging.FromContext(ctx).Warn("ignoring unreadable currency setting", "key", key, "error", err)
		return "", false
	}
	if _, known := domain.LookupCurrency(info.Code); !known {
		logging.FromContext(ctx).Warn("ignoring unknown currency setting", "key", key, "code", info.Code)
		return "", false
	}
	return info.Code, true
}

func encodeCurrency(c domain.Currency) (string, error) {
	info, ok := domain.LookupCurrency(c)
	if !ok {
		return "", fmt.Errorf("encodeCurrency %q: %w", c, domain.ErrInvalidCurrency)
	}
	b, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("encodeCurrency: %w", err)
	}
	return string(b), nil
}
