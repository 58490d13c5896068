package service

import (
	"context"
	"fmt"

	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/josh-kwaku/budgetory/internal/logging"
)

// SettingsUpdate carries a partial change. A nil field is left alone;
// ClearDefault removes the default currency.
type SettingsUpdate struct {
	DisplayCurrency *domain.Currency
	DefaultCurrency *domain.Currency
	ClearDefault    bool
}

type SettingsService struct {
	store settingsStore
}

func NewSettingsService(store settingsStore) *SettingsService {
	return &SettingsService{store: store}
}

func (s *SettingsService) Get(ctx context.Context) domain.Settings {
	return s.store.Load(ctx)
}

func (s *SettingsService) Update(ctx context.Context, u SettingsUpdate) (domain.Settings, error) {
	settings := s.store.Load(ctx)

	var err error
	if u.DisplayCurrency != nil {
		if settings, err = settings.WithDisplayCurrency(*u.DisplayCurrency); err != nil {
			return domain.Settings{}, fmt.Errorf("Update: display currency: %w", err)
		}
	}
	switch {
	case u.ClearDefault:
		settings, _ = settings.WithDefaultCurrency(nil)
	case u.DefaultCurrency != nil:
		if settings, err = settings.WithDefaultCurrency(u.DefaultCurrency); err != nil {
			return domain.Settings{}, fmt.Errorf("Update: default currency: %w", err)
		}
	}

	if err := s.store.Save(ctx, settings); err != nil {
		return domain.Settings{}, fmt.Errorf("Update: %w", err)
	}

	logging.FromContext(ctx).Info("settings updated", "display_currency", settings.DisplayCurrency)
	return settings, nil
}

func (s *SettingsService) Currencies() []domain.CurrencyInfo {
	out := make([]domain.CurrencyInfo, len(domain.Catalog))
	copy(out, domain.Catalog)
	return out
}
