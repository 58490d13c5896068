package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/josh-kwaku/budgetory/internal/repository"
)

func TestSettingsStore_Load(t *testing.T) {
	eur := `{"code":"EUR","symbol":"€","name":"Euro"}`
	gbp := `{"code":"GBP","symbol":"£","name":"British Pound"}`

	tests := []struct {
		name        string
		stored      map[string]string
		wantDisplay domain.Currency
		wantDefault domain.Currency
	}{
		{
			name:        "nothing stored",
			wantDisplay: domain.CurrencyUSD,
		},
		{
			name:        "selected only",
			stored:      map[string]string{repository.KeySelectedCurrency: eur},
			wantDisplay: domain.CurrencyEUR,
		},
		{
			name:        "default doubles as display",
			stored:      map[string]string{repository.KeyDefaultCurrency: gbp},
			wantDisplay: domain.CurrencyGBP,
			wantDefault: domain.CurrencyGBP,
		},
		{
			name: "selected wins over default",
			stored: map[string]string{
				repository.KeySelectedCurrency: eur,
				repository.KeyDefaultCurrency:  gbp,
			},
			wantDisplay: domain.CurrencyEUR,
			wantDefault: domain.CurrencyGBP,
		},
		{
			name:        "unknown code ignored",
			stored:      map[string]string{repository.KeySelectedCurrency: `{"code":"XAU","symbol":"?","name":"Gold"}`},
			wantDisplay: domain.CurrencyUSD,
		},
		{
			name:        "corrupt entry ignored",
			stored:      map[string]string{repository.KeySelectedCurrency: `not json`},
			wantDisplay: domain.CurrencyUSD,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kv := repository.NewMemoryStore()
			ctx := context.Background()
			for k, v := range tc.stored {
				require.NoError(t, kv.Set(ctx, k, v))
			}

			got := repository.NewSettingsStore(kv).Load(ctx)
			assert.Equal(t, tc.wantDisplay, got.DisplayCurrency)
			if tc.wantDefault == "" {
				assert.Nil(t, got.DefaultCurrency)
				return
			}
			require.NotNil(t, got.DefaultCurrency)
			assert.Equal(t, tc.wantDefault, *got.DefaultCurrency)
		})
	}
}

func TestSettingsStore_SaveRoundTrip(t *testing.T) {
	kv := repository.NewMemoryStore()
	store := repository.NewSettingsStore(kv)
	ctx := context.Background()

	try := domain.CurrencyTRY
	settings, err := domain.DefaultSettings().WithDisplayCurrency(domain.CurrencyEUR)
	require.NoError(t, err)
	settings, err = settings.WithDefaultCurrency(&try)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, settings))
	assert.JSONEq(t, `{"code":"EUR","symbol":"€","name":"Euro"}`, kv.Dump()[repository.KeySelectedCurrency])

	loaded := store.Load(ctx)
	assert.Equal(t, domain.CurrencyEUR, loaded.DisplayCurrency)
	require.NotNil(t, loaded.DefaultCurrency)
	assert.Equal(t, domain.CurrencyTRY, *loaded.DefaultCurrency)

	cleared, err := loaded.WithDefaultCurrency(nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, cleared))

	_, ok, err := kv.Get(ctx, repository.KeyDefaultCurrency)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, store.Load(ctx).DefaultCurrency)
}

func TestSettingsStore_SaveFailure(t *testing.T) {
	store := repository.NewSettingsStore(failingStore{repository.NewMemoryStore()})

	err := store.Save(context.Background(), domain.DefaultSettings())
	var storageErr *domain.StorageError
	require.ErrorAs(t, err, &storageErr)
}

// removeFailingStore accepts writes but cannot delete keys.
type removeFailingStore struct {
	*repository.MemoryStore
}

func (f removeFailingStore) Remove(context.Context, string) error { return errDiskFull }

func TestSettingsStore_FailedClearKeepsPreviousSettings(t *testing.T) {
	ctx := context.Background()
	store := repository.NewSettingsStore(removeFailingStore{repository.NewMemoryStore()})

	gbp := domain.CurrencyGBP
	before := domain.Settings{DisplayCurrency: domain.CurrencyEUR, DefaultCurrency: &gbp}
	require.NoError(t, store.Save(ctx, before))

	err := store.Save(ctx, domain.Settings{DisplayCurrency: domain.CurrencyTRY})
	var storageErr *domain.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "remove", storageErr.Op)

	got := store.Load(ctx)
	assert.Equal(t, domain.CurrencyEUR, got.DisplayCurrency)
	require.NotNil(t, got.DefaultCurrency)
	assert.Equal(t, domain.CurrencyGBP, *got.DefaultCurrency)
}
