package domain

// Settings holds per-user presentation preferences. It is a plain value:
// changing it never persists anything, the owner saves it explicitly.
type Settings struct {
	DisplayCurrency Currency
	DefaultCurrency *Currency
}

func DefaultSettings() Settings {
	return Settings{DisplayCurrency: CurrencyUSD}
}

func (s Settings) WithDisplayCurrency(c Currency) (Settings, error) {
	if _, ok := LookupCurrency(c); !ok {
		return s, ErrInvalidCurrency
	}
	s.DisplayCurrency = c
	return s, nil
}

// WithDefaultCurrency sets or, when c is nil, clears the default currency.
func (s Settings) WithDefaultCurrency(c *Currency) (Settings, error) {
	if c == nil {
		s.DefaultCurrency = nil
		return s, nil
	}
	if _, ok := LookupCurrency(*c); !ok {
		return s, ErrInvalidCurrency
	}
	code := *c
	s.DefaultCurrency = &code
	return s, nil
}
