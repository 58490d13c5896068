package domain

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyTRY Currency = "TRY"
)

// AccountingCurrency is the currency every ledger total is kept in,
// independent of transaction or display currency.
const AccountingCurrency = CurrencyUSD

// IsValid reports whether c looks like an ISO 4217 code. Rate tables may
// carry codes outside Catalog, so this does not consult it.
func (c Currency) IsValid() bool {
	if len(c) != 3 {
		return false
	}
	for i := 0; i < len(c); i++ {
		if c[i] < 'A' || c[i] > 'Z' {
			return false
		}
	}
	return true
}

type CurrencyInfo struct {
	Code   Currency `json:"code"`
	Symbol string   `json:"symbol"`
	Name   string   `json:"name"`
}

var Catalog = []CurrencyInfo{
	{CurrencyUSD, "$", "US Dollar"},
	{CurrencyEUR, "€", "Euro"},
	{CurrencyGBP, "£", "British Pound"},
	{CurrencyTRY, "₺", "Turkish Lira"},
	{"JPY", "¥", "Japanese Yen"},
	{"CNY", "¥", "Chinese Yuan"},
	{"AUD", "A$", "Australian Dollar"},
	{"CAD", "C$", "Canadian Dollar"},
	{"CHF", "Fr", "Swiss Franc"},
	{"INR", "₹", "Indian Rupee"},
	{"KRW", "₩", "South Korean Won"},
	{"RUB", "₽", "Russian Ruble"},
	{"BRL", "R$", "Brazilian Real"},
	{"NZD", "NZ$", "New Zealand Dollar"},
	{"SGD", "S$", "Singapore Dollar"},
}

func LookupCurrency(c Currency) (CurrencyInfo, bool) {
	for _, info := range Catalog {
		if info.Code == c {
			return info, true
		}
	}
	return CurrencyInfo{}, false
}
