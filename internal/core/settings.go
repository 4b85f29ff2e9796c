package core

// Default quote lists used when the user settings do not name any.
var (
	defaultCurrencyCodes = []string{"USD", "EUR"}
	defaultStockSymbols  = []string{"AAPL", "AMZN", "GOOGL", "MSFT", "TSLA"}
)

// UserSettings lists the quotes shown on the home report.
type UserSettings struct {
	CurrencyCodes []string `json:"user_currencies"`
	StockSymbols  []string `json:"user_stocks"`
}

// DefaultCurrencyCodes returns a fresh copy of the default currency list.
func DefaultCurrencyCodes() []string {
	return append([]string(nil), defaultCurrencyCodes...)
}

// DefaultStockSymbols returns a fresh copy of the default stock list. It is
// also the fixed list returned by the legacy stock fallback.
func DefaultStockSymbols() []string {
	return append([]string(nil), defaultStockSymbols...)
}

// DefaultSettings returns settings made of both default lists.
func DefaultSettings() UserSettings {
	return UserSettings{
		CurrencyCodes: DefaultCurrencyCodes(),
		StockSymbols:  DefaultStockSymbols(),
	}
}
