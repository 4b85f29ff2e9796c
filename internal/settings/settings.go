// Package settings reads the user's quote preferences.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"finreport/internal/core"
)

var ErrNoPath = errors.New("settings path not configured")

type fileFormat struct {
	UserCurrencies []string `json:"user_currencies"`
	UserStocks     []string `json:"user_stocks"`
}

// File loads settings from a JSON file of the form
//
//	{"user_currencies": ["USD", "EUR"], "user_stocks": ["AAPL"]}
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

// Load always returns usable settings. A missing or malformed file yields the
// defaults together with the error; a missing or empty list falls back to
// its own default.
func (f *File) Load(ctx context.Context) (core.UserSettings, error) {
	if err := ctx.Err(); err != nil {
		return core.DefaultSettings(), err
	}
	return Read(f.path)
}

// Read is File.Load without a context.
func Read(path string) (core.UserSettings, error) {
	if strings.TrimSpace(path) == "" {
		return core.DefaultSettings(), ErrNoPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return core.DefaultSettings(), fmt.Errorf("read settings: %w", err)
	}
	var raw fileFormat
	if err := json.Unmarshal(data, &raw); err != nil {
		return core.DefaultSettings(), fmt.Errorf("decode settings %s: %w", path, err)
	}
	return Resolve(raw.UserCurrencies, raw.UserStocks), nil
}

// Resolve cleans both lists and substitutes defaults for empty ones.
func Resolve(currencies, stocks []string) core.UserSettings {
	s := core.UserSettings{
		CurrencyCodes: clean(currencies),
		StockSymbols:  clean(stocks),
	}
	if len(s.CurrencyCodes) == 0 {
		s.CurrencyCodes = core.DefaultCurrencyCodes()
	}
	if len(s.StockSymbols) == 0 {
		s.StockSymbols = core.DefaultStockSymbols()
	}
	return s
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
