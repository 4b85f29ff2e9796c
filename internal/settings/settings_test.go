package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "user_settings.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRead(t *testing.T) {
	defaultsCur := []string{"USD", "EUR"}
	defaultsStk := []string{"AAPL", "AMZN", "GOOGL", "MSFT", "TSLA"}

	cases := []struct {
		name    string
		content string
		cur     []string
		stk     []string
		wantErr bool
	}{
		{"both lists", `{"user_currencies":["USD"],"user_stocks":["AAPL","TSLA"]}`, []string{"USD"}, []string{"AAPL", "TSLA"}, false},
		{"empty strings dropped", `{"user_currencies":["", " gbp "],"user_stocks":["", "msft"]}`, []string{"GBP"}, []string{"MSFT"}, false},
		{"missing stocks", `{"user_currencies":["CNY"]}`, []string{"CNY"}, defaultsStk, false},
		{"empty currencies", `{"user_currencies":[],"user_stocks":["AMZN"]}`, defaultsCur, []string{"AMZN"}, false},
		{"only empty strings", `{"user_currencies":[""],"user_stocks":[""]}`, defaultsCur, defaultsStk, false},
		{"malformed", `{"user_currencies":`, defaultsCur, defaultsStk, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Read(writeSettings(t, tc.content))
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if !reflect.DeepEqual(got.CurrencyCodes, tc.cur) {
				t.Fatalf("currencies = %v, want %v", got.CurrencyCodes, tc.cur)
			}
			if !reflect.DeepEqual(got.StockSymbols, tc.stk) {
				t.Fatalf("stocks = %v, want %v", got.StockSymbols, tc.stk)
			}
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if len(got.CurrencyCodes) != 2 || len(got.StockSymbols) != 5 {
		t.Fatalf("expected defaults, got %+v", got)
	}

	if _, err := Read(""); !errors.Is(err, ErrNoPath) {
		t.Fatalf("expected ErrNoPath, got %v", err)
	}
}

func TestFileLoad(t *testing.T) {
	f := NewFile(writeSettings(t, `{"user_currencies":["USD"],"user_stocks":["AAPL"]}`))
	got, err := f.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrencyCodes[0] != "USD" || got.StockSymbols[0] != "AAPL" {
		t.Fatalf("unexpected settings: %+v", got)
	}
}
