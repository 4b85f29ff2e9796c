package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransactionIsSpend(t *testing.T) {
	cases := []struct {
		name string
		tx   Transaction
		want bool
	}{
		{"ok negative", Transaction{Status: StatusOK, OperationAmount: decimal.NewFromInt(-1)}, true},
		{"ok positive", Transaction{Status: StatusOK, OperationAmount: decimal.NewFromInt(1)}, false},
		{"ok zero", Transaction{Status: StatusOK, OperationAmount: decimal.Zero}, false},
		{"failed negative", Transaction{Status: StatusFailed, OperationAmount: decimal.NewFromInt(-1)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.tx.IsSpend())
		})
	}
}

func TestCashbackOrZero(t *testing.T) {
	assert.True(t, Transaction{}.CashbackOrZero().IsZero())
	tx := Transaction{Cashback: decimal.NewNullDecimal(decimal.NewFromInt(70))}
	assert.True(t, tx.CashbackOrZero().Equal(decimal.NewFromInt(70)))
}

func TestLedgerFilterDoesNotMutate(t *testing.T) {
	l := Ledger{{Category: "a"}, {Category: "b"}, {Category: "a"}}
	got := l.Filter(func(t Transaction) bool { return t.Category == "a" })
	assert.Len(t, got, 2)
	assert.Len(t, l, 3)

	c := l.Clone()
	c[0].Category = "z"
	assert.Equal(t, "a", l[0].Category)
}

func TestDateWindowValidate(t *testing.T) {
	a := time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC)
	b := a.Add(time.Hour)
	assert.NoError(t, DateWindow{Start: a, End: b}.Validate())
	assert.NoError(t, DateWindow{Start: a, End: a}.Validate())
	assert.ErrorIs(t, DateWindow{Start: b, End: a}.Validate(), ErrInvalidWindow)
}

func TestDefaultsAreCopies(t *testing.T) {
	s := DefaultStockSymbols()
	s[0] = "XXX"
	assert.Equal(t, []string{"AAPL", "AMZN", "GOOGL", "MSFT", "TSLA"}, DefaultStockSymbols())
	assert.Equal(t, []string{"USD", "EUR"}, DefaultSettings().CurrencyCodes)
}
