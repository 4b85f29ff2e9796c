package ledger

import (
	"errors"
	"testing"

	"finreport/internal/core"

	"github.com/shopspring/decimal"
)

func TestParseRowsByHeaderName(t *testing.T) {
	rows := [][]string{
		{"\ufeffКатегория", "Сумма операции", "Дата операции", "Номер карты", "Статус", "Кэшбэк", "MCC", "Ignored"},
		{"Ж/д билеты", "-1411,4", "29.12.2021 22:32:24", "*4556", "ok", "70.0", "4112.0", "x"},
		{"Каршеринг", "-218.07", "25.12.2021 22:21:49", "nan", "OK", "nan", "", ""},
	}
	l, issues, err := ParseRows(rows)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if len(l) != 2 {
		t.Fatalf("rows = %d", len(l))
	}

	first := l[0]
	if first.Category != "Ж/д билеты" || first.CardNumber != "*4556" || first.Status != core.StatusOK {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if first.MCC != 4112 {
		t.Fatalf("mcc = %d", first.MCC)
	}
	if !first.OperationAmount.Equal(decimal.RequireFromString("-1411.4")) {
		t.Fatalf("amount = %s", first.OperationAmount)
	}
	if !first.Cashback.Valid || !first.Cashback.Decimal.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("cashback = %+v", first.Cashback)
	}

	second := l[1]
	if second.CardNumber != "" {
		t.Fatalf("nan card should be empty, got %q", second.CardNumber)
	}
	if second.Cashback.Valid {
		t.Fatalf("nan cashback should be null")
	}
}

func TestParseRowsSkipsMalformedAmounts(t *testing.T) {
	rows := [][]string{
		{"operation_date", "operation_amount", "payment_amount"},
		{"2021-12-29 10:00:00", "-10", "-10"},
		{"2021-12-29 11:00:00", "ten", "-10"},
		{"", "", ""},
		{"2021-12-29 12:00:00", "-5", "five"},
		{"2021-12-29 13:00:00", "-1"},
	}
	l, issues, err := ParseRows(rows)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(l) != 2 {
		t.Fatalf("rows = %d, want 2", len(l))
	}
	if len(issues) != 2 {
		t.Fatalf("issues = %v", issues)
	}
	if issues[0].Line != 3 || issues[0].Column != "Сумма операции" {
		t.Fatalf("unexpected first issue: %+v", issues[0])
	}
	if issues[1].Line != 5 || issues[1].Column != "Сумма платежа" {
		t.Fatalf("unexpected second issue: %+v", issues[1])
	}
	if !errors.Is(issues[0], core.ErrInvalidAmount) {
		t.Fatalf("issue does not wrap ErrInvalidAmount: %v", issues[0])
	}
}

func TestParseRowsEmptyAndMissingColumns(t *testing.T) {
	l, issues, err := ParseRows(nil)
	if err != nil || len(l) != 0 || l == nil || issues != nil {
		t.Fatalf("empty input: l=%v issues=%v err=%v", l, issues, err)
	}

	_, _, err = ParseRows([][]string{{"Категория", "Описание"}})
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
}

func TestHeaderMatchesAliases(t *testing.T) {
	idx, err := mapHeader(Header)
	if err != nil {
		t.Fatal(err)
	}
	for c := column(0); c < numColumns; c++ {
		if idx[c] != int(c) {
			t.Fatalf("column %d mapped to %d", c, idx[c])
		}
	}
}
