package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"finreport/internal/ledger"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var fixtureRows = [][]string{
	ledger.Header,
	{"29.12.2021 22:32:24", "29.12.2021", "*4556", "OK", "-1411.4", "RUB", "-1411.4", "RUB", "70", "Ж/д билеты", "4112", "РЖД", "70", "0", "1411.4"},
	{"25.12.2021 22:21:49", "26.12.2021", "*5091", "OK", "-218.07", "RUB", "-218.07", "RUB", "", "Каршеринг", "7512", "Ситидрайв", "4", "0", "218.07"},
}

func writeXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "operations.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func TestLoadXLSX(t *testing.T) {
	path := writeXLSX(t, fixtureRows)

	l, err := New(path, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(l) != 2 {
		t.Fatalf("rows = %d", len(l))
	}
	if l[0].CardNumber != "*4556" || l[0].Category != "Ж/д билеты" || l[0].MCC != 4112 {
		t.Fatalf("unexpected first row: %+v", l[0])
	}
	if !l[0].OperationAmount.Equal(decimal.RequireFromString("-1411.4")) {
		t.Fatalf("amount = %s", l[0].OperationAmount)
	}
	if l[1].Cashback.Valid {
		t.Fatalf("empty cashback should be null, got %s", l[1].Cashback.Decimal)
	}
}

func TestLoadXLSXNumericCells(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := make([]any, len(ledger.Header))
	for i, h := range ledger.Header {
		header[i] = h
	}
	rows := [][]any{
		header,
		{time.Date(2021, 12, 29, 22, 32, 24, 0, time.UTC), "29.12.2021", "*4556", "OK", -1411.40, "RUB", -1411.40, "RUB", 70, "Ж/д билеты", 4112, "РЖД", 70, 0, 1411.40},
		{time.Date(2021, 12, 25, 0, 0, 0, 0, time.UTC), "26.12.2021", "*5091", "OK", -218.07, "RUB", -218.07, "RUB", nil, "Каршеринг", 7512, "Ситидрайв", 4, 0, 218.07},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	thousands, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		t.Fatal(err)
	}
	for _, col := range []string{"E", "G", "O"} {
		if err := f.SetCellStyle(sheet, col+"2", col+"3", thousands); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "formatted.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	l, err := New(path, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(l) != 2 {
		t.Fatalf("rows = %d, want 2", len(l))
	}
	if !l[0].OperationAmount.Equal(decimal.RequireFromString("-1411.4")) {
		t.Fatalf("amount = %s", l[0].OperationAmount)
	}
	if !l[1].OperationAmount.Equal(decimal.RequireFromString("-218.07")) {
		t.Fatalf("amount = %s", l[1].OperationAmount)
	}
	if l[0].OperationDate != "2021-12-29 22:32:24" {
		t.Fatalf("operation date = %q", l[0].OperationDate)
	}
	if l[1].OperationDate != "2021-12-25 00:00:00" {
		t.Fatalf("operation date = %q", l[1].OperationDate)
	}
	if l[0].MCC != 4112 {
		t.Fatalf("mcc = %d", l[0].MCC)
	}
}

func TestIsDateFormat(t *testing.T) {
	custom := func(s string) *string { return &s }
	tests := []struct {
		name   string
		id     int
		custom *string
		want   bool
	}{
		{"general", 0, nil, false},
		{"thousands", 4, nil, false},
		{"builtin date", 14, nil, true},
		{"builtin datetime", 22, nil, true},
		{"custom day first", 164, custom("dd.mm.yyyy hh:mm:ss"), true},
		{"elapsed hours", 165, custom("[h]:mm"), true},
		{"red negatives", 166, custom("#,##0.00;[Red]-#,##0.00"), false},
		{"quoted suffix", 167, custom(`#,##0.00 "days"`), false},
		{"escaped suffix", 168, custom(`0\d`), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDateFormat(tt.id, tt.custom); got != tt.want {
				t.Errorf("isDateFormat(%d) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestLoadCSVSemicolon(t *testing.T) {
	var b strings.Builder
	for _, row := range fixtureRows {
		b.WriteString(strings.Join(row, ";"))
		b.WriteString("\n")
	}
	path := filepath.Join(t.TempDir(), "operations.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := New(path, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(l) != 2 || l[1].CardNumber != "*5091" {
		t.Fatalf("unexpected ledger: %+v", l)
	}
}

func TestLoadCSVCommaWithBadRow(t *testing.T) {
	csvData := "operation_date,operation_amount,category,status\n" +
		"2021-12-29 10:00:00,-10.5,Food,OK\n" +
		"2021-12-30 10:00:00,not-a-number,Food,OK\n" +
		",,,\n" +
		"2021-12-31 10:00:00,\"-1,5\",Food,OK\n"
	path := filepath.Join(t.TempDir(), "ops.csv")
	if err := os.WriteFile(path, []byte(csvData), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := New(path, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(l) != 2 {
		t.Fatalf("rows = %d, want 2", len(l))
	}
	if !l[1].OperationAmount.Equal(decimal.RequireFromString("-1.5")) {
		t.Fatalf("amount = %s", l[1].OperationAmount)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := New(filepath.Join(dir, "missing.xlsx"), nil).Load(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}

	if _, err := New(filepath.Join(dir, "ops.json"), nil).Load(context.Background()); !errors.Is(err, ledger.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}

	path := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path, nil).Load(context.Background()); !errors.Is(err, ledger.ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
}

func TestLoadHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New("whatever.csv", nil).Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
