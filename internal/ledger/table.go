package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"finreport/internal/core"

	"github.com/shopspring/decimal"
)

type column int

const (
	colOperationDate column = iota
	colPaymentDate
	colCardNumber
	colStatus
	colOperationAmount
	colOperationCurrency
	colPaymentAmount
	colPaymentCurrency
	colCashback
	colCategory
	colMCC
	colDescription
	colBonuses
	colInvestmentRounding
	colRoundedAmount
	numColumns
)

// Header names as exported by the bank, plus snake_case aliases.
var headerAliases = map[string]column{
	"дата операции":                colOperationDate,
	"operation_date":               colOperationDate,
	"дата платежа":                 colPaymentDate,
	"payment_date":                 colPaymentDate,
	"номер карты":                  colCardNumber,
	"card_number":                  colCardNumber,
	"статус":                       colStatus,
	"status":                       colStatus,
	"сумма операции":               colOperationAmount,
	"operation_amount":             colOperationAmount,
	"валюта операции":              colOperationCurrency,
	"operation_currency":           colOperationCurrency,
	"сумма платежа":                colPaymentAmount,
	"payment_amount":               colPaymentAmount,
	"валюта платежа":               colPaymentCurrency,
	"payment_currency":             colPaymentCurrency,
	"кэшбэк":                       colCashback,
	"cashback":                     colCashback,
	"категория":                    colCategory,
	"category":                     colCategory,
	"mcc":                          colMCC,
	"описание":                     colDescription,
	"description":                  colDescription,
	"бонусы (включая кэшбэк)":      colBonuses,
	"bonuses":                      colBonuses,
	"округление на инвесткопилку":  colInvestmentRounding,
	"investment_rounding":          colInvestmentRounding,
	"сумма операции с округлением": colRoundedAmount,
	"rounded_amount":               colRoundedAmount,
}

// Header is the canonical bank-export header row, in export order.
var Header = []string{
	"Дата операции",
	"Дата платежа",
	"Номер карты",
	"Статус",
	"Сумма операции",
	"Валюта операции",
	"Сумма платежа",
	"Валюта платежа",
	"Кэшбэк",
	"Категория",
	"MCC",
	"Описание",
	"Бонусы (включая кэшбэк)",
	"Округление на инвесткопилку",
	"Сумма операции с округлением",
}

// RowIssue reports a data row that was skipped. Line is 1-based and counts
// the header.
type RowIssue struct {
	Line   int
	Column string
	Err    error
}

func (r RowIssue) Error() string {
	return fmt.Sprintf("line %d: %s: %v", r.Line, r.Column, r.Err)
}

func (r RowIssue) Unwrap() error { return r.Err }

// ParseRows maps a header row plus data rows onto transactions. Columns are
// located by header name, so their order does not matter and unknown columns
// are ignored. Rows with a malformed amount are skipped and reported; blank
// rows are dropped silently. An empty input is an empty ledger.
func ParseRows(rows [][]string) (core.Ledger, []RowIssue, error) {
	if len(rows) == 0 {
		return core.Ledger{}, nil, nil
	}
	idx, err := mapHeader(rows[0])
	if err != nil {
		return nil, nil, err
	}

	out := make(core.Ledger, 0, len(rows)-1)
	var issues []RowIssue
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		tx, issue := parseRow(idx, row)
		if issue != nil {
			issue.Line = i + 2
			issues = append(issues, *issue)
			continue
		}
		out = append(out, tx)
	}
	return out, issues, nil
}

func mapHeader(header []string) ([numColumns]int, error) {
	var idx [numColumns]int
	for i := range idx {
		idx[i] = -1
	}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if c, ok := headerAliases[key]; ok && idx[c] == -1 {
			idx[c] = i
		}
	}
	var missing []string
	if idx[colOperationDate] == -1 {
		missing = append(missing, Header[colOperationDate])
	}
	if idx[colOperationAmount] == -1 {
		missing = append(missing, Header[colOperationAmount])
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return idx, nil
}

func parseRow(idx [numColumns]int, row []string) (core.Transaction, *RowIssue) {
	get := func(c column) string {
		i := idx[c]
		if i < 0 || i >= len(row) {
			return ""
		}
		return cleanCell(row[i])
	}

	tx := core.Transaction{
		OperationDate:     get(colOperationDate),
		PaymentDate:       get(colPaymentDate),
		CardNumber:        get(colCardNumber),
		Status:            core.Status(strings.ToUpper(get(colStatus))),
		OperationCurrency: get(colOperationCurrency),
		PaymentCurrency:   get(colPaymentCurrency),
		Category:          get(colCategory),
		MCC:               parseMCC(get(colMCC)),
		Description:       get(colDescription),
	}

	amounts := []struct {
		col column
		dst *decimal.Decimal
	}{
		{colOperationAmount, &tx.OperationAmount},
		{colPaymentAmount, &tx.PaymentAmount},
		{colBonuses, &tx.Bonuses},
		{colInvestmentRounding, &tx.InvestmentRounding},
		{colRoundedAmount, &tx.RoundedAmount},
	}
	for _, a := range amounts {
		d, err := core.ParseAmount(get(a.col))
		if err != nil {
			return tx, &RowIssue{Column: Header[a.col], Err: err}
		}
		*a.dst = d
	}

	cb, err := core.ParseNullableAmount(get(colCashback))
	if err != nil {
		return tx, &RowIssue{Column: Header[colCashback], Err: err}
	}
	tx.Cashback = cb
	return tx, nil
}

// cleanCell trims the cell and maps spreadsheet "missing" markers to "".
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan", "none", "null":
		return ""
	}
	return s
}

func parseMCC(s string) int {
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	// Spreadsheets often store MCC as a float ("5411.0").
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
