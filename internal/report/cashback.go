package report

import (
	"slices"
	"sort"
	"strings"

	"finreport/internal/core"

	"github.com/shopspring/decimal"
)

// Categories that never earn elevated cashback, in English and as they appear
// in bank exports.
var excludedCategories = []string{
	"Transfers", "Bank Services", "Other",
	"Переводы", "Услуги банка", "Другое",
}

func excluded(category string) bool {
	category = strings.TrimSpace(category)
	for _, c := range excludedCategories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// IncreasedCashback computes, per category, the cashback the given month's
// successful debits would have earned at the elevated rate. The ledger must
// be normalized; rows without a time are ignored. Result is sorted by amount
// descending, ties by category name.
func IncreasedCashback(l core.Ledger, year, month int) (core.CategoryCashback, error) {
	if month < 1 || month > 12 {
		return nil, core.ErrInvalidMonth
	}

	sums := map[string]decimal.Decimal{}
	for _, t := range l {
		if !t.IsSpend() || !t.HasTime() || excluded(t.Category) {
			continue
		}
		if t.OperationTime.Year() != year || int(t.OperationTime.Month()) != month {
			continue
		}
		sums[t.Category] = sums[t.Category].Add(core.IncreasedCashback(t.OperationAmount))
	}

	categories := make([]string, 0, len(sums))
	for c := range sums {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	out := make(core.CategoryCashback, len(categories))
	for i, c := range categories {
		out[i] = core.CategoryAmount{Category: c, Amount: sums[c]}
	}
	slices.SortStableFunc(out, func(a, b core.CategoryAmount) int {
		return b.Amount.Cmp(a.Amount)
	})
	return out, nil
}
