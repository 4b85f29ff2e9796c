// Package report derives the home, category and cashback reports from a
// normalized ledger.
package report

import (
	"slices"
	"sort"
	"strings"

	"finreport/internal/core"

	"github.com/shopspring/decimal"
)

// DefaultTopN is the number of transactions shown on the home report.
const DefaultTopN = 5

// CardsInfo sums spend and cashback per card over successful debits. Cards
// are emitted in ascending card-number order and keyed by their last four
// characters.
func CardsInfo(l core.Ledger) []core.CardSummary {
	type totals struct {
		spent    decimal.Decimal
		cashback decimal.Decimal
	}
	byCard := map[string]*totals{}
	for _, t := range l {
		if !t.IsSpend() || t.CardNumber == "" {
			continue
		}
		acc, ok := byCard[t.CardNumber]
		if !ok {
			acc = &totals{}
			byCard[t.CardNumber] = acc
		}
		acc.spent = acc.spent.Add(t.OperationAmount)
		acc.cashback = acc.cashback.Add(t.CashbackOrZero())
	}

	cards := make([]string, 0, len(byCard))
	for card := range byCard {
		cards = append(cards, card)
	}
	sort.Strings(cards)

	out := make([]core.CardSummary, 0, len(cards))
	for _, card := range cards {
		acc := byCard[card]
		out = append(out, core.CardSummary{
			LastDigits: lastDigits(card),
			TotalSpent: core.Round2(acc.spent.Abs()),
			Cashback:   acc.cashback,
		})
	}
	return out
}

func lastDigits(card string) string {
	r := []rune(card)
	if len(r) <= 4 {
		return card
	}
	return string(r[len(r)-4:])
}

// TopTransactions returns the n most recent rows, newest first. Rows without
// a normalized time sort last and ties keep ledger order.
func TopTransactions(l core.Ledger, n int) []core.TopTransaction {
	if n <= 0 {
		return []core.TopTransaction{}
	}
	sorted := l.Clone()
	slices.SortStableFunc(sorted, func(a, b core.Transaction) int {
		switch {
		case a.HasTime() && b.HasTime():
			return b.OperationTime.Compare(a.OperationTime)
		case a.HasTime():
			return -1
		case b.HasTime():
			return 1
		default:
			return 0
		}
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	out := make([]core.TopTransaction, len(sorted))
	for i, t := range sorted {
		out[i] = core.TopTransaction{
			Date:        t.PaymentDate,
			Amount:      t.OperationAmount,
			Category:    t.Category,
			Description: t.Description,
		}
	}
	return out
}

// FilterCategory keeps rows whose category matches, ignoring case.
func FilterCategory(l core.Ledger, category string) core.Ledger {
	category = strings.TrimSpace(category)
	return l.Filter(func(t core.Transaction) bool {
		return strings.EqualFold(strings.TrimSpace(t.Category), category)
	})
}
