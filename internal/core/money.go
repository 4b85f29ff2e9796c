// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from ledger cells
// and the rounding rules used by the reports.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// IncreasedCashbackRate is the hypothetical elevated cashback rate (5%).
var IncreasedCashbackRate = decimal.RequireFromString("0.05")

// ParseAmount converts a ledger cell to a decimal.
//
// It accepts dot and comma decimal separators, thousands separators made of
// spaces (including non-breaking ones) and the unicode minus sign. An empty
// cell is zero.
//
// Examples:
//
//	ParseAmount("-1411.4")    -> -1411.4, nil
//	ParseAmount("-1 411,40")  -> -1411.4, nil
//	ParseAmount("")           -> 0, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	s = normalizeNumber(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseNullableAmount is ParseAmount for columns where an empty cell means
// "no value" rather than zero.
func ParseNullableAmount(s string) (decimal.NullDecimal, error) {
	s = normalizeNumber(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, ErrInvalidAmount
	}
	return decimal.NewNullDecimal(d), nil
}

func normalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(
		" ", "",
		"\u00a0", "",
		"\u202f", "",
		"\u2212", "-",
		",", ".",
	).Replace(s)
	return s
}

// Round2 rounds half away from zero to two decimals, the precision used for
// quotes and card totals.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// IncreasedCashback is floor(|amount| * 5%).
func IncreasedCashback(amount decimal.Decimal) decimal.Decimal {
	return amount.Abs().Mul(IncreasedCashbackRate).Floor()
}
