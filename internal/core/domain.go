package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusOK     Status = "OK"
	StatusFailed Status = "FAILED"
)

type (
	Status string

	// Transaction is one ledger row as exported by the bank. OperationDate keeps
	// the raw text; OperationTime is filled by Ledger.Normalize.
	Transaction struct {
		OperationDate      string              `json:"operation_date"`
		PaymentDate        string              `json:"payment_date"`
		CardNumber         string              `json:"card_number"` // empty when the operation has no card
		Status             Status              `json:"status"`
		OperationAmount    decimal.Decimal     `json:"operation_amount"`
		OperationCurrency  string              `json:"operation_currency"`
		PaymentAmount      decimal.Decimal     `json:"payment_amount"`
		PaymentCurrency    string              `json:"payment_currency"`
		Cashback           decimal.NullDecimal `json:"cashback"`
		Category           string              `json:"category"`
		MCC                int                 `json:"mcc"`
		Description        string              `json:"description"`
		Bonuses            decimal.Decimal     `json:"bonuses"`
		InvestmentRounding decimal.Decimal     `json:"investment_rounding"`
		RoundedAmount      decimal.Decimal     `json:"rounded_amount"`

		OperationTime time.Time `json:"-"`
	}

	// Ledger is an ordered set of transactions in file order.
	Ledger []Transaction

	// DateWindow is inclusive on both ends.
	DateWindow struct {
		Start time.Time
		End   time.Time
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidWindow = errors.New("window start after end")
)

// IsSpend reports whether the row counts towards spend-based reports.
func (t Transaction) IsSpend() bool {
	return t.Status == StatusOK && t.OperationAmount.IsNegative()
}

// HasTime reports whether the row has a normalized timestamp.
func (t Transaction) HasTime() bool {
	return !t.OperationTime.IsZero()
}

// CashbackOrZero returns the cashback or zero when the bank left it empty.
func (t Transaction) CashbackOrZero() decimal.Decimal {
	if t.Cashback.Valid {
		return t.Cashback.Decimal
	}
	return decimal.Zero
}

// Filter returns a new ledger with the rows keep accepts.
func (l Ledger) Filter(keep func(Transaction) bool) Ledger {
	out := make(Ledger, 0, len(l))
	for _, t := range l {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// Clone returns a copy that can be reordered without touching l.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	copy(out, l)
	return out
}

func (w DateWindow) Validate() error {
	if w.Start.After(w.End) {
		return ErrInvalidWindow
	}
	return nil
}

// Contains reports whether t lies inside the window, bounds included.
func (w DateWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
