package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// CardSummary aggregates spend and cashback for one card.
type CardSummary struct {
	LastDigits string          `json:"last_digits"`
	TotalSpent decimal.Decimal `json:"total_spent"`
	Cashback   decimal.Decimal `json:"cashback"`
}

// TopTransaction is the projection of a ledger row shown on the home report.
type TopTransaction struct {
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
}

// CurrencyRate is the rate of one currency against the target currency.
// Zero means the quote is unavailable.
type CurrencyRate struct {
	Currency string          `json:"currency"`
	Rate     decimal.Decimal `json:"rate"`
}

// StockPrice is the close price of one symbol. Zero means unavailable.
type StockPrice struct {
	Stock string          `json:"stock"`
	Price decimal.Decimal `json:"price"`
}

// HomeReport is the home page summary. Field order is the JSON key order.
type HomeReport struct {
	Greeting        string           `json:"greeting"`
	Cards           []CardSummary    `json:"cards"`
	TopTransactions []TopTransaction `json:"top_transactions"`
	CurrencyRates   []CurrencyRate   `json:"currency_rates"`
	StockPrices     []StockPrice     `json:"stock_prices"`
}

// NewHomeReport returns a report whose lists encode as [] rather than null.
func NewHomeReport(greeting string) HomeReport {
	return HomeReport{
		Greeting:        greeting,
		Cards:           []CardSummary{},
		TopTransactions: []TopTransaction{},
		CurrencyRates:   []CurrencyRate{},
		StockPrices:     []StockPrice{},
	}
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category string
	Amount   decimal.Decimal
}

// CategoryCashback is an ordered category to amount mapping. It encodes as a
// JSON object whose keys keep the slice order.
type CategoryCashback []CategoryAmount

// Get returns the amount for category and whether it is present.
func (c CategoryCashback) Get(category string) (decimal.Decimal, bool) {
	for _, e := range c {
		if e.Category == category {
			return e.Amount, true
		}
	}
	return decimal.Zero, false
}

func (c CategoryCashback) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Category)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(e.Amount.String())
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *CategoryCashback) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("category cashback: expected object, got %v", tok)
	}
	out := CategoryCashback{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("category cashback: expected key, got %v", tok)
		}
		var amount decimal.Decimal
		if err := dec.Decode(&amount); err != nil {
			return fmt.Errorf("category cashback %q: %w", key, err)
		}
		out = append(out, CategoryAmount{Category: key, Amount: amount})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}
