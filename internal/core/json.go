package core

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// jsonNumber encodes a decimal as a bare JSON number rather than a string.
type jsonNumber decimal.Decimal

func (n jsonNumber) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(n).String()), nil
}

type jsonNullNumber decimal.NullDecimal

func (n jsonNullNumber) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(n.Decimal.String()), nil
}

// marshalUnescaped leaves <, > and & in descriptions as they are.
func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	return marshalUnescaped(struct {
		OperationDate      string         `json:"operation_date"`
		PaymentDate        string         `json:"payment_date"`
		CardNumber         string         `json:"card_number"`
		Status             Status         `json:"status"`
		OperationAmount    jsonNumber     `json:"operation_amount"`
		OperationCurrency  string         `json:"operation_currency"`
		PaymentAmount      jsonNumber     `json:"payment_amount"`
		PaymentCurrency    string         `json:"payment_currency"`
		Cashback           jsonNullNumber `json:"cashback"`
		Category           string         `json:"category"`
		MCC                int            `json:"mcc"`
		Description        string         `json:"description"`
		Bonuses            jsonNumber     `json:"bonuses"`
		InvestmentRounding jsonNumber     `json:"investment_rounding"`
		RoundedAmount      jsonNumber     `json:"rounded_amount"`
	}{
		OperationDate:      t.OperationDate,
		PaymentDate:        t.PaymentDate,
		CardNumber:         t.CardNumber,
		Status:             t.Status,
		OperationAmount:    jsonNumber(t.OperationAmount),
		OperationCurrency:  t.OperationCurrency,
		PaymentAmount:      jsonNumber(t.PaymentAmount),
		PaymentCurrency:    t.PaymentCurrency,
		Cashback:           jsonNullNumber(t.Cashback),
		Category:           t.Category,
		MCC:                t.MCC,
		Description:        t.Description,
		Bonuses:            jsonNumber(t.Bonuses),
		InvestmentRounding: jsonNumber(t.InvestmentRounding),
		RoundedAmount:      jsonNumber(t.RoundedAmount),
	})
}

func (c CardSummary) MarshalJSON() ([]byte, error) {
	return marshalUnescaped(struct {
		LastDigits string     `json:"last_digits"`
		TotalSpent jsonNumber `json:"total_spent"`
		Cashback   jsonNumber `json:"cashback"`
	}{c.LastDigits, jsonNumber(c.TotalSpent), jsonNumber(c.Cashback)})
}

func (t TopTransaction) MarshalJSON() ([]byte, error) {
	return marshalUnescaped(struct {
		Date        string     `json:"date"`
		Amount      jsonNumber `json:"amount"`
		Category    string     `json:"category"`
		Description string     `json:"description"`
	}{t.Date, jsonNumber(t.Amount), t.Category, t.Description})
}

func (r CurrencyRate) MarshalJSON() ([]byte, error) {
	return marshalUnescaped(struct {
		Currency string     `json:"currency"`
		Rate     jsonNumber `json:"rate"`
	}{r.Currency, jsonNumber(r.Rate)})
}

func (p StockPrice) MarshalJSON() ([]byte, error) {
	return marshalUnescaped(struct {
		Stock string     `json:"stock"`
		Price jsonNumber `json:"price"`
	}{p.Stock, jsonNumber(p.Price)})
}
