package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryCashbackJSONKeepsOrder(t *testing.T) {
	in := CategoryCashback{
		{Category: "Ж/д билеты", Amount: decimal.NewFromInt(70)},
		{Category: "Каршеринг", Amount: decimal.NewFromInt(10)},
		{Category: "Аптеки", Amount: decimal.NewFromInt(0)},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ж/д билеты":70,"Каршеринг":10,"Аптеки":0}`, string(data))
	assert.Equal(t, `{"Ж/д билеты":70,"Каршеринг":10,"Аптеки":0}`, string(data))

	var out CategoryCashback
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 3)
	for i := range in {
		assert.Equal(t, in[i].Category, out[i].Category)
		assert.True(t, in[i].Amount.Equal(out[i].Amount))
	}
}

func TestCategoryCashbackEmpty(t *testing.T) {
	data, err := json.Marshal(CategoryCashback{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	var out CategoryCashback
	require.NoError(t, json.Unmarshal([]byte(`{}`), &out))
	assert.Empty(t, out)

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &out))
}

func TestHomeReportJSON(t *testing.T) {
	r := NewHomeReport("Good evening")
	r.Cards = append(r.Cards, CardSummary{
		LastDigits: "4556",
		TotalSpent: decimal.RequireFromString("1411.4"),
		Cashback:   decimal.NewFromInt(70),
	})
	r.CurrencyRates = append(r.CurrencyRates, CurrencyRate{Currency: "USD", Rate: decimal.RequireFromString("73.21")})

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"greeting":"Good evening","cards":[{"last_digits":"4556","total_spent":1411.4,"cashback":70}],`+
			`"top_transactions":[],"currency_rates":[{"currency":"USD","rate":73.21}],"stock_prices":[]}`,
		string(data))

	var back HomeReport
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r.Greeting, back.Greeting)
	require.Len(t, back.Cards, 1)
	assert.True(t, back.Cards[0].TotalSpent.Equal(r.Cards[0].TotalSpent))
	assert.True(t, back.CurrencyRates[0].Rate.Equal(r.CurrencyRates[0].Rate))

	again, err := json.Marshal(back)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}
