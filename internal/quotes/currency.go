package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finreport/internal/core"

	"github.com/shopspring/decimal"
)

// CurrencyClient queries a currencyapi-style endpoint:
//
//	GET {baseURL}?apikey=KEY&base_currency=USD&date=2021-12-31&currencies=RUB
//	{"data": {"RUB": 73.2}}  or  {"data": {"RUB": {"code": "RUB", "value": 73.2}}}
type CurrencyClient struct {
	baseURL string
	apiKey  string
	target  string
	http    *http.Client
}

func NewCurrencyClient(baseURL, apiKey, target string, httpClient *http.Client) *CurrencyClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &CurrencyClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		target:  strings.ToUpper(strings.TrimSpace(target)),
		http:    httpClient,
	}
}

// Target returns the currency every rate is expressed in.
func (c *CurrencyClient) Target() string { return c.target }

// Rate returns how many target units one unit of code buys on date, rounded
// to two decimals.
func (c *CurrencyClient) Rate(ctx context.Context, code string, date time.Time) (decimal.Decimal, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return decimal.Zero, fmt.Errorf("currency url: %w", err)
	}
	q := u.Query()
	q.Set("apikey", c.apiKey)
	q.Set("base_currency", code)
	q.Set("date", date.Format(time.DateOnly))
	q.Set("currencies", c.target)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("currency %s: %w", code, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return decimal.Zero, fmt.Errorf("currency %s: %w", code, err)
	}

	var body struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("currency %s: %w: %v", code, ErrMalformed, err)
	}
	raw, ok := body.Data[c.target]
	if !ok {
		return decimal.Zero, fmt.Errorf("currency %s: %w: %s", code, ErrNoQuote, c.target)
	}
	rate, err := decodeRate(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("currency %s: %w", code, err)
	}
	return core.Round2(rate), nil
}

func decodeRate(raw json.RawMessage) (decimal.Decimal, error) {
	var d decimal.NullDecimal
	if err := json.Unmarshal(raw, &d); err == nil {
		if !d.Valid {
			return decimal.Zero, ErrNoQuote
		}
		return d.Decimal, nil
	}
	var obj struct {
		Value decimal.NullDecimal `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !obj.Value.Valid {
		return decimal.Zero, ErrNoQuote
	}
	return obj.Value.Decimal, nil
}
