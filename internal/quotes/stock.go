package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finreport/internal/core"

	"github.com/shopspring/decimal"
)

// StockClient reads daily closes from the Yahoo Finance chart API.
type StockClient struct {
	baseURL string
	http    *http.Client
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Indicators struct {
				Quote []struct {
					Close []decimal.NullDecimal `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func NewStockClient(baseURL string, httpClient *http.Client) *StockClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &StockClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Price returns the last close between date minus one day and date, rounded
// to two decimals.
func (c *StockClient) Price(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(day.AddDate(0, 0, -1).Unix(), 10))
	q.Set("period2", strconv.FormatInt(day.Unix(), 10))
	q.Set("interval", "1d")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("stock %s: %w", symbol, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return decimal.Zero, fmt.Errorf("stock %s: %w", symbol, err)
	}

	var body chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("stock %s: %w: %v", symbol, ErrMalformed, err)
	}
	if e := body.Chart.Error; e != nil {
		return decimal.Zero, fmt.Errorf("stock %s: %w: %s %s", symbol, ErrNoQuote, e.Code, e.Description)
	}
	if len(body.Chart.Result) == 0 || len(body.Chart.Result[0].Indicators.Quote) == 0 {
		return decimal.Zero, fmt.Errorf("stock %s: %w", symbol, ErrNoQuote)
	}
	closes := body.Chart.Result[0].Indicators.Quote[0].Close
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i].Valid {
			return core.Round2(closes[i].Decimal), nil
		}
	}
	return decimal.Zero, fmt.Errorf("stock %s: %w", symbol, ErrNoQuote)
}
