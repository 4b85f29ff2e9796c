package quotes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockPrice(t *testing.T) {
	var gotPath, gotUA string
	var p1, p2 int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		p1, _ = strconv.ParseInt(r.URL.Query().Get("period1"), 10, 64)
		p2, _ = strconv.ParseInt(r.URL.Query().Get("period2"), 10, 64)
		_, _ = w.Write([]byte(`{"chart":{"result":[{"indicators":{"quote":[{"close":[176.2845,177.571,null]}]}}],"error":null}}`))
	}))
	defer srv.Close()

	c := NewStockClient(srv.URL+"/", srv.Client())
	got, err := c.Price(context.Background(), "AAPL", time.Date(2021, 12, 31, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("177.57")), "got %s", got)
	assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	assert.Contains(t, gotUA, "Mozilla")
	assert.Equal(t, time.Date(2021, 12, 30, 0, 0, 0, 0, time.UTC).Unix(), p1)
	assert.Equal(t, time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC).Unix(), p2)
}

func TestStockPriceFailures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"not found", http.StatusNotFound, `{}`, ErrStatus},
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, ErrNoQuote},
		{"no result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, ErrNoQuote},
		{"all null", http.StatusOK, `{"chart":{"result":[{"indicators":{"quote":[{"close":[null,null]}]}}],"error":null}}`, ErrNoQuote},
		{"garbage", http.StatusOK, `<html>`, ErrMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewStockClient(srv.URL, srv.Client()).Price(context.Background(), "ZZZZ", quoteDate)
			assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
		})
	}
}

func TestNewHTTPClientHasJar(t *testing.T) {
	c, err := NewHTTPClient(time.Second)
	require.NoError(t, err)
	assert.NotNil(t, c.Jar)
	assert.Equal(t, time.Second, c.Timeout)
}
