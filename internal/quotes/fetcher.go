package quotes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finreport/internal/cache"
	"finreport/internal/core"
	"finreport/internal/log"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Ports implemented by CurrencyClient and StockClient.
type (
	RateSource interface {
		Rate(ctx context.Context, code string, date time.Time) (decimal.Decimal, error)
	}

	PriceSource interface {
		Price(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, error)
	}
)

// FallbackMode decides what a stock batch looks like when lookups fail.
type FallbackMode string

const (
	// FallbackRequested reports a zero price for each failed symbol.
	FallbackRequested FallbackMode = "requested"
	// FallbackLegacy replaces the whole batch with the default symbols at
	// zero as soon as one lookup fails.
	FallbackLegacy FallbackMode = "legacy"
)

func ParseFallbackMode(s string) (FallbackMode, error) {
	switch m := FallbackMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", FallbackRequested:
		return FallbackRequested, nil
	case FallbackLegacy:
		return FallbackLegacy, nil
	default:
		return "", fmt.Errorf("unknown stock fallback mode %q", s)
	}
}

const (
	kindCurrency = "currency"
	kindStock    = "stock"
)

// Options tunes the fan-out.
type Options struct {
	// Timeout bounds each individual lookup.
	Timeout time.Duration
	// Concurrency caps in-flight lookups per batch.
	Concurrency int
	// RatePerSecond throttles outbound calls; zero disables throttling.
	RatePerSecond float64
	Fallback      FallbackMode
	// TargetCurrency is part of the cache key for currency rates.
	TargetCurrency string
	// Cache holds successful lookups. Nil disables caching.
	Cache *cache.LRUCache[decimal.Decimal]
}

// Fetcher runs quote lookups concurrently and never fails: a lookup that
// errors or times out yields the zero sentinel.
type Fetcher struct {
	currency RateSource
	stock    PriceSource
	opts     Options
	limiter  *rate.Limiter
	logger   *log.Logger
}

func NewFetcher(currency RateSource, stock PriceSource, opts Options, logger *log.Logger) *Fetcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Fallback == "" {
		opts.Fallback = FallbackRequested
	}
	if logger == nil {
		logger = log.NewNop()
	}
	f := &Fetcher{
		currency: currency,
		stock:    stock,
		opts:     opts,
		logger:   logger.WithComponent(log.ComponentQuotes),
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Concurrency
		f.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return f
}

// CurrencyRates returns one entry per code, in order.
func (f *Fetcher) CurrencyRates(ctx context.Context, codes []string, date time.Time) []core.CurrencyRate {
	values, _ := f.fetchAll(ctx, kindCurrency, codes, date, func(ctx context.Context, code string) (decimal.Decimal, error) {
		return f.currency.Rate(ctx, code, date)
	})
	out := make([]core.CurrencyRate, len(codes))
	for i, code := range codes {
		out[i] = core.CurrencyRate{Currency: code, Rate: values[i]}
	}
	return out
}

// StockPrices returns one entry per symbol, in order. In legacy fallback mode
// any failure turns the result into the default symbols at zero.
func (f *Fetcher) StockPrices(ctx context.Context, symbols []string, date time.Time) []core.StockPrice {
	values, failed := f.fetchAll(ctx, kindStock, symbols, date, func(ctx context.Context, symbol string) (decimal.Decimal, error) {
		return f.stock.Price(ctx, symbol, date)
	})
	if failed > 0 && f.opts.Fallback == FallbackLegacy {
		return SentinelPrices(core.DefaultStockSymbols())
	}
	out := make([]core.StockPrice, len(symbols))
	for i, symbol := range symbols {
		out[i] = core.StockPrice{Stock: symbol, Price: values[i]}
	}
	return out
}

// fetchAll returns values aligned with keys and the number of failed lookups.
func (f *Fetcher) fetchAll(ctx context.Context, kind string, keys []string, date time.Time,
	lookup func(context.Context, string) (decimal.Decimal, error)) ([]decimal.Decimal, int) {

	values := make([]decimal.Decimal, len(keys))
	errs := make([]error, len(keys))
	day := date.Format(time.DateOnly)

	var g errgroup.Group
	g.SetLimit(f.opts.Concurrency)
	for i, key := range keys {
		g.Go(func() error {
			values[i], errs[i] = f.fetchOne(ctx, kind, key, day, lookup)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		values[i] = decimal.Zero
		f.logger.WarnContext(ctx, "Quote unavailable, using sentinel",
			log.NewFields().WithQuote(kind, keys[i], day).WithError(err).ToSlice()...)
	}
	return values, failed
}

func (f *Fetcher) fetchOne(ctx context.Context, kind, key, day string,
	lookup func(context.Context, string) (decimal.Decimal, error)) (decimal.Decimal, error) {

	cacheKey := f.cacheKey(kind, key, day)
	if f.opts.Cache != nil {
		if v, ok := f.opts.Cache.Get(cacheKey); ok {
			return v, nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()
	if f.limiter != nil {
		if err := f.limiter.Wait(callCtx); err != nil {
			return decimal.Zero, fmt.Errorf("rate limit: %w", err)
		}
	}

	start := time.Now()
	v, err := lookup(callCtx, key)
	if err != nil {
		return decimal.Zero, err
	}
	f.logger.DebugContext(ctx, "Quote fetched",
		log.NewFields().WithQuote(kind, key, day).WithDuration(time.Since(start)).ToSlice()...)
	if f.opts.Cache != nil {
		f.opts.Cache.Set(cacheKey, v)
	}
	return v, nil
}

func (f *Fetcher) cacheKey(kind, key, day string) string {
	if kind == kindCurrency {
		return kind + ":" + key + "/" + f.opts.TargetCurrency + ":" + day
	}
	return kind + ":" + key + ":" + day
}

// SentinelRates returns a zero rate for each code.
func SentinelRates(codes []string) []core.CurrencyRate {
	out := make([]core.CurrencyRate, len(codes))
	for i, code := range codes {
		out[i] = core.CurrencyRate{Currency: code, Rate: decimal.Zero}
	}
	return out
}

// SentinelPrices returns a zero price for each symbol.
func SentinelPrices(symbols []string) []core.StockPrice {
	out := make([]core.StockPrice, len(symbols))
	for i, symbol := range symbols {
		out[i] = core.StockPrice{Stock: symbol, Price: decimal.Zero}
	}
	return out
}
