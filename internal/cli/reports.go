package cli

import (
	"context"
	"fmt"

	"finreport/internal/backend"
	"finreport/internal/cache"
	"finreport/internal/config"
	"finreport/internal/log"
	"finreport/internal/quotes"
	"finreport/internal/report"
	"finreport/internal/settings"

	"github.com/shopspring/decimal"
)

// ReportStack is a report service together with the resources behind it.
type ReportStack struct {
	Service *report.Service
	Backend *backend.Result
	Caches  *cache.Manager
}

// NewReportStack wires the configured ledger backend, the settings file and
// the quote fetcher into a report service.
func NewReportStack(ctx context.Context, cfg *config.Config, logger *log.Logger) (*ReportStack, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger).Create(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", backendCfg.Type, err)
	}

	fetcher, caches, err := NewQuoteFetcher(cfg, logger)
	if err != nil {
		_ = result.Close()
		return nil, err
	}

	svc := report.NewService(result.Source, settings.NewFile(cfg.SettingsPath), fetcher, logger)
	return &ReportStack{Service: svc, Backend: result, Caches: caches}, nil
}

// NewQuoteFetcher builds the currency and stock clients behind a cached,
// rate-limited fetcher. The returned manager evicts expired quotes once
// StartCleanup is called.
func NewQuoteFetcher(cfg *config.Config, logger *log.Logger) (*quotes.Fetcher, *cache.Manager, error) {
	fallback, err := quotes.ParseFallbackMode(cfg.StockFallback)
	if err != nil {
		return nil, nil, err
	}
	httpClient, err := quotes.NewHTTPClient(cfg.QuoteTimeout)
	if err != nil {
		return nil, nil, err
	}

	manager := cache.NewManager(logger)
	var quoteCache *cache.LRUCache[decimal.Decimal]
	if cfg.QuoteCacheSize > 0 {
		quoteCache = cache.NewLRUCache[decimal.Decimal](cfg.QuoteCacheSize, cfg.QuoteCacheTTL)
		manager.Register(quoteCache)
	}

	fetcher := quotes.NewFetcher(
		quotes.NewCurrencyClient(cfg.CurrencyAPIURL, cfg.CurrencyAPIKey, cfg.TargetCurrency, httpClient),
		quotes.NewStockClient(cfg.StockAPIURL, httpClient),
		quotes.Options{
			Timeout:        cfg.QuoteTimeout,
			Concurrency:    cfg.QuoteConcurrency,
			RatePerSecond:  cfg.QuoteRateLimit,
			Fallback:       fallback,
			TargetCurrency: cfg.TargetCurrency,
			Cache:          quoteCache,
		},
		logger,
	)
	return fetcher, manager, nil
}

// Close stops cache cleanup and releases the backend.
func (s *ReportStack) Close() error {
	if s == nil {
		return nil
	}
	s.Caches.Stop()
	return s.Backend.Close()
}
