package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finreport/internal/core"
	"finreport/internal/ledger"
	"finreport/internal/log"
)

// Ports the service depends on.
type (
	SettingsSource interface {
		Load(ctx context.Context) (core.UserSettings, error)
	}

	QuoteFetcher interface {
		CurrencyRates(ctx context.Context, codes []string, date time.Time) []core.CurrencyRate
		StockPrices(ctx context.Context, symbols []string, date time.Time) []core.StockPrice
	}
)

// Service composes the reports from a ledger source, the user settings and
// the quote fetcher.
type Service struct {
	ledger   ledger.Source
	settings SettingsSource
	quotes   QuoteFetcher
	logger   *log.Logger
	now      func() time.Time
	topN     int
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTopN changes how many transactions the home report lists.
func WithTopN(n int) Option {
	return func(s *Service) { s.topN = n }
}

func NewService(src ledger.Source, settings SettingsSource, quotes QuoteFetcher, logger *log.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = log.NewNop()
	}
	s := &Service{
		ledger:   src,
		settings: settings,
		quotes:   quotes,
		logger:   logger.WithComponent(log.ComponentReport),
		now:      time.Now,
		topN:     DefaultTopN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SpendingByCategory returns the rows of category in the three months up to
// date (YYYY-MM-DD, midnight). An empty date means now.
func (s *Service) SpendingByCategory(ctx context.Context, category, date string) (core.Ledger, error) {
	done := s.logCall(ctx, log.OpSpendingByCategory, log.FieldCategory, category, log.FieldDate, date)

	var asOf time.Time
	if date == "" {
		asOf = core.WallClock(s.now())
	} else {
		t, err := time.ParseInLocation(time.DateOnly, date, time.UTC)
		if err != nil {
			err = fmt.Errorf("%w: %q", core.ErrInvalidDate, date)
			done(nil, err)
			return nil, err
		}
		asOf = t
	}

	rows := FilterCategory(s.loadLedger(ctx).Within(core.TrailingMonths(asOf, 3)), category)
	done([]any{"rows", len(rows)}, nil)
	return rows, nil
}

// IncreasedCashback reports the elevated cashback per category for a month.
func (s *Service) IncreasedCashback(ctx context.Context, year, month int) (core.CategoryCashback, error) {
	done := s.logCall(ctx, log.OpIncreasedCashback, log.FieldYear, year, log.FieldMonth, month)

	if month < 1 || month > 12 {
		err := fmt.Errorf("%w: %d", core.ErrInvalidMonth, month)
		done(nil, err)
		return nil, err
	}
	result, err := IncreasedCashback(s.loadLedger(ctx), year, month)
	if err != nil {
		done(nil, err)
		return nil, err
	}
	done([]any{"categories", len(result)}, nil)
	return result, nil
}

// loadLedger returns the normalized ledger, or an empty one when the source
// fails.
func (s *Service) loadLedger(ctx context.Context) core.Ledger {
	if s.ledger == nil {
		return core.Ledger{}
	}
	raw, err := s.ledger.Load(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Ledger unavailable, using empty ledger",
			log.FieldOperation, log.OpLoad, log.FieldError, err)
		return core.Ledger{}
	}
	l, rowErrs := raw.Normalize()
	if len(rowErrs) > 0 {
		idx := make([]int, len(rowErrs))
		for i, e := range rowErrs {
			idx[i] = e.Index
		}
		s.logger.WarnContext(ctx, "Ledger rows with unparsable operation date excluded",
			log.FieldOperation, log.OpNormalize,
			log.FieldRows, idx)
	}
	return l
}

func (s *Service) loadSettings(ctx context.Context) core.UserSettings {
	if s.settings == nil {
		return core.DefaultSettings()
	}
	settings, err := s.settings.Load(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Settings unavailable, using defaults", log.FieldError, err)
	}
	if len(settings.CurrencyCodes) == 0 {
		settings.CurrencyCodes = core.DefaultCurrencyCodes()
	}
	if len(settings.StockSymbols) == 0 {
		settings.StockSymbols = core.DefaultStockSymbols()
	}
	return settings
}

// logCall logs the start of an operation and returns a func logging its end.
func (s *Service) logCall(ctx context.Context, op string, args ...any) func(result []any, err error) {
	start := time.Now()
	s.logger.InfoContext(ctx, "Report call started",
		log.FieldOperation, op, slog.Group(log.FieldArgs, args...))
	return func(result []any, err error) {
		fields := []any{log.FieldOperation, op, log.FieldDuration, time.Since(start).Milliseconds()}
		if err != nil {
			s.logger.ErrorContext(ctx, "Report call failed", append(fields, log.FieldError, err)...)
			return
		}
		s.logger.InfoContext(ctx, "Report call finished", append(fields, result...)...)
	}
}
