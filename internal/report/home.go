package report

import (
	"context"
	"time"

	"finreport/internal/core"
	"finreport/internal/log"
	"finreport/internal/quotes"

	"golang.org/x/sync/errgroup"
)

var asOfLayouts = []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", time.DateOnly}

// ParseAsOf parses a report timestamp. Values are wall-clock times in UTC.
func ParseAsOf(s string) (time.Time, error) {
	for _, layout := range asOfLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, core.ErrInvalidDate
}

// PriceDate is the day stock prices are requested for: the day before asOf
// when asOf is today, since today's close is not known yet.
func PriceDate(asOf, now time.Time) time.Time {
	day := core.StartOfDay(asOf)
	if core.SameDay(asOf, now) {
		return day.AddDate(0, 0, -1)
	}
	return day
}

// Home builds the home report for asOf, an empty string meaning now. It never
// fails: sources that error are replaced by their fallbacks.
func (s *Service) Home(ctx context.Context, asOf string) core.HomeReport {
	done := s.logCall(ctx, log.OpHome, log.FieldAsOf, asOf)

	now := core.WallClock(s.now())
	if asOf == "" {
		asOf = now.Format("2006-01-02 15:04:05")
	}

	settings := s.loadSettings(ctx)
	at, err := ParseAsOf(asOf)
	if err != nil {
		s.logger.WarnContext(ctx, "Unparsable report timestamp, returning sentinel report", "as_of", asOf)
		report := core.NewHomeReport("")
		report.CurrencyRates = quotes.SentinelRates(settings.CurrencyCodes)
		report.StockPrices = quotes.SentinelPrices(settings.StockSymbols)
		done(homeSummary(report), nil)
		return report
	}

	report := core.NewHomeReport(Greeting(asOf))
	windowed := s.loadLedger(ctx).Within(core.MonthToDate(at))
	report.Cards = CardsInfo(windowed)
	report.TopTransactions = TopTransactions(windowed, s.topN)

	rateDate := core.StartOfDay(at)
	priceDate := PriceDate(at, now)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		report.CurrencyRates = s.quotes.CurrencyRates(gctx, settings.CurrencyCodes, rateDate)
		return nil
	})
	g.Go(func() error {
		report.StockPrices = s.quotes.StockPrices(gctx, settings.StockSymbols, priceDate)
		return nil
	})
	_ = g.Wait()

	done(homeSummary(report), nil)
	return report
}

func homeSummary(r core.HomeReport) []any {
	return []any{
		"cards", len(r.Cards),
		"top_transactions", len(r.TopTransactions),
		"currency_rates", len(r.CurrencyRates),
		"stock_prices", len(r.StockPrices),
	}
}
