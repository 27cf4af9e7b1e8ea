package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/s0_data/quality"
	"github.com/wonny/limitup/pkg/logger"
)

var (
	// ErrCalendarBoundary means the filter date has no next and next-next trading day
	ErrCalendarBoundary = errors.New("filter date too close to calendar end")

	// ErrNotTradingDay means the filter date is not in the trading calendar
	ErrNotTradingDay = errors.New("filter date is not a trading day")
)

// Simulator replays the hold rule for one filter date:
// buy at the open of the next trading day, sell at the close of the day after.
// ⭐ SSOT: 매수/매도일 결정 규칙은 여기서만
type Simulator struct {
	source contracts.MarketDataSource
	logger *logger.Logger

	mu       sync.Mutex
	calendar []time.Time
}

// NewSimulator creates a new simulator
func NewSimulator(source contracts.MarketDataSource, log *logger.Logger) *Simulator {
	return &Simulator{
		source: source,
		logger: log.WithField("module", "backtest_simulator"),
	}
}

// Calendar returns the trading calendar, fetched once and sorted ascending
func (s *Simulator) Calendar(ctx context.Context) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.calendar != nil {
		return s.calendar, nil
	}

	days, err := s.source.TradingCalendar(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trading calendar: %w", err)
	}

	cal := make([]time.Time, len(days))
	for i, d := range days {
		cal[i] = dateOnly(d)
	}
	sort.Slice(cal, func(i, j int) bool { return cal[i].Before(cal[j]) })

	s.calendar = cal
	return cal, nil
}

// ResolveDates finds the buy and sell dates for a filter date
func ResolveDates(calendar []time.Time, filterDate time.Time) (buy, sell time.Time, err error) {
	day := dateOnly(filterDate)
	i := sort.Search(len(calendar), func(i int) bool { return !calendar[i].Before(day) })
	if i == len(calendar) || !calendar[i].Equal(day) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s", ErrNotTradingDay, day.Format(contracts.DateLayout))
	}
	if i+2 >= len(calendar) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s", ErrCalendarBoundary, day.Format(contracts.DateLayout))
	}
	return calendar[i+1], calendar[i+2], nil
}

// Simulate computes forward returns for the ranked symbols in rank order.
// The calendar is resolved before any price lookup, so a boundary date never touches the source.
// Symbols whose lookups fail are listed in Skipped and excluded from the total.
func (s *Simulator) Simulate(ctx context.Context, filterDate time.Time, ranked []contracts.RankedStock) (contracts.DayResult, error) {
	result := contracts.DayResult{FilterDate: dateOnly(filterDate)}

	calendar, err := s.Calendar(ctx)
	if err != nil {
		return result, err
	}

	buy, sell, err := ResolveDates(calendar, filterDate)
	if err != nil {
		return result, err
	}
	result.BuyDate = buy
	result.SellDate = sell

	for _, r := range ranked {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		entry, err := s.roundTrip(ctx, r.Symbol, buy, sell)
		if err != nil {
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"symbol":      r.Symbol,
				"filter_date": result.FilterDate.Format(contracts.DateLayout),
			}).Warn("Skipping symbol in backtest")
			result.Skipped = append(result.Skipped, r.Symbol)
			continue
		}
		entry.FilterDate = result.FilterDate
		result.Entries = append(result.Entries, entry)
	}

	result.TotalReturn = contracts.SumReturns(result.Entries)
	return result, nil
}

// roundTrip looks up the buy open and sell close with one source request
func (s *Simulator) roundTrip(ctx context.Context, symbol string, buy, sell time.Time) (contracts.BacktestEntry, error) {
	series, err := s.source.FetchBars(ctx, symbol, contracts.Daily, buy, sell)
	if err != nil {
		return contracts.BacktestEntry{}, fmt.Errorf("fetch bars: %w", err)
	}
	if series == nil {
		return contracts.BacktestEntry{}, fmt.Errorf("no bars returned")
	}

	open, err := priceOn(series, buy, contracts.ColOpen)
	if err != nil {
		return contracts.BacktestEntry{}, err
	}
	if open == 0 {
		return contracts.BacktestEntry{}, fmt.Errorf("buy open is zero")
	}
	closePrice, err := priceOn(series, sell, contracts.ColClose)
	if err != nil {
		return contracts.BacktestEntry{}, err
	}

	return contracts.BacktestEntry{
		Symbol:    symbol,
		BuyDate:   buy,
		BuyOpen:   open,
		SellDate:  sell,
		SellClose: closePrice,
		Return:    (closePrice - open) / open,
	}, nil
}

func priceOn(series *contracts.RawSeries, day time.Time, column string) (float64, error) {
	for i := range series.Rows {
		row := &series.Rows[i]
		d, err := quality.ParseDate(row.Date)
		if err != nil || !d.Equal(day) {
			continue
		}
		v := row.Cell(column)
		if v == nil {
			return 0, fmt.Errorf("null %s on %s", column, day.Format(contracts.DateLayout))
		}
		return *v, nil
	}
	return 0, fmt.Errorf("no bar on %s", day.Format(contracts.DateLayout))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
