package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/metrics"
	"github.com/wonny/limitup/pkg/logger"
)

// Selector produces the ranked symbols for a filter date (screen → top N)
type Selector func(ctx context.Context, filterDate time.Time) ([]contracts.RankedStock, error)

// DateFailure is a filter date that could not be simulated
type DateFailure struct {
	FilterDate time.Time `json:"filter_date"`
	Reason     string    `json:"reason"`
	Err        error     `json:"-"`
}

// RunResult holds a multi-date backtest run
type RunResult struct {
	Days       []contracts.DayResult `json:"days"`
	Paths      []string              `json:"paths"`
	Failures   []DateFailure         `json:"failures,omitempty"`
	GrandTotal float64               `json:"grand_total_return"`
	Duration   time.Duration         `json:"duration"`
}

// Engine runs backtests over a set of filter dates
// ⭐ SSOT: 백테스트 실행은 여기서만
type Engine struct {
	simulator *Simulator
	journal   *Journal
	metrics   *metrics.Registry
	logger    *logger.Logger
}

// NewEngine creates a new backtest engine
func NewEngine(simulator *Simulator, journal *Journal, logger *logger.Logger) *Engine {
	return &Engine{
		simulator: simulator,
		journal:   journal,
		logger:    logger.WithField("module", "backtest"),
	}
}

// WithMetrics attaches a metrics registry
func (e *Engine) WithMetrics(m *metrics.Registry) *Engine {
	e.metrics = m
	return e
}

// Journal returns the file journal
func (e *Engine) Journal() *Journal {
	return e.journal
}

// Run simulates every filter date in ascending order and persists one file per date.
// A failing date is recorded in Failures and does not stop the others.
func (e *Engine) Run(ctx context.Context, filterDates []time.Time, selector Selector) (*RunResult, error) {
	start := time.Now()
	dates := uniqueDates(filterDates)

	e.logger.WithFields(map[string]interface{}{
		"dates": len(dates),
		"dir":   e.journal.Dir(),
	}).Info("Starting backtest")

	timer := e.metrics.StartStepTimer("backtest")
	result := &RunResult{}

	for _, d := range dates {
		if err := ctx.Err(); err != nil {
			timer.Stop("cancelled")
			return result, fmt.Errorf("backtest cancelled: %w", err)
		}

		day, path, err := e.runDay(ctx, d, selector)
		if err != nil {
			reason := failureReason(err)
			e.metrics.RecordBacktestDay(reason)
			e.logger.WithError(err).WithFields(map[string]interface{}{
				"filter_date": d.Format(contracts.DateLayout),
				"reason":      reason,
			}).Error("Backtest date failed")
			result.Failures = append(result.Failures, DateFailure{FilterDate: d, Reason: reason, Err: err})
			continue
		}

		e.metrics.RecordBacktestDay("ok")
		result.Days = append(result.Days, day)
		result.Paths = append(result.Paths, path)
		result.GrandTotal += day.TotalReturn

		e.logger.WithFields(map[string]interface{}{
			"filter_date":  d.Format(contracts.DateLayout),
			"entries":      len(day.Entries),
			"skipped":      len(day.Skipped),
			"total_return": day.TotalReturn,
		}).Info("Backtest date completed")
	}

	result.Duration = time.Since(start)
	timer.Stop("ok")

	e.logger.WithFields(map[string]interface{}{
		"days":               len(result.Days),
		"failures":           len(result.Failures),
		"grand_total_return": result.GrandTotal,
		"duration_ms":        result.Duration.Milliseconds(),
	}).Info("Backtest completed")

	return result, nil
}

func (e *Engine) runDay(ctx context.Context, d time.Time, selector Selector) (contracts.DayResult, string, error) {
	// 경계 검사를 먼저: 시뮬레이션 불가능한 날짜는 스크리닝도 생략
	calendar, err := e.simulator.Calendar(ctx)
	if err != nil {
		return contracts.DayResult{}, "", err
	}
	if _, _, err := ResolveDates(calendar, d); err != nil {
		return contracts.DayResult{}, "", err
	}

	ranked, err := selector(ctx, d)
	if err != nil {
		return contracts.DayResult{}, "", fmt.Errorf("select: %w", err)
	}

	day, err := e.simulator.Simulate(ctx, d, ranked)
	if err != nil {
		return contracts.DayResult{}, "", err
	}

	path, err := e.journal.WriteDay(day)
	if err != nil {
		return contracts.DayResult{}, "", err
	}
	return day, path, nil
}

// Merge combines persisted per-date files; see Journal.Merge
func (e *Engine) Merge(dates []time.Time) (*MergeResult, error) {
	return e.journal.Merge(dates)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrCalendarBoundary):
		return "calendar_boundary"
	case errors.Is(err, ErrNotTradingDay):
		return "not_trading_day"
	case errors.Is(err, ErrInsufficientCoverage):
		return "insufficient_coverage"
	default:
		return "error"
	}
}
