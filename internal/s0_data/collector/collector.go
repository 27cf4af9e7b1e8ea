package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/metrics"
	"github.com/wonny/limitup/internal/s0_data"
	"github.com/wonny/limitup/internal/s0_data/quality"
	"github.com/wonny/limitup/internal/s1_universe"
	"github.com/wonny/limitup/pkg/config"
	"github.com/wonny/limitup/pkg/logger"
	"github.com/wonny/limitup/pkg/workerpool"
)

// Collector orchestrates fetch → validate → store per symbol
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	source    contracts.MarketDataSource
	dir       *s1_universe.Directory
	validator *quality.Validator
	store     *s0_data.Store
	metrics   *metrics.Registry
	cfg       Config
	logger    *logger.Logger
}

// Config holds collector configuration
type Config struct {
	Workers     int // Number of concurrent workers
	TaskTimeout time.Duration
	Frequency   contracts.Frequency
	Start       time.Time
	End         time.Time
}

// ConfigFrom derives the collector config from the application config
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Workers:     cfg.Fetch.Workers,
		TaskTimeout: cfg.Fetch.TaskTimeout,
		Frequency:   contracts.Frequency(cfg.Fetch.Frequency),
		Start:       cfg.Fetch.StartDate,
		End:         cfg.Fetch.EndDate,
	}
}

// NewCollector creates a new Collector instance
func NewCollector(
	source contracts.MarketDataSource,
	dir *s1_universe.Directory,
	validator *quality.Validator,
	store *s0_data.Store,
	cfg Config,
	log *logger.Logger,
) *Collector {
	return &Collector{
		source:    source,
		dir:       dir,
		validator: validator,
		store:     store,
		cfg:       cfg,
		logger:    log.WithField("module", "collector"),
	}
}

// WithMetrics attaches a metrics registry
func (c *Collector) WithMetrics(m *metrics.Registry) *Collector {
	c.metrics = m
	return c
}

// Key returns the cache key for a listed symbol
func (c *Collector) Key(symbol string) (contracts.CacheKey, bool) {
	name, ok := c.dir.Name(symbol)
	if !ok {
		return contracts.CacheKey{}, false
	}
	return contracts.CacheKey{Symbol: symbol, Name: name, Start: c.cfg.Start, End: c.cfg.End}, true
}

// FetchOne fetches, validates and stores one symbol. It never panics the batch
// and writes nothing unless the whole series is accepted.
func (c *Collector) FetchOne(ctx context.Context, symbol string) contracts.FetchOutcome {
	out := c.fetchOne(ctx, symbol)
	c.metrics.RecordFetch(out.Kind)
	return out
}

func (c *Collector) fetchOne(ctx context.Context, symbol string) (out contracts.FetchOutcome) {
	out.Symbol = symbol

	defer func() {
		if r := recover(); r != nil {
			out.Kind = contracts.OutcomeComputationError
			out.Reason = fmt.Sprintf("panic: %v", r)
			c.logger.WithField("symbol", symbol).Errorf("Recovered panic during fetch: %v", r)
		}
	}()

	key, ok := c.Key(symbol)
	if !ok {
		out.Kind = contracts.OutcomeSourceFailure
		out.Reason = "symbol not in directory"
		return out
	}

	raw, err := c.source.FetchBars(ctx, symbol, c.cfg.Frequency, c.cfg.Start, c.cfg.End)
	if err != nil {
		out.Kind = contracts.OutcomeSourceFailure
		out.Reason = err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			out.Reason = "timeout: " + err.Error()
		}
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to fetch bars")
		return out
	}

	verdict := c.validator.Validate(raw, symbol)
	if !verdict.Accepted {
		out.Kind = contracts.OutcomeValidationRejected
		out.Reason = verdict.Reason
		c.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"reason": verdict.Reason,
		}).Debug("Series rejected")
		return out
	}

	series, err := quality.Normalize(raw, key.Name)
	if err != nil {
		out.Kind = contracts.OutcomeValidationRejected
		out.Reason = err.Error()
		return out
	}

	path, err := c.store.Save(key, series)
	if err != nil {
		out.Kind = contracts.OutcomeComputationError
		out.Reason = err.Error()
		c.logger.WithError(err).WithField("symbol", symbol).Error("Failed to save series")
		return out
	}

	out.Kind = contracts.OutcomeSuccess
	out.Rows = series.Len()
	out.Path = path
	return out
}

// FetchAll runs FetchOne for every symbol on a bounded pool; results are keyed by symbol
func (c *Collector) FetchAll(ctx context.Context, symbols []string, progress workerpool.ProgressFunc) map[string]contracts.FetchOutcome {
	c.logger.WithFields(map[string]interface{}{
		"stock_count": len(symbols),
		"from":        c.cfg.Start.Format("2006-01-02"),
		"to":          c.cfg.End.Format("2006-01-02"),
		"workers":     c.cfg.Workers,
	}).Info("Starting price collection")

	timer := c.metrics.StartStepTimer("fetch")

	pool := workerpool.New[string, contracts.FetchOutcome](workerpool.Config{
		Workers:     c.cfg.Workers,
		TaskTimeout: c.cfg.TaskTimeout,
		Name:        "fetch",
	}, c.logger).OnProgress(progress)

	results := pool.Run(ctx, symbols, c.FetchOne)

	counts := make(map[contracts.OutcomeKind]int)
	for _, r := range results {
		counts[r.Kind]++
	}

	c.logger.WithFields(map[string]interface{}{
		"success":  counts[contracts.OutcomeSuccess],
		"rejected": counts[contracts.OutcomeValidationRejected],
		"failed":   counts[contracts.OutcomeSourceFailure] + counts[contracts.OutcomeComputationError],
		"total":    len(results),
	}).Info("Price collection completed")

	result := "ok"
	if ctx.Err() != nil {
		result = "cancelled"
	}
	timer.Stop(result)

	return results
}
