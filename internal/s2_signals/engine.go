package s2_signals

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/metrics"
	"github.com/wonny/limitup/internal/s0_data"
	"github.com/wonny/limitup/pkg/logger"
)

// ErrInsufficientData is returned by a strategy given fewer rows than it needs
var ErrInsufficientData = errors.New("insufficient data")

// NameLookup resolves a symbol's display name
type NameLookup interface {
	Name(symbol string) (string, bool)
}

// Engine scores cached series with one strategy
// ⭐ SSOT: 점수 산출은 이 엔진에서만 (캐시 읽기 전용)
type Engine struct {
	strategy Strategy
	reader   contracts.BarReader
	names    NameLookup
	tiers    contracts.TierBounds
	start    time.Time
	end      time.Time
	metrics  *metrics.Registry
	logger   *logger.Logger
}

// NewEngine creates an engine reading the cache window [start, end]
func NewEngine(
	strategy Strategy,
	reader contracts.BarReader,
	names NameLookup,
	tiers contracts.TierBounds,
	start, end time.Time,
	log *logger.Logger,
) *Engine {
	return &Engine{
		strategy: strategy,
		reader:   reader,
		names:    names,
		tiers:    tiers,
		start:    start,
		end:      end,
		logger:   log.WithField("module", "scoring"),
	}
}

// WithMetrics attaches a metrics registry
func (e *Engine) WithMetrics(m *metrics.Registry) *Engine {
	e.metrics = m
	return e
}

// Strategy returns the strategy name
func (e *Engine) Strategy() string {
	return e.strategy.Name()
}

// Key returns the cache key the collector used for symbol
func (e *Engine) Key(symbol string) (contracts.CacheKey, bool) {
	name, ok := e.names.Name(symbol)
	if !ok {
		return contracts.CacheKey{}, false
	}
	return contracts.CacheKey{Symbol: symbol, Name: name, Start: e.start, End: e.end}, true
}

// Score evaluates the most recently cached series of symbol.
// It never returns an error: failures become the insufficient or error status.
func (e *Engine) Score(ctx context.Context, symbol string) contracts.ScoreResult {
	res := e.score(ctx, symbol)
	e.metrics.RecordScore(res.Strategy, res.Kind())
	return res
}

func (e *Engine) score(ctx context.Context, symbol string) (res contracts.ScoreResult) {
	res = contracts.ScoreResult{Symbol: symbol, Strategy: e.strategy.Name()}

	defer func() {
		if r := recover(); r != nil {
			res = e.failed(res, fmt.Sprintf("panic: %v", r))
			e.logger.WithField("symbol", symbol).Errorf("Recovered panic during scoring: %v", r)
		}
	}()

	key, ok := e.Key(symbol)
	if !ok {
		return e.failed(res, "symbol not in directory")
	}
	res.Name = key.Name

	series, err := e.reader.Load(key)
	if err != nil {
		if errors.Is(err, s0_data.ErrCacheMiss) {
			return e.insufficient(res)
		}
		e.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to read cached series")
		return e.failed(res, err.Error())
	}
	if last, ok := series.Last(); ok {
		res.Date = last.Date
	}
	if series.Len() < e.strategy.MinRows() {
		return e.insufficient(res)
	}

	breakdown, err := e.strategy.Evaluate(ctx, symbol, series)
	if err != nil {
		if errors.Is(err, ErrInsufficientData) {
			return e.insufficient(res)
		}
		e.logger.WithError(err).WithField("symbol", symbol).Debug("Scoring failed")
		return e.failed(res, err.Error())
	}

	if math.IsNaN(breakdown.Composite) || math.IsInf(breakdown.Composite, 0) {
		e.logger.WithField("symbol", symbol).Warn("Non-finite composite score")
		return e.failed(res, "non-finite composite")
	}

	res.Probability = Round2(Clamp(breakdown.Composite, 0, 100))
	res.Tier = e.tiers.Tier(res.Probability)
	res.Status = contracts.StatusSuccess
	res.Breakdown = breakdown
	return res
}

func (e *Engine) insufficient(res contracts.ScoreResult) contracts.ScoreResult {
	res.Probability = 0
	res.Tier = contracts.TierNone
	res.Status = contracts.StatusInsufficient
	res.Breakdown = contracts.Breakdown{}
	return res
}

func (e *Engine) failed(res contracts.ScoreResult, msg string) contracts.ScoreResult {
	res.Probability = 0
	res.Tier = contracts.TierNone
	res.Status = contracts.ErrorStatus(msg)
	res.Breakdown = contracts.Breakdown{}
	return res
}

// StorePeers reads peer series from the cache under the same window as the engine
type StorePeers struct {
	reader contracts.BarReader
	names  NameLookup
	start  time.Time
	end    time.Time
}

// NewStorePeers creates a cache-backed peer reader
func NewStorePeers(reader contracts.BarReader, names NameLookup, start, end time.Time) *StorePeers {
	return &StorePeers{reader: reader, names: names, start: start, end: end}
}

// PeerBars loads the cached series of a related symbol
func (p *StorePeers) PeerBars(ctx context.Context, symbol string) (*contracts.BarSeries, error) {
	name, ok := p.names.Name(symbol)
	if !ok {
		return nil, fmt.Errorf("peer %s not in directory", symbol)
	}
	return p.reader.Load(contracts.CacheKey{Symbol: symbol, Name: name, Start: p.start, End: p.end})
}
