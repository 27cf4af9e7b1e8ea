package selection

import (
	"context"
	"time"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/metrics"
	"github.com/wonny/limitup/pkg/config"
	"github.com/wonny/limitup/pkg/logger"
	"github.com/wonny/limitup/pkg/workerpool"
)

// DefaultThreshold is the minimum probability kept by the screen
const DefaultThreshold = 70.0

// Scorer scores one symbol; implemented by the scoring engine
type Scorer interface {
	Score(ctx context.Context, symbol string) contracts.ScoreResult
	Strategy() string
}

// ReportWriter persists an analysis report for a kept result
type ReportWriter interface {
	Write(res contracts.ScoreResult) (string, error)
}

// Screener scores a universe concurrently and keeps strong candidates
// ⭐ SSOT: 스크리닝 로직은 여기서만
type Screener struct {
	scorer  Scorer
	reports ReportWriter
	metrics *metrics.Registry
	config  ScreenerConfig
	logger  *logger.Logger
}

// ScreenerConfig defines pool settings
type ScreenerConfig struct {
	Workers     int
	TaskTimeout time.Duration
}

// ScreenerConfigFrom derives the screener config from the application config
func ScreenerConfigFrom(cfg *config.Config) ScreenerConfig {
	return ScreenerConfig{
		Workers:     cfg.Fetch.Workers,
		TaskTimeout: cfg.Fetch.TaskTimeout,
	}
}

// NewScreener creates a new screener
func NewScreener(scorer Scorer, config ScreenerConfig, logger *logger.Logger) *Screener {
	return &Screener{
		scorer: scorer,
		config: config,
		logger: logger.WithField("module", "screener"),
	}
}

// WithReports writes an analysis report for every kept result
func (s *Screener) WithReports(w ReportWriter) *Screener {
	s.reports = w
	return s
}

// WithMetrics attaches a metrics registry
func (s *Screener) WithMetrics(m *metrics.Registry) *Screener {
	s.metrics = m
	return s
}

// ScreenAll scores every symbol on a bounded pool and keeps successful results
// with probability >= threshold. Failures are excluded, never propagated.
func (s *Screener) ScreenAll(ctx context.Context, symbols []string, threshold float64, progress workerpool.ProgressFunc) map[string]contracts.ScoreResult {
	s.logger.WithFields(map[string]interface{}{
		"stock_count": len(symbols),
		"threshold":   threshold,
		"strategy":    s.scorer.Strategy(),
		"workers":     s.config.Workers,
	}).Info("Starting screening")

	timer := s.metrics.StartStepTimer("screen")

	pool := workerpool.New[string, contracts.ScoreResult](workerpool.Config{
		Workers:     s.config.Workers,
		TaskTimeout: s.config.TaskTimeout,
		Name:        "screen",
	}, s.logger).OnProgress(progress)

	scored := pool.Run(ctx, symbols, s.scorer.Score)

	passed := make(map[string]contracts.ScoreResult)
	filtered := make(map[string]int) // 제외 사유 -> 건수
	for symbol, res := range scored {
		switch {
		case res.Kind() == contracts.OutcomeInsufficientData:
			filtered["insufficient_data"]++
		case !res.IsSuccess():
			filtered["error"]++
		case res.Probability < threshold:
			filtered["below_threshold"]++
		default:
			passed[symbol] = res
		}
	}

	if s.reports != nil {
		for _, symbol := range sortedKeys(passed) {
			if _, err := s.reports.Write(passed[symbol]); err != nil {
				s.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to write analysis report")
			}
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"total_input":  len(symbols),
		"passed":       len(passed),
		"filtered_out": len(scored) - len(passed),
		"filters":      filtered,
	}).Info("Screening completed")

	result := "ok"
	if ctx.Err() != nil {
		result = "cancelled"
	}
	timer.Stop(result)

	return passed
}
