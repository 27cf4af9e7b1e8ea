package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/s0_data/quality"
	"github.com/wonny/limitup/internal/selection"
	"github.com/wonny/limitup/pkg/logger"
	"github.com/wonny/limitup/pkg/workerpool"
)

// Screener scores a universe and keeps strong candidates
type Screener interface {
	ScreenAll(ctx context.Context, symbols []string, threshold float64, progress workerpool.ProgressFunc) map[string]contracts.ScoreResult
}

// CoverageFunc reports how much of the universe is cached
type CoverageFunc func(ctx context.Context) (*quality.Snapshot, error)

// ScreenConfig holds the screen job settings
type ScreenConfig struct {
	Schedule  string
	Threshold float64
	TopN      int
}

// ScreenJob ranks the cached universe after data collection
// ⭐ SSOT: 스크리닝 스케줄은 이 Job에서만
type ScreenJob struct {
	screener Screener
	coverage CoverageFunc
	universe UniverseFunc
	cfg      ScreenConfig
	logger   *logger.Logger

	mu   sync.RWMutex
	last []contracts.RankedStock
}

// NewScreenJob creates a new screen job; coverage may be nil
func NewScreenJob(screener Screener, coverage CoverageFunc, universe UniverseFunc, cfg ScreenConfig, log *logger.Logger) *ScreenJob {
	return &ScreenJob{
		screener: screener,
		coverage: coverage,
		universe: universe,
		cfg:      cfg,
		logger:   log.WithField("job", "screen"),
	}
}

// Name returns the job name
func (j *ScreenJob) Name() string {
	return "screen"
}

// Schedule returns the cron schedule
func (j *ScreenJob) Schedule() string {
	return j.cfg.Schedule
}

// Run screens the universe and keeps the top picks
func (j *ScreenJob) Run(ctx context.Context) error {
	if j.coverage != nil {
		snap, err := j.coverage(ctx)
		if err != nil {
			return fmt.Errorf("coverage check failed: %w", err)
		}
		if !snap.Passed {
			j.logger.WithFields(map[string]interface{}{
				"coverage": snap.Coverage,
				"eligible": snap.Eligible,
				"cached":   snap.Cached,
			}).Warn("Cache coverage below threshold, but continuing with screening")
		}
	}

	symbols, err := j.universe(ctx)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}

	passed := j.screener.ScreenAll(ctx, symbols, j.cfg.Threshold, nil)
	if err := ctx.Err(); err != nil {
		return err
	}
	top := selection.TopN(passed, j.cfg.TopN)

	j.mu.Lock()
	j.last = top
	j.mu.Unlock()

	j.logger.WithFields(map[string]interface{}{
		"passed": len(passed),
		"top":    contracts.Symbols(top),
	}).Info("Scheduled screening completed")

	return nil
}

// LastPicks returns the ranking from the most recent successful run
func (j *ScreenJob) LastPicks() []contracts.RankedStock {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]contracts.RankedStock(nil), j.last...)
}
