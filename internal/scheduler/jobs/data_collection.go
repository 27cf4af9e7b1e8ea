package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/pkg/logger"
	"github.com/wonny/limitup/pkg/workerpool"
)

// Fetcher collects and caches bars for a set of symbols
type Fetcher interface {
	FetchAll(ctx context.Context, symbols []string, progress workerpool.ProgressFunc) map[string]contracts.FetchOutcome
}

// UniverseFunc returns the symbols a job works on
type UniverseFunc func(ctx context.Context) ([]string, error)

// DataCollectionJob refreshes the bar cache for the whole universe
// ⭐ SSOT: 데이터 수집 스케줄은 이 Job에서만
type DataCollectionJob struct {
	fetcher  Fetcher
	universe UniverseFunc
	schedule string
	logger   *logger.Logger
}

// NewDataCollectionJob creates a new data collection job
func NewDataCollectionJob(fetcher Fetcher, universe UniverseFunc, schedule string, log *logger.Logger) *DataCollectionJob {
	return &DataCollectionJob{
		fetcher:  fetcher,
		universe: universe,
		schedule: schedule,
		logger:   log.WithField("job", "data_collection"),
	}
}

// Name returns the job name
func (j *DataCollectionJob) Name() string {
	return "data_collection"
}

// Schedule returns the cron schedule (weekdays after close by default)
func (j *DataCollectionJob) Schedule() string {
	return j.schedule
}

// Run fetches every symbol. Per-symbol failures are expected; the run only
// fails when nothing succeeded, which points at the upstream rather than a symbol.
func (j *DataCollectionJob) Run(ctx context.Context) error {
	symbols, err := j.universe(ctx)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}
	if len(symbols) == 0 {
		j.logger.Warn("Universe is empty, nothing to collect")
		return nil
	}

	outcomes := j.fetcher.FetchAll(ctx, symbols, nil)
	counts := contracts.CountByKind(outcomes)

	j.logger.WithFields(map[string]interface{}{
		"symbols":  len(symbols),
		"success":  counts[contracts.OutcomeSuccess],
		"rejected": counts[contracts.OutcomeValidationRejected],
		"failed":   counts[contracts.OutcomeSourceFailure],
	}).Info("Scheduled data collection completed")

	if err := ctx.Err(); err != nil {
		return err
	}
	if counts[contracts.OutcomeSuccess] == 0 && counts[contracts.OutcomeValidationRejected] == 0 {
		return fmt.Errorf("all %d fetches failed", len(symbols))
	}
	return nil
}
