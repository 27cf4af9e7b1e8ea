package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/limitup/internal/metrics"
	"github.com/wonny/limitup/internal/s0_data"
	"github.com/wonny/limitup/pkg/logger"
)

// UsageReader reports the size of the bar cache
type UsageReader interface {
	Usage() (s0_data.Usage, error)
}

// CacheUsageJob refreshes the cache size gauges
type CacheUsageJob struct {
	store    UsageReader
	metrics  *metrics.Registry
	schedule string
	logger   *logger.Logger
}

// NewCacheUsageJob creates a new cache usage job
func NewCacheUsageJob(store UsageReader, m *metrics.Registry, schedule string, log *logger.Logger) *CacheUsageJob {
	return &CacheUsageJob{
		store:    store,
		metrics:  m,
		schedule: schedule,
		logger:   log.WithField("job", "cache_usage"),
	}
}

// Name returns the job name
func (j *CacheUsageJob) Name() string {
	return "cache_usage"
}

// Schedule returns the cron schedule
func (j *CacheUsageJob) Schedule() string {
	return j.schedule
}

// Run measures the cache directory
func (j *CacheUsageJob) Run(ctx context.Context) error {
	u, err := j.store.Usage()
	if err != nil {
		return fmt.Errorf("cache usage: %w", err)
	}

	j.metrics.SetCacheUsage(len(u.Files), u.Bytes)
	j.logger.WithFields(map[string]interface{}{
		"files": len(u.Files),
		"mb":    u.MB(),
	}).Debug("Cache usage refreshed")

	return nil
}
