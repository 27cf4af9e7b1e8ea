package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/limitup/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	failures int // fail this many runs first
	runs     int
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }
func (j *countingJob) Run(ctx context.Context) error {
	j.runs++
	if j.runs <= j.failures {
		return errors.New("upstream down")
	}
	return nil
}

func newTestScheduler() *Scheduler {
	return New(logger.NewNop()).WithRetry(1, time.Millisecond)
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob(&countingJob{name: "fetch", schedule: "0 0 16 * * 1-5"}))
	assert.Error(t, s.AddJob(&countingJob{name: "fetch", schedule: "0 0 16 * * 1-5"}), "duplicate")
	assert.Error(t, s.AddJob(&countingJob{name: "bad", schedule: "not a cron"}))
	assert.Error(t, s.AddJob(&countingJob{name: "five", schedule: "0 16 * * *"}), "seconds field required")

	assert.Equal(t, []string{"fetch"}, s.Jobs())
}

func TestRunNow_RetriesThenSucceeds(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "fetch", schedule: "@daily", failures: 1}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunNow(context.Background(), "fetch")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, job.runs)

	_, err = s.RunNow(context.Background(), "missing")
	assert.Error(t, err)
}

func TestRunNow_FailsAfterRetries(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "screen", schedule: "@daily", failures: 10}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunNow(context.Background(), "screen")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "upstream down", res.Error)
	assert.Equal(t, 2, job.runs)

	stats := s.Stats()["screen"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 0.0, stats.SuccessRate)
	require.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
}

func TestRunNow_CancelledStopsRetrying(t *testing.T) {
	s := New(logger.NewNop()).WithRetry(5, time.Hour)
	job := &countingJob{name: "fetch", schedule: "@daily", failures: 10}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.RunNow(ctx, "fetch")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 1, job.runs)
}

func TestRemoveJobAndStartStop(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&countingJob{name: "usage", schedule: "0 */30 * * * *"}))

	s.Start()
	stats := s.Stats()["usage"]
	require.NotNil(t, stats.NextRun)

	require.NoError(t, s.RemoveJob("usage"))
	assert.Error(t, s.RemoveJob("usage"))
	assert.Empty(t, s.Jobs())
	s.Stop()
}

func TestJobHistory(t *testing.T) {
	var h JobHistory
	_, ok := h.Last()
	assert.False(t, ok)

	for i := 0; i < historyLimit+5; i++ {
		h.Add(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, historyLimit)
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-9)
	assert.Len(t, h.Failed(), historyLimit/2)
}
