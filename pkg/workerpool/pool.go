// Package workerpool runs keyed units of work on a bounded set of goroutines.
//
// Each Run call owns its pool: tasks are fed through a channel, every task gets
// its own timeout derived from the parent context, and results are gathered by
// a single collecting loop so the output map needs no lock.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/limitup/pkg/logger"
)

// MaxWorkers is the hard upper bound on pool size
const MaxWorkers = 25

// DefaultWorkers is used when Config.Workers is not set
const DefaultWorkers = 10

// Config holds pool configuration
type Config struct {
	Workers     int           // concurrent workers, clamped to [1, MaxWorkers]
	TaskTimeout time.Duration // per-task deadline, 0 = none
	Name        string        // used in progress logs
}

// ProgressFunc is called from the collecting goroutine after each finished task
type ProgressFunc func(done, total int)

// Pool is a bounded worker pool producing one result per key
type Pool[K comparable, R any] struct {
	cfg        Config
	logger     *logger.Logger
	onProgress ProgressFunc
}

type result[K comparable, R any] struct {
	key K
	val R
}

// New creates a pool for a single invocation
func New[K comparable, R any](cfg Config, log *logger.Logger) *Pool[K, R] {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Workers > MaxWorkers {
		cfg.Workers = MaxWorkers
	}
	if cfg.Name == "" {
		cfg.Name = "pool"
	}
	return &Pool[K, R]{
		cfg:    cfg,
		logger: log.WithField("module", "workerpool").WithField("pool", cfg.Name),
	}
}

// OnProgress registers a progress callback
func (p *Pool[K, R]) OnProgress(fn ProgressFunc) *Pool[K, R] {
	p.onProgress = fn
	return p
}

// Workers returns the effective worker count
func (p *Pool[K, R]) Workers() int {
	return p.cfg.Workers
}

// Run executes fn once per distinct key and returns results keyed by input.
// A task never stops its siblings; cancelling ctx makes pending tasks observe
// a cancelled context and return promptly.
func (p *Pool[K, R]) Run(ctx context.Context, keys []K, fn func(ctx context.Context, key K) R) map[K]R {
	keys = dedupe(keys)
	total := len(keys)
	out := make(map[K]R, total)
	if total == 0 {
		return out
	}

	workers := p.cfg.Workers
	if workers > total {
		workers = total
	}

	p.logger.WithFields(map[string]interface{}{
		"tasks":   total,
		"workers": workers,
		"timeout": p.cfg.TaskTimeout.String(),
	}).Info("Starting worker pool")

	jobCh := make(chan K, total)
	resultCh := make(chan result[K, R], total)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range jobCh {
				resultCh <- result[K, R]{key: key, val: p.runOne(ctx, key, fn)}
			}
		}()
	}

	for _, key := range keys {
		jobCh <- key
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// 단일 수집 루프: out 맵은 여기서만 기록
	done := 0
	started := time.Now()
	for r := range resultCh {
		out[r.key] = r.val
		done++
		if p.onProgress != nil {
			p.onProgress(done, total)
		}
		if done%100 == 0 {
			p.logger.WithFields(map[string]interface{}{
				"done":  done,
				"total": total,
			}).Debug("Worker pool progress")
		}
	}

	p.logger.WithFields(map[string]interface{}{
		"total":    total,
		"duration": time.Since(started).String(),
	}).Info("Worker pool completed")

	return out
}

func (p *Pool[K, R]) runOne(ctx context.Context, key K, fn func(context.Context, K) R) R {
	taskCtx := ctx
	if p.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, p.cfg.TaskTimeout)
		defer cancel()
	}
	return fn(taskCtx, key)
}

func dedupe[K comparable](keys []K) []K {
	seen := make(map[K]struct{}, len(keys))
	out := make([]K, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// String implements fmt.Stringer
func (c Config) String() string {
	return fmt.Sprintf("%s(workers=%d, timeout=%s)", c.Name, c.Workers, c.TaskTimeout)
}
