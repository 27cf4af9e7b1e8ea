package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/s0_data/quality"
)

// ErrInsufficientCoverage marks a filter date whose cache window is not ready for screening
var ErrInsufficientCoverage = errors.New("insufficient cache coverage")

// PrepareFunc readies the cache window ending on filterDate and reports its coverage
type PrepareFunc func(ctx context.Context, filterDate time.Time) (*quality.Snapshot, error)

// Gated runs prepare before the selector; a window below the coverage gate fails the date
func Gated(prepare PrepareFunc, selector Selector) Selector {
	return func(ctx context.Context, filterDate time.Time) ([]contracts.RankedStock, error) {
		snap, err := prepare(ctx, filterDate)
		if err != nil {
			return nil, fmt.Errorf("prepare cache window: %w", err)
		}
		if !snap.Passed {
			return nil, fmt.Errorf("%w: %.1f%% (%d/%d cached)",
				ErrInsufficientCoverage, snap.Coverage*100, snap.Cached, snap.Eligible)
		}
		return selector(ctx, filterDate)
	}
}
