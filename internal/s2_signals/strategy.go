package s2_signals

import (
	"context"
	"fmt"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/strategyconfig"
	"github.com/wonny/limitup/pkg/logger"
)

// Strategy turns a cached series into a score breakdown.
// Breakdown.Composite is the unclamped composite; the engine clamps and rounds.
type Strategy interface {
	Name() string
	MinRows() int
	Evaluate(ctx context.Context, symbol string, series *contracts.BarSeries) (contracts.Breakdown, error)
}

// Feeds are the auxiliary inputs of the multi-factor strategy; any may be nil
type Feeds struct {
	FundFlow  contracts.FundFlowSource
	Sentiment contracts.SentimentSource
	Peers     PeerReader
}

// NewStrategy builds the strategy named by cfg.Strategy
// ⭐ SSOT: 전략 선택은 여기서만 (한 번의 실행에서 전략 혼용 금지)
func NewStrategy(cfg *strategyconfig.Config, feeds Feeds, log *logger.Logger) (Strategy, error) {
	switch cfg.Strategy {
	case strategyconfig.StrategyTiered:
		return NewTieredStrategy(cfg.Tiered), nil
	case strategyconfig.StrategyMultifactor:
		return NewMultifactorStrategy(cfg.Multifactor, feeds, log), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Strategy)
	}
}
