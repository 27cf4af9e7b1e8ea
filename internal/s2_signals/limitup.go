package s2_signals

import (
	"context"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/strategyconfig"
	"github.com/wonny/limitup/pkg/logger"
)

// PeerReader loads the bars of a related symbol
type PeerReader interface {
	PeerBars(ctx context.Context, symbol string) (*contracts.BarSeries, error)
}

// LimitUpCalculator scores recent limit-up history for a symbol and its peers
// ⭐ SSOT: 상한가 이력 점수 계산은 여기서만
type LimitUpCalculator struct {
	cfg     strategyconfig.LimitUpConfig
	neutral float64
	logger  *logger.Logger
}

// NewLimitUpCalculator creates a new limit-up calculator
func NewLimitUpCalculator(cfg strategyconfig.LimitUpConfig, neutral float64, log *logger.Logger) *LimitUpCalculator {
	return &LimitUpCalculator{
		cfg:     cfg,
		neutral: neutral,
		logger:  log,
	}
}

// LimitUpCount is the limit-up tally over the trailing window
type LimitUpCount struct {
	Hits   int // sessions closing at the limit threshold
	Opened int // of those, sessions where the limit did not hold (high != close)
}

// Count tallies the trailing window of bars
func (c *LimitUpCalculator) Count(bars []contracts.DailyBar) LimitUpCount {
	var out LimitUpCount
	start := len(bars) - c.cfg.WindowDays
	if start < 0 {
		start = 0
	}
	for _, b := range bars[start:] {
		if b.PctChange >= c.cfg.ThresholdPct {
			out.Hits++
			if b.High != b.Close {
				out.Opened++
			}
		}
	}
	return out
}

// ScoreCount: 100 for sealed limit-ups only, 80 when any opened, 50 without limit-ups
func ScoreCount(n LimitUpCount) float64 {
	switch {
	case n.Hits > 0 && n.Opened == 0:
		return 100
	case n.Hits > 0:
		return 80
	default:
		return 50
	}
}

// LimitUpDetails are the raw values behind the limit-up score
type LimitUpDetails struct {
	Own        LimitUpCount
	PeerScore  float64
	PeersUsed  int
	PeersTotal int
}

// Calculate combines own history with the mean peer score.
// Peers that cannot be loaded are skipped; no usable peer gives the neutral score.
func (c *LimitUpCalculator) Calculate(ctx context.Context, series *contracts.BarSeries, peers []string, reader PeerReader) (float64, LimitUpDetails) {
	details := LimitUpDetails{
		Own:        c.Count(series.Bars),
		PeerScore:  c.neutral,
		PeersTotal: len(peers),
	}
	ownScore := ScoreCount(details.Own)

	if reader != nil && len(peers) > 0 {
		sum := 0.0
		for _, p := range peers {
			if ctx.Err() != nil {
				break
			}
			peer, err := reader.PeerBars(ctx, p)
			if err != nil || peer.Len() == 0 {
				c.logger.WithFields(map[string]interface{}{
					"code": series.Symbol,
					"peer": p,
				}).Debug("Peer bars unavailable")
				continue
			}
			sum += ScoreCount(c.Count(peer.Bars))
			details.PeersUsed++
		}
		if details.PeersUsed > 0 {
			details.PeerScore = sum / float64(details.PeersUsed)
		}
	}

	score := ownScore*c.cfg.Own + details.PeerScore*c.cfg.Peers
	return score, details
}
