package s2_signals

import (
	"context"
	"errors"
	"math"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/strategyconfig"
)

// Breakdown keys of the tiered strategy
const (
	ScoreVolume   = "volume_score"
	ScorePrice    = "price_score"
	ScoreTurnover = "turnover_score"
	TrendCoef     = "trend_coef"

	IndVolumeRatio = "volume_ratio"
	IndPriceChange = "price_change_pct"
	IndTurnover    = "turnover_rate"
	IndMAShort     = "ma_short"
	IndMALong      = "ma_long"
)

// TieredStrategy is the two-day tiered model
type TieredStrategy struct {
	cfg strategyconfig.Tiered
}

// NewTieredStrategy creates the tiered strategy
func NewTieredStrategy(cfg strategyconfig.Tiered) *TieredStrategy {
	return &TieredStrategy{cfg: cfg}
}

// Name returns "tiered"
func (s *TieredStrategy) Name() string {
	return strategyconfig.StrategyTiered
}

// MinRows returns 2 (today and the previous session)
func (s *TieredStrategy) MinRows() int {
	return 2
}

// Evaluate scores the last bar against the previous one
func (s *TieredStrategy) Evaluate(ctx context.Context, symbol string, series *contracts.BarSeries) (contracts.Breakdown, error) {
	var b contracts.Breakdown
	if series.Len() < s.MinRows() {
		return b, ErrInsufficientData
	}

	bars := series.Bars
	today := bars[len(bars)-1]
	prev := bars[len(bars)-2]

	if prev.Amount == 0 {
		return b, errors.New("previous amount is zero")
	}
	if prev.Close == 0 {
		return b, errors.New("previous close is zero")
	}

	// 구간 경계 비교 전 부동소수 오차 제거 (10→10.4 = 4.000000000000004%)
	volumeRatio := bandValue(today.Amount / prev.Amount)
	priceChange := bandValue((today.Close - prev.Close) / prev.Close * 100)
	turnover := today.TurnoverRate

	p := s.cfg.Points
	volumeScore := s.cfg.Volume.Score(volumeRatio, p)
	priceScore := s.cfg.Price.Score(priceChange, p)
	turnoverScore := s.cfg.Turnover.Score(turnover, p)

	// 이동평균은 오늘까지의 전체 종가 기준 (행이 부족하면 가용 행 평균)
	closes := series.Closes()
	maShort := TrailingMean(closes, s.cfg.Trend.MAShort)
	maLong := TrailingMean(closes, s.cfg.Trend.MALong)
	coef := s.cfg.Trend.Flat
	switch {
	case maShort > maLong:
		coef = s.cfg.Trend.Up
	case maShort < maLong:
		coef = s.cfg.Trend.Down
	}

	w := s.cfg.Weights
	b.Composite = (volumeScore*w.Volume + priceScore*w.Price + turnoverScore*w.Turnover) * coef

	b.AddScore(ScoreVolume, volumeScore)
	b.AddScore(ScorePrice, priceScore)
	b.AddScore(ScoreTurnover, turnoverScore)
	b.AddScore(TrendCoef, coef)

	b.AddIndicator(IndVolumeRatio, Round2(volumeRatio))
	b.AddIndicator(IndPriceChange, Round2(priceChange))
	b.AddIndicator(IndTurnover, Round2(turnover))
	b.AddIndicator(IndMAShort, Round2(maShort))
	b.AddIndicator(IndMALong, Round2(maLong))

	return b, nil
}

// bandValue rounds to 1e-9 so a ratio that equals a band edge in decimal lands on it
func bandValue(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}
