package s2_signals

import (
	"context"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/strategyconfig"
	"github.com/wonny/limitup/pkg/logger"
)

// SentimentCalculator calculates popularity (인기도) signals
// ⭐ SSOT: 인기 순위/팬 점수 계산은 여기서만
type SentimentCalculator struct {
	weights strategyconfig.SentimentWeights
	neutral float64
	logger  *logger.Logger
}

// NewSentimentCalculator creates a new sentiment calculator
func NewSentimentCalculator(weights strategyconfig.SentimentWeights, neutral float64, log *logger.Logger) *SentimentCalculator {
	return &SentimentCalculator{
		weights: weights,
		neutral: neutral,
		logger:  log,
	}
}

// SentimentDetails are the raw values behind the sentiment score
type SentimentDetails struct {
	Rank       float64
	RankSlope  float64
	NewFans    float64
	LoyalFans  float64
	NewSlope   float64
	LoyalSlope float64
}

// Calculate scores the trailing rank and fan windows (oldest first).
// A missing window only neutralises its own components; ok is false when both are missing.
func (c *SentimentCalculator) Calculate(ctx context.Context, code string, ranks []contracts.HotRankDay, fans []contracts.FanDay) (float64, SentimentDetails, bool) {
	details := SentimentDetails{}
	if len(ranks) == 0 && len(fans) == 0 {
		return 0, details, false
	}

	rankScore, trendScore := c.neutral, c.neutral
	if len(ranks) > 0 {
		values := make([]float64, len(ranks))
		for i, r := range ranks {
			values[i] = r.Rank
		}
		details.Rank = values[len(values)-1]

		// 순위는 낮을수록 인기
		rankScore = 50
		switch {
		case details.Rank <= Quantile(values, 0.1):
			rankScore = 100
		case details.Rank <= Quantile(values, 0.2):
			rankScore = 80
		}

		// 순위 하락(숫자 감소) = 인기 상승
		trendScore = 50
		details.RankSlope = Slope(values)
		if details.RankSlope < 0 {
			trendScore = 100
		}
	}

	newScore, loyalScore := c.neutral, c.neutral
	if len(fans) > 0 {
		newFans := make([]float64, len(fans))
		loyalFans := make([]float64, len(fans))
		for i, f := range fans {
			newFans[i] = f.NewFans
			loyalFans[i] = f.LoyalFans
		}
		details.NewFans = newFans[len(newFans)-1]
		details.LoyalFans = loyalFans[len(loyalFans)-1]
		details.NewSlope = Slope(newFans)
		details.LoyalSlope = Slope(loyalFans)
		newScore = fanScore(newFans, details.NewSlope)
		loyalScore = fanScore(loyalFans, details.LoyalSlope)
	}

	w := c.weights
	score := rankScore*w.Rank + newScore*w.NewFans + loyalScore*w.LoyalFans + trendScore*w.RankTrend

	c.logger.WithFields(map[string]interface{}{
		"code":       code,
		"rank":       details.Rank,
		"rank_slope": details.RankSlope,
		"new_fans":   details.NewFans,
		"loyal_fans": details.LoyalFans,
		"score":      score,
	}).Debug("Calculated sentiment signal")

	return score, details, true
}

// fanScore: 100 when the trend is rising, 80 when the last day improved, else 50
func fanScore(values []float64, slope float64) float64 {
	if slope > 0 {
		return 100
	}
	if n := len(values); n >= 2 && values[n-1] > values[n-2] {
		return 80
	}
	return 50
}
