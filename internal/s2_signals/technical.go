package s2_signals

import (
	"context"
	"math"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/strategyconfig"
	"github.com/wonny/limitup/pkg/logger"
)

// Indicator periods of the technical bundle
const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	kdjFastK   = 9
	kdjSlowK   = 3
	kdjSlowD   = 3
	cciPeriod  = 14
	slopeMA    = 5
)

// TechnicalCalculator calculates technical signals
// ⭐ SSOT: 기술적 지표 계산은 여기서만
type TechnicalCalculator struct {
	weights strategyconfig.TechnicalWeights
	logger  *logger.Logger
}

// NewTechnicalCalculator creates a new technical calculator
func NewTechnicalCalculator(weights strategyconfig.TechnicalWeights, log *logger.Logger) *TechnicalCalculator {
	return &TechnicalCalculator{
		weights: weights,
		logger:  log,
	}
}

// TechnicalDetails are the raw indicators; NaN when history was too short
type TechnicalDetails struct {
	MACD    MACDResult
	KDJ     KDJResult
	CCI     float64
	MASlope float64
}

// Calculate scores the bundle on the given window.
// An indicator without enough history takes its neutral branch (50).
func (c *TechnicalCalculator) Calculate(ctx context.Context, code string, series *contracts.BarSeries) (float64, TechnicalDetails) {
	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()

	details := TechnicalDetails{
		MACD:    MACDResult{DIF: math.NaN(), DEA: math.NaN(), Hist: math.NaN()},
		KDJ:     KDJResult{K: math.NaN(), D: math.NaN(), J: math.NaN()},
		CCI:     math.NaN(),
		MASlope: math.NaN(),
	}

	macdScore := 50.0
	if m, ok := MACD(closes, macdFast, macdSlow, macdSignal); ok {
		details.MACD = m
		if m.DIF > m.DEA && m.Hist > 0 {
			macdScore = 100
		}
	}

	kdjScore := 50.0
	if k, ok := Stochastic(highs, lows, closes, kdjFastK, kdjSlowK, kdjSlowD); ok {
		details.KDJ = k
		switch {
		case k.K > k.D && k.J > 80:
			kdjScore = 100
		case k.K > k.D:
			kdjScore = 80
		}
	}

	cciScore := 50.0
	if v, ok := CCI(highs, lows, closes, cciPeriod); ok {
		details.CCI = v
		switch {
		case v > 100:
			cciScore = 100
		case v > 0:
			cciScore = 80
		}
	}

	// MA5 기울기: 최근 3개 평균의 회귀 기울기가 최근 2개 기울기보다 크면 확장
	maScore := 50.0
	ma := RollingMean(closes, slopeMA)
	if len(ma) >= 3 {
		last3 := ma[len(ma)-3:]
		slope3 := Slope(last3)
		slope2 := Slope(last3[1:])
		details.MASlope = slope3
		switch {
		case slope3 > 0 && slope3 > slope2:
			maScore = 100
		case slope3 > 0:
			maScore = 80
		}
	}

	w := c.weights
	score := macdScore*w.MACD + kdjScore*w.KDJ + cciScore*w.CCI + maScore*w.MASlope

	c.logger.WithFields(map[string]interface{}{
		"code":     code,
		"macd":     details.MACD.Hist,
		"k":        details.KDJ.K,
		"cci":      details.CCI,
		"ma_slope": details.MASlope,
		"score":    score,
	}).Debug("Calculated technical signal")

	return score, details
}
