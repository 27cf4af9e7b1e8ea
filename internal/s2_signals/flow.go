package s2_signals

import (
	"context"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/strategyconfig"
	"github.com/wonny/limitup/pkg/logger"
)

// FlowCalculator calculates capital flow (자금흐름) signals
// ⭐ SSOT: 자금흐름 점수 계산은 여기서만
type FlowCalculator struct {
	weights strategyconfig.FlowWeights
	logger  *logger.Logger
}

// NewFlowCalculator creates a new flow calculator
func NewFlowCalculator(weights strategyconfig.FlowWeights, log *logger.Logger) *FlowCalculator {
	return &FlowCalculator{
		weights: weights,
		logger:  log,
	}
}

// FlowDetails are the raw values behind the flow score
type FlowDetails struct {
	MainNetInflow float64
	BigOrderRatio float64
	InflowSlope   float64
}

// Calculate scores the trailing fund flow window (oldest first).
// ok is false when there is no data, in which case the caller uses the neutral score.
func (c *FlowCalculator) Calculate(ctx context.Context, code string, days []contracts.FundFlowDay) (float64, FlowDetails, bool) {
	details := FlowDetails{}
	if len(days) == 0 {
		return 0, details, false
	}

	inflows := make([]float64, len(days))
	for i, d := range days {
		inflows[i] = d.MainNetInflow
	}
	last := days[len(days)-1]
	details.MainNetInflow = last.MainNetInflow
	details.BigOrderRatio = last.BigOrderRatio

	// 주력 순유입: 양수이고 전일 대비 증가 100, 양수 80
	mainScore := 50.0
	if last.MainNetInflow > 0 {
		mainScore = 80
		if len(inflows) >= 2 && inflows[len(inflows)-1]-inflows[len(inflows)-2] > 0 {
			mainScore = 100
		}
	}

	// 대형 주문 매수 비중 (%)
	bigScore := 50.0
	switch {
	case last.BigOrderRatio > 20:
		bigScore = 100
	case last.BigOrderRatio >= 10:
		bigScore = 80
	}

	trendScore := 50.0
	details.InflowSlope = Slope(inflows)
	if details.InflowSlope > 0 {
		trendScore = 100
	}

	w := c.weights
	score := mainScore*w.MainInflow + bigScore*w.BigOrder + trendScore*w.Trend

	c.logger.WithFields(map[string]interface{}{
		"code":         code,
		"main_inflow":  details.MainNetInflow,
		"big_order":    details.BigOrderRatio,
		"inflow_slope": details.InflowSlope,
		"score":        score,
	}).Debug("Calculated flow signal")

	return score, details, true
}
