package audit

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/strategyconfig"
	"github.com/wonny/limitup/pkg/logger"
)

func sampleResult() contracts.ScoreResult {
	res := contracts.ScoreResult{
		Symbol:      "600001",
		Name:        "测试股份",
		Date:        time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
		Probability: 100,
		Tier:        contracts.TierVeryStrong,
		Status:      contracts.StatusSuccess,
		Strategy:    strategyconfig.StrategyTiered,
	}
	res.Breakdown.Composite = 120
	res.Breakdown.AddScore("volume_score", 100)
	res.Breakdown.AddScore("trend_coef", 1.2)
	res.Breakdown.AddIndicator("volume_ratio", 2)
	return res
}

func TestReporter_Write(t *testing.T) {
	dir := t.TempDir()
	cfg := strategyconfig.Default()
	snap, err := strategyconfig.NewDecisionSnapshot(cfg, nil)
	require.NoError(t, err)

	r := NewReporter(dir, logger.NewNop()).WithSnapshot(snap)
	path, err := r.Write(sampleResult())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "600001_20240308_analysis.txt"), path)

	got, err := ReadReport(path)
	require.NoError(t, err)
	assert.Equal(t, "600001", got[LabelSymbol])
	assert.Equal(t, "测试股份", got[LabelName])
	assert.Equal(t, "2024-03-08", got[LabelDate])
	assert.Equal(t, "100", got[LabelProbability])
	assert.Equal(t, string(contracts.TierVeryStrong), got[LabelTier])
	assert.Equal(t, "120", got[LabelComposite])
	assert.Equal(t, "1.2", got["trend_coef"])
	assert.Equal(t, "2", got["volume_ratio"])
	assert.Equal(t, snap.ConfigHash, got[LabelConfigHash])
	assert.Equal(t, cfg.Meta.StrategyID, got[LabelStrategyID])

	// 같은 키는 덮어씀
	res := sampleResult()
	res.Probability = 90
	_, err = r.Write(res)
	require.NoError(t, err)
	got, err = ReadReport(path)
	require.NoError(t, err)
	assert.Equal(t, "90", got[LabelProbability])
}

func TestRender_OrderAndFormat(t *testing.T) {
	out := string(Render(sampleResult(), nil))
	lines := strings.Split(strings.TrimSpace(out), "\n")

	require.Len(t, lines, 11)
	assert.Equal(t, "symbol: 600001", lines[0])
	assert.Equal(t, "volume_score: 100", lines[8])
	assert.Equal(t, "volume_ratio: 2", lines[10])
	assert.NotContains(t, out, LabelConfigHash)
}

func TestReadReport_Missing(t *testing.T) {
	_, err := ReadReport(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func entry(ret float64) contracts.BacktestEntry {
	return contracts.BacktestEntry{Return: ret}
}

func TestAnalyze(t *testing.T) {
	d := func(s string) time.Time {
		v, _ := time.Parse(contracts.DateLayout, s)
		return v
	}
	days := []contracts.DayResult{
		{FilterDate: d("20240102"), Entries: []contracts.BacktestEntry{entry(0.10), entry(-0.05)}, TotalReturn: 0.05},
		{FilterDate: d("20240103"), Entries: []contracts.BacktestEntry{entry(-0.20)}, TotalReturn: -0.20, Skipped: []string{"000002"}},
		{FilterDate: d("20240104"), Entries: []contracts.BacktestEntry{entry(0.05)}, TotalReturn: 0.05},
	}

	r := Analyze(days)
	assert.Equal(t, 3, r.Days)
	assert.Equal(t, 4, r.Trades)
	assert.Equal(t, 1, r.Skipped)
	assert.Equal(t, d("20240102"), r.StartDate)
	assert.Equal(t, d("20240104"), r.EndDate)
	assert.InDelta(t, -0.10, r.TotalReturn, 1e-12)
	assert.InDelta(t, 0.05, r.BestDay, 1e-12)
	assert.InDelta(t, -0.20, r.WorstDay, 1e-12)
	assert.InDelta(t, -0.20, r.MaxDrawdown, 1e-12)
	assert.InDelta(t, 0.5, r.WinRate, 1e-12)
	assert.InDelta(t, 0.075, r.AvgWin, 1e-12)
	assert.InDelta(t, -0.125, r.AvgLoss, 1e-12)
	assert.InDelta(t, 0.15/0.25, r.ProfitFactor, 1e-12)
	assert.Greater(t, r.Volatility, 0.0)
	assert.InDelta(t, 0.20, r.VaR95, 1e-12)
	assert.InDelta(t, 0.20, r.CVaR95, 1e-12)

	assert.Contains(t, r.ToSummary(), "Win Rate: 50.00%")
}

func TestHistoricalVaR(t *testing.T) {
	daily := make([]float64, 20)
	for i := range daily {
		daily[i] = float64(i-5) / 100 // -0.05 .. 0.14
	}

	v, cv := historicalVaR(daily, 0.95)
	assert.InDelta(t, 0.04, v, 1e-12)   // idx 1
	assert.InDelta(t, 0.045, cv, 1e-12) // mean(-0.05, -0.04)

	v, cv = historicalVaR([]float64{0.01, 0.02}, 0.95)
	assert.Zero(t, v)
	assert.Zero(t, cv)
}

func TestAnalyze_Empty(t *testing.T) {
	r := Analyze(nil)
	assert.Equal(t, 0, r.Days)
	assert.Contains(t, r.ToSummary(), "No simulated days")
}
