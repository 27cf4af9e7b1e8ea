package s2_signals

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrailingMean(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6}

	assert.InDelta(t, 4.0, TrailingMean(values, 5), 1e-9)
	// 행이 부족하면 전체 평균
	assert.InDelta(t, 3.5, TrailingMean(values, 10), 1e-9)
	assert.True(t, math.IsNaN(TrailingMean(nil, 5)))
}

func TestRollingMean(t *testing.T) {
	out := RollingMean([]float64{1, 2, 3, 4}, 2)

	require.Len(t, out, 4)
	assert.True(t, math.IsNaN(out[0]))
	assert.InDelta(t, 1.5, out[1], 1e-9)
	assert.InDelta(t, 2.5, out[2], 1e-9)
	assert.InDelta(t, 3.5, out[3], 1e-9)
}

func TestEMA(t *testing.T) {
	out := EMA([]float64{1, 2, 3, 4, 5}, 3)

	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9) // SMA seed
	assert.InDelta(t, 3.0, out[3], 1e-9)
	assert.InDelta(t, 4.0, out[4], 1e-9)
}

func TestSlope(t *testing.T) {
	assert.InDelta(t, 2.0, Slope([]float64{1, 3, 5}), 1e-9)
	assert.InDelta(t, -1.0, Slope([]float64{2, 1}), 1e-9)
	assert.True(t, math.IsNaN(Slope([]float64{5})))
}

func TestQuantile(t *testing.T) {
	values := []float64{5, 1, 4, 2, 3}

	assert.InDelta(t, 1.4, Quantile(values, 0.1), 1e-9)
	assert.InDelta(t, 3.0, Quantile(values, 0.5), 1e-9)
	assert.InDelta(t, 5.0, Quantile(values, 1), 1e-9)
	// 입력은 정렬되지 않음
	assert.Equal(t, []float64{5, 1, 4, 2, 3}, values)
}

func TestMACD(t *testing.T) {
	rising := make([]float64, 60)
	for i := range rising {
		rising[i] = 10 + float64(i)
	}

	_, ok := MACD(rising[:30], macdFast, macdSlow, macdSignal)
	assert.False(t, ok, "30 closes cannot produce a signal line")

	m, ok := MACD(rising, macdFast, macdSlow, macdSignal)
	require.True(t, ok)
	assert.Greater(t, m.DIF, 0.0)
	assert.InDelta(t, m.DIF-m.DEA, m.Hist, 1e-9)
}

func TestStochastic(t *testing.T) {
	n := 13
	highs, lows, closes := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		closes[i] = 10 + float64(i)
		highs[i] = closes[i]
		lows[i] = closes[i] - 1
	}

	_, ok := Stochastic(highs[:12], lows[:12], closes[:12], kdjFastK, kdjSlowK, kdjSlowD)
	assert.False(t, ok)

	k, ok := Stochastic(highs, lows, closes, kdjFastK, kdjSlowK, kdjSlowD)
	require.True(t, ok)
	assert.InDelta(t, 100.0, k.K, 1e-9)
	assert.InDelta(t, 100.0, k.D, 1e-9)
	assert.InDelta(t, 100.0, k.J, 1e-9)
}

func TestCCI(t *testing.T) {
	flat := make([]float64, cciPeriod)
	for i := range flat {
		flat[i] = 10
	}

	v, ok := CCI(flat, flat, flat, cciPeriod)
	require.True(t, ok)
	assert.Equal(t, 0.0, v)

	_, ok = CCI(flat[:5], flat[:5], flat[:5], cciPeriod)
	assert.False(t, ok)

	rising := make([]float64, cciPeriod)
	for i := range rising {
		rising[i] = float64(i)
	}
	v, ok = CCI(rising, rising, rising, cciPeriod)
	require.True(t, ok)
	assert.Greater(t, v, 100.0)
}

func TestCheckMAAngles(t *testing.T) {
	res, ok := CheckMAAngles([]float64{100, 102, 105, 107, 110, 114, 119})
	require.True(t, ok)

	require.Len(t, res.LastMA, 3)
	assert.InDelta(t, 104.8, res.LastMA[0], 1e-9)
	assert.InDelta(t, 107.6, res.LastMA[1], 1e-9)
	assert.InDelta(t, 111.0, res.LastMA[2], 1e-9)
	require.Len(t, res.Angles, 2)
	assert.InDelta(t, math.Atan(2.8)*180/math.Pi, res.Angles[0], 1e-9)
	assert.True(t, res.Expanding)

	// 상승 둔화
	res, ok = CheckMAAngles([]float64{100, 101, 102, 103, 104, 104, 104})
	require.True(t, ok)
	assert.False(t, res.Expanding)

	_, ok = CheckMAAngles([]float64{1, 2, 3, 4, 5, 6})
	assert.False(t, ok)
}

func TestClampAndRound(t *testing.T) {
	assert.Equal(t, 100.0, Clamp(120, 0, 100))
	assert.Equal(t, 0.0, Clamp(-3, 0, 100))
	assert.Equal(t, 72.35, Round2(72.3456))
}
