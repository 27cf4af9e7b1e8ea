package s2_signals

import (
	"math"
	"sort"
)

// Indicator helpers operate on oldest-first slices.
// A NaN in an output series marks a position without enough history.

// TrailingMean returns the mean of the last n values, or of all values when fewer exist
func TrailingMean(values []float64, n int) float64 {
	if len(values) == 0 || n < 1 {
		return math.NaN()
	}
	if n > len(values) {
		n = len(values)
	}
	sum := 0.0
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	return sum / float64(n)
}

// RollingMean returns the simple moving average series of the given window
func RollingMean(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window < 1 {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// EMA returns the exponential moving average series, seeded with the SMA of the first period values
func EMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	start := firstValid(values)
	if period < 1 || start < 0 || len(values)-start < period {
		return out
	}

	seedEnd := start + period - 1
	sum := 0.0
	for _, v := range values[start : seedEnd+1] {
		sum += v
	}
	out[seedEnd] = sum / float64(period)

	k := 2.0 / float64(period+1)
	for i := seedEnd + 1; i < len(values); i++ {
		out[i] = (values[i]-out[i-1])*k + out[i-1]
	}
	return out
}

// MACDResult holds the last DIF, DEA and histogram values
type MACDResult struct {
	DIF  float64
	DEA  float64
	Hist float64
}

// MACD computes DIF = EMA(fast) - EMA(slow), DEA = EMA(DIF, signal).
// ok is false when the series is too short for a signal value.
func MACD(closes []float64, fast, slow, signal int) (MACDResult, bool) {
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	dif := nanSlice(len(closes))
	for i := range closes {
		if !math.IsNaN(emaFast[i]) && !math.IsNaN(emaSlow[i]) {
			dif[i] = emaFast[i] - emaSlow[i]
		}
	}
	dea := EMA(dif, signal)

	last := len(closes) - 1
	if last < 0 || math.IsNaN(dea[last]) {
		return MACDResult{}, false
	}
	return MACDResult{DIF: dif[last], DEA: dea[last], Hist: dif[last] - dea[last]}, true
}

// KDJResult holds the last stochastic values
type KDJResult struct {
	K float64
	D float64
	J float64
}

// Stochastic computes slow K and D (simple moving averages) and J = 3K - 2D
func Stochastic(highs, lows, closes []float64, fastK, slowK, slowD int) (KDJResult, bool) {
	n := len(closes)
	if n == 0 || len(highs) != n || len(lows) != n || fastK < 1 {
		return KDJResult{}, false
	}

	raw := nanSlice(n)
	for i := fastK - 1; i < n; i++ {
		hh := maxOf(highs[i-fastK+1 : i+1])
		ll := minOf(lows[i-fastK+1 : i+1])
		if hh-ll == 0 {
			raw[i] = 0
			continue
		}
		raw[i] = (closes[i] - ll) / (hh - ll) * 100
	}

	k := rollingMeanValid(raw, slowK)
	d := rollingMeanValid(k, slowD)
	if math.IsNaN(d[n-1]) {
		return KDJResult{}, false
	}
	return KDJResult{K: k[n-1], D: d[n-1], J: 3*k[n-1] - 2*d[n-1]}, true
}

// CCI computes the commodity channel index of the last bar
func CCI(highs, lows, closes []float64, period int) (float64, bool) {
	n := len(closes)
	if period < 1 || n < period || len(highs) != n || len(lows) != n {
		return 0, false
	}

	tp := make([]float64, period)
	for i := 0; i < period; i++ {
		j := n - period + i
		tp[i] = (highs[j] + lows[j] + closes[j]) / 3
	}
	mean := TrailingMean(tp, period)

	dev := 0.0
	for _, v := range tp {
		dev += math.Abs(v - mean)
	}
	dev /= float64(period)
	if dev == 0 {
		return 0, true
	}
	return (tp[period-1] - mean) / (0.015 * dev), true
}

// Slope returns the least-squares slope of values against 0..n-1
func Slope(values []float64) float64 {
	n := float64(len(values))
	if len(values) < 2 {
		return math.NaN()
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	den := n*sumXX - sumX*sumX
	return (n*sumXY - sumX*sumY) / den
}

// Quantile returns the q-quantile with linear interpolation between order statistics
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// MAAngles is the MA5 angle expansion check
type MAAngles struct {
	LastMA    []float64 `json:"last_ma"`
	Angles    []float64 `json:"angles"` // degrees
	Expanding bool      `json:"expanding"`
}

// MinAnglePrices is the number of prices MAAngles needs
const MinAnglePrices = 7

// CheckMAAngles takes the last three 5-day averages, converts each step into an
// angle (atan of the difference, unit x step) and reports whether the angles
// strictly increase
func CheckMAAngles(prices []float64) (MAAngles, bool) {
	if len(prices) < MinAnglePrices {
		return MAAngles{}, false
	}

	ma := RollingMean(prices, 5)
	last := append([]float64(nil), ma[len(ma)-3:]...)

	angles := make([]float64, 0, len(last)-1)
	for i := 0; i+1 < len(last); i++ {
		angles = append(angles, math.Atan(last[i+1]-last[i])*180/math.Pi)
	}

	expanding := true
	for i := 0; i+1 < len(angles); i++ {
		if angles[i+1] <= angles[i] {
			expanding = false
			break
		}
	}

	return MAAngles{LastMA: last, Angles: angles, Expanding: expanding}, true
}

// Round2 rounds to two decimals
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func rollingMeanValid(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	start := firstValid(values)
	if start < 0 || window < 1 {
		return out
	}
	means := RollingMean(values[start:], window)
	copy(out[start:], means)
	return out
}

func firstValid(values []float64) int {
	for i, v := range values {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func maxOf(values []float64) float64 {
	m := math.Inf(-1)
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(values []float64) float64 {
	m := math.Inf(1)
	for _, v := range values {
		if v < m {
			m = v
		}
	}
	return m
}
