package strategyconfig

import (
	"errors"
	"fmt"
	"math"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	if cfg.Strategy != StrategyTiered && cfg.Strategy != StrategyMultifactor {
		return ValidationError{"strategy", "must be tiered or multifactor"}
	}

	// === Tiered ===
	t := cfg.Tiered
	if err := validateWeightsSum(t.Weights.Slice(), 1.0, 1e-6); err != nil {
		return ValidationError{"tiered.weights", err.Error()}
	}
	if t.Points.Best < t.Points.Good || t.Points.Good < t.Points.Else {
		return ValidationError{"tiered.points", "must satisfy best >= good >= else"}
	}
	rules := []struct {
		field string
		rule  TieredRule
	}{
		{"tiered.volume_ratio", t.Volume},
		{"tiered.price_change_pct", t.Price},
		{"tiered.turnover_rate", t.Turnover},
	}
	for _, r := range rules {
		if err := validateRule(r.rule); err != nil {
			return ValidationError{r.field, err.Error()}
		}
	}
	if t.Trend.MAShort < 1 || t.Trend.MALong < 1 {
		return ValidationError{"tiered.trend", "ma windows must be >= 1"}
	}
	if t.Trend.MAShort >= t.Trend.MALong {
		return ValidationError{"tiered.trend", "ma_short must be < ma_long"}
	}
	if t.Trend.Up <= 0 || t.Trend.Down <= 0 || t.Trend.Flat <= 0 {
		return ValidationError{"tiered.trend", "coefficients must be > 0"}
	}

	// === Multifactor ===
	m := cfg.Multifactor
	if m.LookbackDays < 3 {
		return ValidationError{"multifactor.lookback_days", "must be >= 3"}
	}
	for i, w := range m.Weights.Slice() {
		if err := validatePctRange(w, fmt.Sprintf("multifactor.weights[%d]", i)); err != nil {
			return err
		}
	}
	if m.Weights.Sum() <= 0 {
		return ValidationError{"multifactor.weights", "must not all be zero"}
	}
	subWeights := []struct {
		field   string
		weights []float64
	}{
		{"multifactor.flow", m.Flow.Slice()},
		{"multifactor.sentiment", m.Sentiment.Slice()},
		{"multifactor.technical", m.Technical.Slice()},
		{"multifactor.limit_up", []float64{m.LimitUp.Own, m.LimitUp.Peers}},
	}
	for _, sw := range subWeights {
		if err := validateWeightsSum(sw.weights, 1.0, 1e-6); err != nil {
			return ValidationError{sw.field, err.Error()}
		}
	}
	if m.LimitUp.WindowDays < 1 {
		return ValidationError{"multifactor.limit_up.window_days", "must be >= 1"}
	}
	if m.LimitUp.ThresholdPct <= 0 {
		return ValidationError{"multifactor.limit_up.threshold_pct", "must be > 0"}
	}
	if m.Neutral < 0 || m.Neutral > 100 {
		return ValidationError{"multifactor.neutral", "must be in range [0, 100]"}
	}

	// === Tiers ===
	b := cfg.Tiers
	if !(b.VeryStrong > b.Strong && b.Strong > b.Moderate && b.Moderate > 0) {
		return ValidationError{"tiers", "must satisfy very_strong > strong > moderate > 0"}
	}
	if b.VeryStrong > 100 {
		return ValidationError{"tiers.very_strong", "must be <= 100"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 상위 가중치 합이 1이 아니면 100점 상한에 자주 걸림
	if sum := cfg.Multifactor.Weights.Sum(); math.Abs(sum-1.0) > 1e-6 {
		warnings = append(warnings, Warning{
			Code:    "UNNORMALIZED_WEIGHTS",
			Message: fmt.Sprintf("multifactor weights sum to %.2f; composite is clamped at 100", sum),
		})
	}

	// 추세 계수가 1 초과면 만점 구간이 잘림
	maxTiered := cfg.Tiered.Points.Best * cfg.Tiered.Trend.Up
	if maxTiered > 100 {
		warnings = append(warnings, Warning{
			Code:    "TREND_CLAMPED",
			Message: fmt.Sprintf("best tiered score %.1f exceeds 100 and will be clamped", maxTiered),
		})
	}

	if cfg.Tiers.Strong < 60 {
		warnings = append(warnings, Warning{
			Code:    "LOW_STRONG_TIER",
			Message: "strong tier below 60: screening may keep weak candidates",
		})
	}

	return warnings
}

// === Helper Functions ===

func validateRule(r TieredRule) error {
	for _, b := range []Band{r.Best, r.Good} {
		if b.Max != 0 && b.Max < b.Min {
			return errors.New("band max must be >= min")
		}
	}
	// good 구간은 best 구간을 포함해야 함
	if r.Good.Min > r.Best.Min {
		return errors.New("good band must contain best band")
	}
	if r.Good.Max != 0 && (r.Best.Max == 0 || r.Good.Max < r.Best.Max) {
		return errors.New("good band must contain best band")
	}
	return nil
}

func validateWeightsSum(weights []float64, target float64, epsilon float64) error {
	if len(weights) == 0 {
		return errors.New("must not be empty")
	}
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			return errors.New("weights must be >= 0")
		}
		sum += w
	}
	if math.Abs(sum-target) > epsilon {
		return fmt.Errorf("must sum to %.2f, got %.4f", target, sum)
	}
	return nil
}

// validatePctRange는 비율 값이 0~1 범위인지 검증
func validatePctRange(pct float64, field string) error {
	if pct < 0 || pct > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}
