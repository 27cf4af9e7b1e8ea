package contracts

import "time"

// Score status values; the three are disjoint
const (
	StatusSuccess      = "success"
	StatusInsufficient = "insufficient data"
	statusErrorPrefix  = "error: "
)

// ErrorStatus builds the status string for a failed computation
func ErrorStatus(msg string) string {
	return statusErrorPrefix + msg
}

// RiskTier is the qualitative band derived from the probability
type RiskTier string

const (
	TierVeryStrong RiskTier = "very strong"
	TierStrong     RiskTier = "strong"
	TierModerate   RiskTier = "moderate"
	TierWeak       RiskTier = "weak"
	TierNone       RiskTier = ""
)

// Factor is one named value in a score breakdown
type Factor struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Breakdown holds sub-scores and the raw indicators behind them, in a fixed order
type Breakdown struct {
	Composite  float64  `json:"composite"` // before clamping
	Scores     []Factor `json:"scores"`
	Indicators []Factor `json:"indicators"`
}

// AddScore appends a sub-score
func (b *Breakdown) AddScore(name string, v float64) {
	b.Scores = append(b.Scores, Factor{Name: name, Value: v})
}

// AddIndicator appends a raw indicator
func (b *Breakdown) AddIndicator(name string, v float64) {
	b.Indicators = append(b.Indicators, Factor{Name: name, Value: v})
}

// Score returns a sub-score by name
func (b *Breakdown) Score(name string) (float64, bool) {
	return lookup(b.Scores, name)
}

// Indicator returns a raw indicator by name
func (b *Breakdown) Indicator(name string) (float64, bool) {
	return lookup(b.Indicators, name)
}

func lookup(fs []Factor, name string) (float64, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

// ScoreResult is the outcome of scoring one symbol; never mutated after creation
// ⭐ SSOT: S2 → 스크리닝/리포트 점수 결과 전달
type ScoreResult struct {
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	Date        time.Time `json:"date"` // last bar's date
	Probability float64   `json:"probability"`
	Tier        RiskTier  `json:"risk_tier"`
	Status      string    `json:"status"`
	Strategy    string    `json:"strategy"`
	Breakdown   Breakdown `json:"breakdown"`
}

// IsSuccess reports whether the score was computed
func (r *ScoreResult) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// Kind maps the status onto the shared outcome enumeration
func (r *ScoreResult) Kind() OutcomeKind {
	switch {
	case r.Status == StatusSuccess:
		return OutcomeSuccess
	case r.Status == StatusInsufficient:
		return OutcomeInsufficientData
	}
	// "error: ..." 및 알 수 없는 상태
	return OutcomeComputationError
}

// TierBounds are the lower bounds of each risk tier
type TierBounds struct {
	VeryStrong float64 `json:"very_strong" yaml:"very_strong"`
	Strong     float64 `json:"strong" yaml:"strong"`
	Moderate   float64 `json:"moderate" yaml:"moderate"`
}

// DefaultTierBounds returns 85 / 70 / 50
func DefaultTierBounds() TierBounds {
	return TierBounds{VeryStrong: 85, Strong: 70, Moderate: 50}
}

// Tier classifies a probability
func (t TierBounds) Tier(p float64) RiskTier {
	switch {
	case p >= t.VeryStrong:
		return TierVeryStrong
	case p >= t.Strong:
		return TierStrong
	case p >= t.Moderate:
		return TierModerate
	default:
		return TierWeak
	}
}
