package strategyconfig

import (
	"time"

	"github.com/wonny/limitup/internal/contracts"
)

// Strategy names
const (
	StrategyTiered      = "tiered"
	StrategyMultifactor = "multifactor"
)

// Config는 상한가 확률 점수화 전략의 전체 설정
type Config struct {
	Meta        Meta                 `yaml:"meta" json:"meta"`
	Strategy    string               `yaml:"strategy" json:"strategy"` // tiered | multifactor
	Tiered      Tiered               `yaml:"tiered" json:"tiered"`
	Multifactor Multifactor          `yaml:"multifactor" json:"multifactor"`
	Tiers       contracts.TierBounds `yaml:"tiers" json:"tiers"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Band is an inclusive range; Max == 0 means open-ended
type Band struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether v lies within the band
func (b Band) Contains(v float64) bool {
	if v < b.Min {
		return false
	}
	return b.Max == 0 || v <= b.Max
}

// Points are the scores of the tiered rule
type Points struct {
	Best float64 `yaml:"best" json:"best"`
	Good float64 `yaml:"good" json:"good"`
	Else float64 `yaml:"else" json:"else"`
}

// TieredRule scores a value: Best band, then the wider Good band, else the floor
type TieredRule struct {
	Best Band `yaml:"best" json:"best"`
	Good Band `yaml:"good" json:"good"`
}

// Score applies the rule
func (r TieredRule) Score(v float64, p Points) float64 {
	switch {
	case r.Best.Contains(v):
		return p.Best
	case r.Good.Contains(v):
		return p.Good
	default:
		return p.Else
	}
}

// Tiered 2일 구간 점수 모델
type Tiered struct {
	Weights  TieredWeights `yaml:"weights" json:"weights"`
	Points   Points        `yaml:"points" json:"points"`
	Volume   TieredRule    `yaml:"volume_ratio" json:"volume_ratio"`
	Price    TieredRule    `yaml:"price_change_pct" json:"price_change_pct"`
	Turnover TieredRule    `yaml:"turnover_rate" json:"turnover_rate"`
	Trend    Trend         `yaml:"trend" json:"trend"`
}

// TieredWeights 합 = 1.0
type TieredWeights struct {
	Volume   float64 `yaml:"volume" json:"volume"`
	Price    float64 `yaml:"price" json:"price"`
	Turnover float64 `yaml:"turnover" json:"turnover"`
}

// Slice returns the weights in a fixed order
func (w TieredWeights) Slice() []float64 {
	return []float64{w.Volume, w.Price, w.Turnover}
}

// Trend is the moving-average multiplier
type Trend struct {
	MAShort int     `yaml:"ma_short" json:"ma_short"`
	MALong  int     `yaml:"ma_long" json:"ma_long"`
	Up      float64 `yaml:"up" json:"up"`
	Down    float64 `yaml:"down" json:"down"`
	Flat    float64 `yaml:"flat" json:"flat"`
}

// Multifactor 30일 다중 팩터 모델
type Multifactor struct {
	LookbackDays int                `yaml:"lookback_days" json:"lookback_days"`
	Weights      MultifactorWeights `yaml:"weights" json:"weights"`
	Flow         FlowWeights        `yaml:"flow" json:"flow"`
	Sentiment    SentimentWeights   `yaml:"sentiment" json:"sentiment"`
	Technical    TechnicalWeights   `yaml:"technical" json:"technical"`
	LimitUp      LimitUpConfig      `yaml:"limit_up" json:"limit_up"`
	Neutral      float64            `yaml:"neutral" json:"neutral"` // 보조 데이터 실패 시 기본 점수
}

// MultifactorWeights are the top-level factor weights.
// Their sum is not normalised; the composite is clamped to 100.
type MultifactorWeights struct {
	Price     float64 `yaml:"price" json:"price"`
	Turnover  float64 `yaml:"turnover" json:"turnover"`
	Flow      float64 `yaml:"flow" json:"flow"`
	Sentiment float64 `yaml:"sentiment" json:"sentiment"`
	LimitUp   float64 `yaml:"limit_up" json:"limit_up"`
	Technical float64 `yaml:"technical" json:"technical"`
}

// Slice returns the weights in a fixed order
func (w MultifactorWeights) Slice() []float64 {
	return []float64{w.Price, w.Turnover, w.Flow, w.Sentiment, w.LimitUp, w.Technical}
}

// Sum returns the total weight
func (w MultifactorWeights) Sum() float64 {
	total := 0.0
	for _, v := range w.Slice() {
		total += v
	}
	return total
}

// FlowWeights 자금흐름 하위 가중치 (합 = 1.0)
type FlowWeights struct {
	MainInflow float64 `yaml:"main_inflow" json:"main_inflow"`
	BigOrder   float64 `yaml:"big_order" json:"big_order"`
	Trend      float64 `yaml:"trend" json:"trend"`
}

// Slice returns the weights in a fixed order
func (w FlowWeights) Slice() []float64 {
	return []float64{w.MainInflow, w.BigOrder, w.Trend}
}

// SentimentWeights 인기도 하위 가중치 (합 = 1.0)
type SentimentWeights struct {
	Rank      float64 `yaml:"rank" json:"rank"`
	NewFans   float64 `yaml:"new_fans" json:"new_fans"`
	LoyalFans float64 `yaml:"loyal_fans" json:"loyal_fans"`
	RankTrend float64 `yaml:"rank_trend" json:"rank_trend"`
}

// Slice returns the weights in a fixed order
func (w SentimentWeights) Slice() []float64 {
	return []float64{w.Rank, w.NewFans, w.LoyalFans, w.RankTrend}
}

// TechnicalWeights 기술적 지표 하위 가중치 (합 = 1.0)
type TechnicalWeights struct {
	MACD    float64 `yaml:"macd" json:"macd"`
	KDJ     float64 `yaml:"kdj" json:"kdj"`
	CCI     float64 `yaml:"cci" json:"cci"`
	MASlope float64 `yaml:"ma_slope" json:"ma_slope"`
}

// Slice returns the weights in a fixed order
func (w TechnicalWeights) Slice() []float64 {
	return []float64{w.MACD, w.KDJ, w.CCI, w.MASlope}
}

// LimitUpConfig 상한가 이력 점수
type LimitUpConfig struct {
	WindowDays   int     `yaml:"window_days" json:"window_days"`
	ThresholdPct float64 `yaml:"threshold_pct" json:"threshold_pct"` // 9.9
	Own          float64 `yaml:"own" json:"own"`
	Peers        float64 `yaml:"peers" json:"peers"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "limitup_default",
			Version:    "1.0.0",
		},
		Strategy: StrategyTiered,
		Tiered: Tiered{
			Weights: TieredWeights{Volume: 0.30, Price: 0.30, Turnover: 0.40},
			Points:  Points{Best: 100, Good: 80, Else: 40},
			Volume: TieredRule{
				Best: Band{Min: 1.8, Max: 2.2},
				Good: Band{Min: 1.5, Max: 2.5},
			},
			Price: TieredRule{
				Best: Band{Min: 2, Max: 4},
				Good: Band{Min: 1, Max: 5},
			},
			Turnover: TieredRule{
				Best: Band{Min: 4},
				Good: Band{Min: 2},
			},
			Trend: Trend{MAShort: 5, MALong: 10, Up: 1.2, Down: 0.8, Flat: 1.0},
		},
		Multifactor: Multifactor{
			LookbackDays: 30,
			Weights: MultifactorWeights{
				Price:     0.20,
				Turnover:  0.15,
				Flow:      0.25,
				Sentiment: 0.20,
				LimitUp:   0.10,
				Technical: 0.20,
			},
			Flow:      FlowWeights{MainInflow: 0.4, BigOrder: 0.3, Trend: 0.3},
			Sentiment: SentimentWeights{Rank: 0.3, NewFans: 0.25, LoyalFans: 0.25, RankTrend: 0.2},
			Technical: TechnicalWeights{MACD: 0.4, KDJ: 0.3, CCI: 0.2, MASlope: 0.1},
			LimitUp:   LimitUpConfig{WindowDays: 5, ThresholdPct: 9.9, Own: 0.6, Peers: 0.4},
			Neutral:   50,
		},
		Tiers: contracts.DefaultTierBounds(),
	}
}

// DecisionSnapshot 점수 설정 스냅샷 (재현성용)
type DecisionSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	StrategyID string    `json:"strategy_id"`
	Strategy   string    `json:"strategy"`
	CreatedAt  time.Time `json:"created_at"`
}
