package contracts

import "time"

// RankedStock is a screened symbol with its 1-based rank
// ⭐ SSOT: 스크리닝 → 백테스트 랭킹 결과 전달
type RankedStock struct {
	Symbol      string   `json:"symbol"`
	Name        string   `json:"name"`
	Rank        int      `json:"rank"` // 1-based ranking
	Probability float64  `json:"probability"`
	Tier        RiskTier `json:"risk_tier"`
}

// Symbols returns the ranked symbols in rank order
func Symbols(ranked []RankedStock) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Symbol
	}
	return out
}

// BacktestEntry is one simulated round trip
type BacktestEntry struct {
	FilterDate time.Time `json:"filter_date"`
	Symbol     string    `json:"symbol"`
	BuyDate    time.Time `json:"buy_date"`
	BuyOpen    float64   `json:"buy_open"`
	SellDate   time.Time `json:"sell_date"`
	SellClose  float64   `json:"sell_close"`
	Return     float64   `json:"return"`
}

// DayResult is the simulation for one filter date
type DayResult struct {
	FilterDate  time.Time       `json:"filter_date"`
	BuyDate     time.Time       `json:"buy_date"`
	SellDate    time.Time       `json:"sell_date"`
	Entries     []BacktestEntry `json:"entries"`
	Skipped     []string        `json:"skipped,omitempty"` // symbols whose lookups failed
	TotalReturn float64         `json:"total_return"`
}

// SumReturns adds entry returns in slice order
func SumReturns(entries []BacktestEntry) float64 {
	total := 0.0
	for _, e := range entries {
		total += e.Return
	}
	return total
}
