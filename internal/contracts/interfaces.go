package contracts

import (
	"context"
	"time"
)

// MarketDataSource supplies raw bars, the symbol directory and the trading calendar
// ⭐ SSOT: 외부 시세 제공자 인터페이스
type MarketDataSource interface {
	FetchBars(ctx context.Context, symbol string, freq Frequency, start, end time.Time) (*RawSeries, error)
	ListSymbols(ctx context.Context) (SymbolNames, error)
	TradingCalendar(ctx context.Context) ([]time.Time, error)
}

// FundFlowDay is one day of individual capital flow
type FundFlowDay struct {
	Date          time.Time `json:"date"`
	MainNetInflow float64   `json:"main_net_inflow"`
	BigOrderRatio float64   `json:"big_order_ratio"` // percent
}

// HotRankDay is one day of popularity ranking (1 = hottest)
type HotRankDay struct {
	Date time.Time `json:"date"`
	Rank float64   `json:"rank"`
}

// FanDay is one day of follower statistics
type FanDay struct {
	Date      time.Time `json:"date"`
	NewFans   float64   `json:"new_fans"`
	LoyalFans float64   `json:"loyal_fans"`
}

// FundFlowSource supplies capital flow history
type FundFlowSource interface {
	FundFlow(ctx context.Context, symbol string) ([]FundFlowDay, error)
}

// SentimentSource supplies popularity and peer data
type SentimentSource interface {
	HotRank(ctx context.Context, symbol string) ([]HotRankDay, error)
	FanProfile(ctx context.Context, symbol string) ([]FanDay, error)
	RelatedSymbols(ctx context.Context, symbol string) ([]string, error)
}

// BarReader reads a cached series; implemented by the record store
type BarReader interface {
	Load(key CacheKey) (*BarSeries, error)
}
