package contracts

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the compact date layout used in file names and provider queries
const DateLayout = "20060102"

// Bar column names, in persisted order
// ⭐ SSOT: 캐시 CSV 컬럼 순서는 여기서만 정의
const (
	ColDate         = "date"
	ColOpen         = "open"
	ColClose        = "close"
	ColHigh         = "high"
	ColLow          = "low"
	ColVolume       = "volume"
	ColAmount       = "amount"
	ColAmplitude    = "amplitude"
	ColPctChange    = "pct_change"
	ColChangeAmount = "change_amount"
	ColTurnoverRate = "turnover_rate"
)

// BarColumns lists every required column in persisted order
var BarColumns = []string{
	ColDate, ColOpen, ColClose, ColHigh, ColLow, ColVolume,
	ColAmount, ColAmplitude, ColPctChange, ColChangeAmount, ColTurnoverRate,
}

// Frequency is the bar period requested from the source
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// DailyBar is one trading day for one symbol
type DailyBar struct {
	Date         time.Time `json:"date"`
	Open         float64   `json:"open"`
	Close        float64   `json:"close"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	Volume       float64   `json:"volume"`
	Amount       float64   `json:"amount"`
	Amplitude    float64   `json:"amplitude"`
	PctChange    float64   `json:"pct_change"`
	ChangeAmount float64   `json:"change_amount"`
	TurnoverRate float64   `json:"turnover_rate"`
}

// BarSeries is an ascending, date-deduplicated run of bars for one symbol
// ⭐ SSOT: 저장된 시계열은 모두 Validator를 통과한 데이터
type BarSeries struct {
	Symbol string     `json:"symbol"`
	Name   string     `json:"name"`
	Bars   []DailyBar `json:"bars"`
}

// Len returns the number of bars
func (s *BarSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Last returns the most recent bar
func (s *BarSeries) Last() (DailyBar, bool) {
	if s.Len() == 0 {
		return DailyBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Tail returns a series holding at most the last n bars (shares the backing array)
func (s *BarSeries) Tail(n int) *BarSeries {
	if n >= s.Len() {
		return s
	}
	return &BarSeries{Symbol: s.Symbol, Name: s.Name, Bars: s.Bars[len(s.Bars)-n:]}
}

// Closes returns close prices in date order
func (s *BarSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs returns high prices in date order
func (s *BarSeries) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows returns low prices in date order
func (s *BarSeries) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

// RawBar is one row as returned by the source; nil cells are nulls
type RawBar struct {
	Date         string
	Open         *float64
	Close        *float64
	High         *float64
	Low          *float64
	Volume       *float64
	Amount       *float64
	Amplitude    *float64
	PctChange    *float64
	ChangeAmount *float64
	TurnoverRate *float64
}

// Cell returns the numeric cell for a column name
func (r *RawBar) Cell(column string) *float64 {
	switch column {
	case ColOpen:
		return r.Open
	case ColClose:
		return r.Close
	case ColHigh:
		return r.High
	case ColLow:
		return r.Low
	case ColVolume:
		return r.Volume
	case ColAmount:
		return r.Amount
	case ColAmplitude:
		return r.Amplitude
	case ColPctChange:
		return r.PctChange
	case ColChangeAmount:
		return r.ChangeAmount
	case ColTurnoverRate:
		return r.TurnoverRate
	}
	return nil
}

// RawSeries is an unvalidated fetch result
type RawSeries struct {
	Symbol  string
	Columns []string // columns the source actually supplied
	Rows    []RawBar
}

// HasColumn reports whether the source supplied the column
func (r *RawSeries) HasColumn(column string) bool {
	for _, c := range r.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// CacheKey identifies one cached series on disk
type CacheKey struct {
	Symbol string
	Name   string
	Start  time.Time
	End    time.Time
}

// FileName returns the deterministic cache file name
func (k CacheKey) FileName() string {
	return fmt.Sprintf("%s_%s_%s_%s.csv",
		k.Symbol, sanitizeName(k.Name), k.Start.Format(DateLayout), k.End.Format(DateLayout))
}

func sanitizeName(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", string([]byte{0}), "_")
	return r.Replace(name)
}

// SymbolNames is a symbol → display name mapping
type SymbolNames map[string]string

// Sorted returns the symbols in ascending order
func (m SymbolNames) Sorted() []string {
	out := make([]string, 0, len(m))
	for code := range m {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
