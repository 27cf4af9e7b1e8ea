package quality

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/pkg/config"
)

// Rules holds the exclusion criteria shared by the validator and the universe builder
type Rules struct {
	ExcludedPrefixes []string `yaml:"excluded_prefixes"` // 과학창업판/북교소 등 가격제한폭이 다른 시장
	STMarkers        []string `yaml:"st_markers"`        // 특별관리 종목 표식
	DelistMarkers    []string `yaml:"delist_markers"`    // 상장폐지 표식
}

// RulesFromConfig builds rules from the fetch configuration
func RulesFromConfig(cfg config.FetchConfig) Rules {
	return Rules{
		ExcludedPrefixes: cfg.ExcludedPrefixes,
		STMarkers:        cfg.STMarkers,
		DelistMarkers:    cfg.DelistMarkers,
	}
}

// Exclusion returns the reason a symbol is ineligible, or "" when it passes
func (r Rules) Exclusion(symbol, name string) string {
	// 우선순위 순서로 체크
	for _, m := range r.DelistMarkers {
		if m != "" && strings.Contains(name, m) {
			return fmt.Sprintf("delisting marker %q in name", m)
		}
	}

	for _, m := range r.STMarkers {
		if m != "" && strings.Contains(name, m) {
			return fmt.Sprintf("special treatment marker %q in name", m)
		}
	}

	for _, p := range r.ExcludedPrefixes {
		if p != "" && strings.HasPrefix(symbol, p) {
			return fmt.Sprintf("restricted board prefix %q", p)
		}
	}

	return "" // 통과
}

// NameLookup resolves a symbol's display name
type NameLookup interface {
	Name(symbol string) (string, bool)
}

// Verdict is the whole-series decision
type Verdict struct {
	Accepted bool
	Reason   string
}

func reject(format string, args ...interface{}) Verdict {
	return Verdict{Reason: fmt.Sprintf(format, args...)}
}

// Validator accepts or rejects raw series as a whole
// ⭐ SSOT: 캐시 저장 전 데이터 검증은 여기서만
type Validator struct {
	rules Rules
	names NameLookup
}

// NewValidator creates a validator
func NewValidator(rules Rules, names NameLookup) *Validator {
	return &Validator{rules: rules, names: names}
}

// Validate checks columns, nulls and exclusion rules. No partial acceptance.
func (v *Validator) Validate(series *contracts.RawSeries, symbol string) Verdict {
	if series == nil || len(series.Rows) == 0 {
		return reject("empty series")
	}

	for _, col := range contracts.BarColumns {
		if !series.HasColumn(col) {
			return reject("missing column %s", col)
		}
	}

	for i := range series.Rows {
		row := &series.Rows[i]
		if strings.TrimSpace(row.Date) == "" {
			return reject("null %s at row %d", contracts.ColDate, i)
		}
		if _, err := ParseDate(row.Date); err != nil {
			return reject("bad %s %q at row %d", contracts.ColDate, row.Date, i)
		}
		for _, col := range contracts.BarColumns[1:] {
			p := row.Cell(col)
			if p == nil {
				return reject("null %s at row %d", col, i)
			}
			// NaN/Inf는 결측으로 취급
			if math.IsNaN(*p) || math.IsInf(*p, 0) {
				return reject("non-finite %s at row %d", col, i)
			}
		}
	}

	name := ""
	if v.names != nil {
		name, _ = v.names.Name(symbol)
	}
	if reason := v.rules.Exclusion(symbol, name); reason != "" {
		return reject("%s", reason)
	}

	return Verdict{Accepted: true}
}

// ParseDate accepts 2006-01-02 and 20060102
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d, nil
	}
	return time.Parse(contracts.DateLayout, s)
}

// Normalize converts an accepted series into an ascending, date-unique BarSeries.
// On duplicate dates the later row wins.
func Normalize(series *contracts.RawSeries, name string) (*contracts.BarSeries, error) {
	byDate := make(map[time.Time]contracts.DailyBar, len(series.Rows))

	for i := range series.Rows {
		row := &series.Rows[i]
		d, err := ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		val := func(col string) (float64, error) {
			p := row.Cell(col)
			if p == nil {
				return 0, fmt.Errorf("row %d: null %s", i, col)
			}
			return *p, nil
		}

		var bar contracts.DailyBar
		bar.Date = d
		fields := []struct {
			col string
			dst *float64
		}{
			{contracts.ColOpen, &bar.Open},
			{contracts.ColClose, &bar.Close},
			{contracts.ColHigh, &bar.High},
			{contracts.ColLow, &bar.Low},
			{contracts.ColVolume, &bar.Volume},
			{contracts.ColAmount, &bar.Amount},
			{contracts.ColAmplitude, &bar.Amplitude},
			{contracts.ColPctChange, &bar.PctChange},
			{contracts.ColChangeAmount, &bar.ChangeAmount},
			{contracts.ColTurnoverRate, &bar.TurnoverRate},
		}
		for _, f := range fields {
			if *f.dst, err = val(f.col); err != nil {
				return nil, err
			}
		}

		byDate[d] = bar
	}

	out := &contracts.BarSeries{
		Symbol: series.Symbol,
		Name:   name,
		Bars:   make([]contracts.DailyBar, 0, len(byDate)),
	}
	for _, bar := range byDate {
		out.Bars = append(out.Bars, bar)
	}
	sort.Slice(out.Bars, func(i, j int) bool { return out.Bars[i].Date.Before(out.Bars[j].Date) })

	return out, nil
}
