package quality

import (
	"fmt"
	"time"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/s0_data"
)

// Snapshot summarizes how much of the eligible universe is cached for a window
type Snapshot struct {
	Start    time.Time         `json:"start"`
	End      time.Time         `json:"end"`
	Total    int               `json:"total"`    // 전체 종목 수
	Eligible int               `json:"eligible"` // 제외 규칙 통과
	Cached   int               `json:"cached"`   // 캐시 파일 존재 (eligible 중)
	Excluded map[string]string `json:"excluded"` // symbol → reason
	Coverage float64           `json:"coverage"` // 0.0 ~ 1.0
	Passed   bool              `json:"passed"`
}

// Gate reports cache coverage
type Gate struct {
	store       *s0_data.Store
	rules       Rules
	minCoverage float64
}

// NewGate creates a coverage gate; minCoverage is the pass threshold (0..1)
func NewGate(store *s0_data.Store, rules Rules, minCoverage float64) *Gate {
	return &Gate{store: store, rules: rules, minCoverage: minCoverage}
}

// Check compares the directory against cached files for [start, end]
func (g *Gate) Check(names contracts.SymbolNames, start, end time.Time) (*Snapshot, error) {
	cached, err := g.store.CachedSymbols(start, end)
	if err != nil {
		return nil, fmt.Errorf("list cached symbols: %w", err)
	}
	inCache := make(map[string]bool, len(cached))
	for _, code := range cached {
		inCache[code] = true
	}

	snap := &Snapshot{
		Start:    start,
		End:      end,
		Total:    len(names),
		Excluded: make(map[string]string),
	}

	for code, name := range names {
		if reason := g.rules.Exclusion(code, name); reason != "" {
			snap.Excluded[code] = reason
			continue
		}
		snap.Eligible++
		if inCache[code] {
			snap.Cached++
		}
	}

	if snap.Eligible > 0 {
		snap.Coverage = float64(snap.Cached) / float64(snap.Eligible)
	}
	snap.Passed = snap.Eligible > 0 && snap.Coverage >= g.minCoverage

	return snap, nil
}
