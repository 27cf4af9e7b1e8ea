package s1_universe

import (
	"github.com/wonny/limitup/internal/s0_data/quality"
)

// Universe is the set of symbols eligible for screening
type Universe struct {
	Stocks     []string          `json:"stocks"`   // ascending
	Excluded   map[string]string `json:"excluded"` // symbol → reason
	TotalCount int               `json:"total_count"`
}

// Builder constructs the screening universe from a directory
type Builder struct {
	rules quality.Rules
}

// NewBuilder creates a new Universe Builder
func NewBuilder(rules quality.Rules) *Builder {
	return &Builder{rules: rules}
}

// Build applies the exclusion rules to every listed symbol
// ⭐ SSOT: 디렉터리 → 스크리닝 대상 유니버스 생성
func (b *Builder) Build(dir *Directory) *Universe {
	universe := &Universe{
		Stocks:   make([]string, 0, dir.Len()),
		Excluded: make(map[string]string),
	}

	for _, code := range dir.Symbols() {
		name, _ := dir.Name(code)
		if reason := b.rules.Exclusion(code, name); reason != "" {
			universe.Excluded[code] = reason
			continue
		}
		universe.Stocks = append(universe.Stocks, code)
	}

	universe.TotalCount = len(universe.Stocks)
	return universe
}
