package s1_universe

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/limitup/internal/contracts"
)

// SymbolLister is the part of the market data source the directory needs
type SymbolLister interface {
	ListSymbols(ctx context.Context) (contracts.SymbolNames, error)
}

// Directory is an immutable symbol → name mapping.
// Refresh returns a new value; existing holders keep the old one.
// ⭐ SSOT: 종목 디렉터리는 생성자로 주입 (전역 상태 금지)
type Directory struct {
	names    contracts.SymbolNames
	symbols  []string
	loadedAt time.Time
	source   SymbolLister
}

// NewDirectory builds a directory from a fixed mapping (copied)
func NewDirectory(names contracts.SymbolNames) *Directory {
	cp := make(contracts.SymbolNames, len(names))
	for k, v := range names {
		cp[k] = v
	}
	return &Directory{names: cp, symbols: cp.Sorted()}
}

// LoadDirectory fetches the directory from the source
func LoadDirectory(ctx context.Context, source SymbolLister) (*Directory, error) {
	names, err := source.ListSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}

	d := NewDirectory(names)
	d.source = source
	d.loadedAt = time.Now()
	return d, nil
}

// Refresh re-fetches from the original source and returns a new directory
func (d *Directory) Refresh(ctx context.Context) (*Directory, error) {
	if d.source == nil {
		return nil, fmt.Errorf("directory has no source to refresh from")
	}
	return LoadDirectory(ctx, d.source)
}

// Name returns the display name for a symbol
func (d *Directory) Name(symbol string) (string, bool) {
	name, ok := d.names[symbol]
	return name, ok
}

// Has reports whether the symbol is listed
func (d *Directory) Has(symbol string) bool {
	_, ok := d.names[symbol]
	return ok
}

// Symbols returns all symbols in ascending order (caller must not modify)
func (d *Directory) Symbols() []string {
	return d.symbols
}

// Len returns the number of symbols
func (d *Directory) Len() int {
	return len(d.names)
}

// LoadedAt returns when the directory was fetched (zero for fixed directories)
func (d *Directory) LoadedAt() time.Time {
	return d.loadedAt
}

// Names returns a copy of the mapping
func (d *Directory) Names() contracts.SymbolNames {
	cp := make(contracts.SymbolNames, len(d.names))
	for k, v := range d.names {
		cp[k] = v
	}
	return cp
}
