package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/s0_data"
	"github.com/wonny/limitup/pkg/logger"
)

// NameSource lists the symbol directory
type NameSource interface {
	Names() contracts.SymbolNames
}

// KeyResolver maps a symbol to its cache key
type KeyResolver interface {
	Key(symbol string) (contracts.CacheKey, bool)
}

// StockHandler serves the symbol directory and cached bars
// ⭐ SSOT: 종목 데이터 API 핸들러는 이 구조체에서만
type StockHandler struct {
	names  NameSource
	keys   KeyResolver
	reader contracts.BarReader
	logger *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(names NameSource, keys KeyResolver, reader contracts.BarReader, log *logger.Logger) *StockHandler {
	return &StockHandler{
		names:  names,
		keys:   keys,
		reader: reader,
		logger: log.WithField("handler", "stock"),
	}
}

// StockItem is one directory entry
type StockItem struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// ListStocks returns the directory, optionally filtered by a code or name substring
// GET /api/stocks?q=银行
func (h *StockHandler) ListStocks(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	names := h.names.Names()

	items := make([]StockItem, 0, len(names))
	for symbol, name := range names {
		if q != "" && !strings.Contains(symbol, q) && !strings.Contains(name, q) {
			continue
		}
		items = append(items, StockItem{Symbol: symbol, Name: name})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Symbol < items[j].Symbol })

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(items),
		"data":  items,
	})
}

// GetDailyBars returns the most recent cached bars for a stock
// GET /api/stocks/{code}/daily?days=60
func (h *StockHandler) GetDailyBars(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	days := 60
	if s := r.URL.Query().Get("days"); s != "" {
		if d, err := strconv.Atoi(s); err == nil && d > 0 {
			days = d
		}
	}

	key, ok := h.keys.Key(code)
	if !ok {
		respondError(w, http.StatusNotFound, "symbol not in directory")
		return
	}

	series, err := h.reader.Load(key)
	if err != nil {
		if errors.Is(err, s0_data.ErrCacheMiss) {
			respondError(w, http.StatusNotFound, "no cached data for symbol")
			return
		}
		h.logger.WithError(err).WithField("code", code).Error("Failed to load cached series")
		respondError(w, http.StatusInternalServerError, "Failed to load cached series")
		return
	}

	respondJSON(w, http.StatusOK, series.Tail(days))
}
