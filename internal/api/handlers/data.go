package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/s0_data"
	"github.com/wonny/limitup/internal/s0_data/quality"
	"github.com/wonny/limitup/internal/s1_universe"
	"github.com/wonny/limitup/pkg/logger"
	"github.com/wonny/limitup/pkg/workerpool"
)

// UsageReader reports the size of the bar cache
type UsageReader interface {
	Usage() (s0_data.Usage, error)
}

// Fetcher collects and caches bars for a set of symbols
type Fetcher interface {
	FetchAll(ctx context.Context, symbols []string, progress workerpool.ProgressFunc) map[string]contracts.FetchOutcome
}

// UniverseFunc builds the current screening universe
type UniverseFunc func(ctx context.Context) (*s1_universe.Universe, error)

// CoverageFunc checks cache coverage of the universe
type CoverageFunc func(ctx context.Context) (*quality.Snapshot, error)

// DataHandler handles data-related API endpoints
// ⭐ SSOT: 데이터 API 핸들러는 이 구조체에서만
type DataHandler struct {
	store    UsageReader
	fetcher  Fetcher
	universe UniverseFunc
	coverage CoverageFunc
	logger   *logger.Logger
}

// NewDataHandler creates a new data handler
func NewDataHandler(store UsageReader, fetcher Fetcher, universe UniverseFunc, coverage CoverageFunc, log *logger.Logger) *DataHandler {
	return &DataHandler{
		store:    store,
		fetcher:  fetcher,
		universe: universe,
		coverage: coverage,
		logger:   log.WithField("handler", "data"),
	}
}

// StatusResponse is the cache status
type StatusResponse struct {
	Files    int               `json:"files"`
	Bytes    int64             `json:"bytes"`
	MB       float64           `json:"mb"`
	Coverage *quality.Snapshot `json:"coverage,omitempty"`
}

// GetStatus returns the cache size and coverage
// GET /api/data/status
func (h *DataHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.Usage()
	if err != nil {
		h.logger.WithError(err).Error("Failed to read cache usage")
		respondError(w, http.StatusInternalServerError, "Failed to read cache usage")
		return
	}

	resp := StatusResponse{Files: len(u.Files), Bytes: u.Bytes, MB: u.MB()}
	if h.coverage != nil {
		snap, err := h.coverage(r.Context())
		if err != nil {
			h.logger.WithError(err).Error("Failed to check coverage")
			respondError(w, http.StatusInternalServerError, "Failed to check coverage")
			return
		}
		resp.Coverage = snap
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetUniverse returns the screening universe
// GET /api/data/universe
func (h *DataHandler) GetUniverse(w http.ResponseWriter, r *http.Request) {
	universe, err := h.universe(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to build universe")
		respondError(w, http.StatusInternalServerError, "Failed to build universe")
		return
	}

	respondJSON(w, http.StatusOK, universe)
}

// CollectRequest selects the symbols to fetch; empty means the whole universe
type CollectRequest struct {
	Symbols []string `json:"symbols"`
}

// CollectResponse summarizes a collection run
type CollectResponse struct {
	Status   string                            `json:"status"`
	Counts   map[contracts.OutcomeKind]int     `json:"counts"`
	Outcomes map[string]contracts.FetchOutcome `json:"outcomes"`
}

// Collect triggers data collection
// POST /api/data/collect
func (h *DataHandler) Collect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	symbols := req.Symbols
	if len(symbols) == 0 {
		universe, err := h.universe(ctx)
		if err != nil {
			h.logger.WithError(err).Error("Failed to build universe")
			respondError(w, http.StatusInternalServerError, "Failed to build universe")
			return
		}
		symbols = universe.Stocks
	}

	h.logger.WithField("symbols", len(symbols)).Info("Data collection triggered")

	outcomes := h.fetcher.FetchAll(ctx, symbols, nil)
	respondJSON(w, http.StatusOK, CollectResponse{
		Status:   "success",
		Counts:   contracts.CountByKind(outcomes),
		Outcomes: outcomes,
	})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
