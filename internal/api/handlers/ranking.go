package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/selection"
	"github.com/wonny/limitup/pkg/logger"
	"github.com/wonny/limitup/pkg/workerpool"
)

// Scorer scores one symbol
type Scorer interface {
	Score(ctx context.Context, symbol string) contracts.ScoreResult
	Strategy() string
}

// Screener scores a universe and keeps strong candidates
type Screener interface {
	ScreenAll(ctx context.Context, symbols []string, threshold float64, progress workerpool.ProgressFunc) map[string]contracts.ScoreResult
}

// RankingHandler serves scores and screen rankings
// ⭐ SSOT: 점수/랭킹 API 핸들러는 이 구조체에서만
type RankingHandler struct {
	scorer    Scorer
	screener  Screener
	universe  UniverseFunc
	threshold float64
	topN      int
	logger    *logger.Logger
}

// NewRankingHandler creates a new ranking handler with default threshold and top-N
func NewRankingHandler(scorer Scorer, screener Screener, universe UniverseFunc, threshold float64, topN int, log *logger.Logger) *RankingHandler {
	return &RankingHandler{
		scorer:    scorer,
		screener:  screener,
		universe:  universe,
		threshold: threshold,
		topN:      topN,
		logger:    log.WithField("handler", "ranking"),
	}
}

// GetScore scores one symbol from the cache
// GET /api/score/{symbol}
func (h *RankingHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	res := h.scorer.Score(r.Context(), symbol)
	respondJSON(w, http.StatusOK, res)
}

// RankingResponse is a screen result
type RankingResponse struct {
	Strategy  string                  `json:"strategy"`
	Threshold float64                 `json:"threshold"`
	Universe  int                     `json:"universe"`
	Passed    int                     `json:"passed"`
	Top       []contracts.RankedStock `json:"top"`
}

// GetRanking screens the universe and returns the top N
// GET /api/screen?threshold=70&top=5
func (h *RankingHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	threshold := h.threshold
	if s := r.URL.Query().Get("threshold"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 || v > 100 {
			respondError(w, http.StatusBadRequest, "threshold must be a number in [0, 100]")
			return
		}
		threshold = v
	}

	topN := h.topN
	if s := r.URL.Query().Get("top"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			respondError(w, http.StatusBadRequest, "top must be a positive integer")
			return
		}
		topN = v
	}

	universe, err := h.universe(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to build universe")
		respondError(w, http.StatusInternalServerError, "Failed to build universe")
		return
	}

	passed := h.screener.ScreenAll(r.Context(), universe.Stocks, threshold, nil)
	respondJSON(w, http.StatusOK, RankingResponse{
		Strategy:  h.scorer.Strategy(),
		Threshold: threshold,
		Universe:  len(universe.Stocks),
		Passed:    len(passed),
		Top:       selection.TopN(passed, topN),
	})
}
