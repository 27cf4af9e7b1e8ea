package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/limitup/internal/api/handlers"
	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/metrics"
	"github.com/wonny/limitup/internal/s0_data"
	"github.com/wonny/limitup/internal/s0_data/quality"
	"github.com/wonny/limitup/internal/s1_universe"
	"github.com/wonny/limitup/pkg/logger"
	"github.com/wonny/limitup/pkg/workerpool"
)

type fakeUsage struct{ err error }

func (f fakeUsage) Usage() (s0_data.Usage, error) {
	return s0_data.Usage{Files: []string{"a.csv", "b.csv"}, Bytes: 2048}, f.err
}

type fakeFetcher struct{ got []string }

func (f *fakeFetcher) FetchAll(ctx context.Context, symbols []string, progress workerpool.ProgressFunc) map[string]contracts.FetchOutcome {
	f.got = symbols
	out := make(map[string]contracts.FetchOutcome)
	for _, s := range symbols {
		out[s] = contracts.FetchOutcome{Symbol: s, Kind: contracts.OutcomeSuccess}
	}
	return out
}

type fakeScorer struct{}

func (fakeScorer) Score(ctx context.Context, symbol string) contracts.ScoreResult {
	if symbol == "999999" {
		panic("boom")
	}
	p := map[string]float64{"000001": 88, "000002": 72, "600000": 50}[symbol]
	return contracts.ScoreResult{
		Symbol:      symbol,
		Probability: p,
		Tier:        contracts.DefaultTierBounds().Tier(p),
		Status:      contracts.StatusSuccess,
		Strategy:    "tiered",
	}
}

func (fakeScorer) Strategy() string { return "tiered" }

type fakeScreener struct{}

func (fakeScreener) ScreenAll(ctx context.Context, symbols []string, threshold float64, progress workerpool.ProgressFunc) map[string]contracts.ScoreResult {
	out := make(map[string]contracts.ScoreResult)
	for _, s := range symbols {
		if r := (fakeScorer{}).Score(ctx, s); r.Probability >= threshold {
			out[s] = r
		}
	}
	return out
}

type fakeKeys struct{}

func (fakeKeys) Key(symbol string) (contracts.CacheKey, bool) {
	if symbol == "000404" {
		return contracts.CacheKey{}, false
	}
	return contracts.CacheKey{Symbol: symbol}, true
}

type fakeBars struct{}

func (fakeBars) Load(key contracts.CacheKey) (*contracts.BarSeries, error) {
	if key.Symbol == "000003" {
		return nil, s0_data.ErrCacheMiss
	}
	s := &contracts.BarSeries{Symbol: key.Symbol}
	for i := 0; i < 100; i++ {
		s.Bars = append(s.Bars, contracts.DailyBar{Close: float64(i)})
	}
	return s, nil
}

type testEnv struct {
	router  http.Handler
	fetcher *fakeFetcher
}

func newTestEnv(t *testing.T, usageErr error) *testEnv {
	t.Helper()
	log := logger.NewNop()
	dir := s1_universe.NewDirectory(contracts.SymbolNames{
		"000001": "平安银行", "000002": "万科A", "600000": "浦发银行",
	})
	universe := func(ctx context.Context) (*s1_universe.Universe, error) {
		return s1_universe.NewBuilder(quality.Rules{}).Build(dir), nil
	}
	coverage := func(ctx context.Context) (*quality.Snapshot, error) {
		return &quality.Snapshot{Eligible: 3, Cached: 2, Coverage: 2.0 / 3}, nil
	}
	fetcher := &fakeFetcher{}

	h := Handlers{
		Data:    handlers.NewDataHandler(fakeUsage{err: usageErr}, fetcher, universe, coverage, log),
		Ranking: handlers.NewRankingHandler(fakeScorer{}, fakeScreener{}, universe, 70, 5, log),
		Stock:   handlers.NewStockHandler(dir, fakeKeys{}, fakeBars{}, log),
		Metrics: metrics.New().Handler(),
	}
	return &testEnv{router: NewRouter(h, log), fetcher: fetcher}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var out map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, body := env.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, _ = env.do(t, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDataStatus(t *testing.T) {
	rec, body := newTestEnv(t, nil).do(t, "GET", "/api/data/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, body["files"])
	assert.Equal(t, 2048.0, body["bytes"])
	assert.NotNil(t, body["coverage"])

	rec, _ = newTestEnv(t, errors.New("io")).do(t, "GET", "/api/data/status", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDataUniverseAndCollect(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, body := env.do(t, "GET", "/api/data/universe", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["stocks"], 3)

	rec, body = env.do(t, "POST", "/api/data/collect", `{"symbols":["000001"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"000001"}, env.fetcher.got)
	assert.Equal(t, 1.0, body["counts"].(map[string]interface{})["success"])

	// 빈 본문 → 전체 유니버스
	rec, _ = env.do(t, "POST", "/api/data/collect", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"000001", "000002", "600000"}, env.fetcher.got)

	rec, _ = env.do(t, "POST", "/api/data/collect", "{bad")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScoreAndScreen(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, body := env.do(t, "GET", "/api/score/000001", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 88.0, body["probability"])
	assert.Equal(t, "very strong", body["risk_tier"])

	rec, _ = env.do(t, "GET", "/api/score/abc", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = env.do(t, "GET", "/api/screen", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, body["passed"])
	top := body["top"].([]interface{})
	require.Len(t, top, 2)
	assert.Equal(t, "000001", top[0].(map[string]interface{})["symbol"])

	rec, body = env.do(t, "GET", "/api/screen?threshold=40&top=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3.0, body["passed"])
	assert.Len(t, body["top"], 1)

	rec, _ = env.do(t, "GET", "/api/screen?threshold=101", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = env.do(t, "GET", "/api/screen?top=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	rec, body := newTestEnv(t, nil).do(t, "GET", "/api/score/999999", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", body["error"])
}

func TestStocks(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, body := env.do(t, "GET", "/api/stocks?q=银行", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, body["count"])

	rec, body = env.do(t, "GET", "/api/stocks/000001/daily?days=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["bars"], 10)

	rec, _ = env.do(t, "GET", "/api/stocks/000003/daily", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = env.do(t, "GET", "/api/stocks/000404/daily", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
