package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/pkg/config"
	"github.com/wonny/limitup/pkg/httputil"
	"github.com/wonny/limitup/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Eastmoney = config.EastmoneyConfig{
		QuoteURL:    server.URL,
		ListURL:     server.URL,
		RankURL:     server.URL,
		CalendarRef: "1.000001",
	}
	log := logger.NewNop()
	hc := httputil.New(cfg, log).DisableRetry().WithRateLimit(0, 0)
	return NewClient(hc, cfg.Eastmoney, log)
}

func TestSecIDAndMarketCode(t *testing.T) {
	tests := []struct {
		symbol string
		secid  string
		market string
	}{
		{"600000", "1.600000", "SH600000"},
		{"000001", "0.000001", "SZ000001"},
		{"300750", "0.300750", "SZ300750"},
		{"830799", "0.830799", "BJ830799"},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			assert.Equal(t, tt.secid, SecID(tt.symbol))
			assert.Equal(t, tt.market, MarketCode(tt.symbol))
			assert.Equal(t, tt.symbol, stripMarket(MarketCode(tt.symbol)))
		})
	}
}

func TestFetchBars(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, klinePath, r.URL.Path)
		assert.Equal(t, "1.600000", r.URL.Query().Get("secid"))
		assert.Equal(t, "101", r.URL.Query().Get("klt"))
		assert.Equal(t, "20240101", r.URL.Query().Get("beg"))
		fmt.Fprint(w, `{"rc":0,"data":{"code":"600000","name":"浦发银行","klines":[
			"2024-01-02,7.10,7.15,7.20,7.05,123456,87654321.00,2.11,0.70,0.05,0.42",
			"2024-01-03,7.15,7.30,7.35,7.12,223456,167654321.00,3.22,2.10,0.15,0.76"]}}`)
	})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	series, err := c.FetchBars(context.Background(), "600000", contracts.Daily, start, end)
	require.NoError(t, err)

	assert.Equal(t, contracts.BarColumns, series.Columns)
	require.Len(t, series.Rows, 2)
	assert.Equal(t, "2024-01-03", series.Rows[1].Date)
	assert.Equal(t, 7.30, *series.Rows[1].Close)
	assert.Equal(t, 0.76, *series.Rows[1].TurnoverRate)
}

func TestFetchBarsNullAndShortRows(t *testing.T) {
	series := parseKlines("000001", []string{
		"2024-01-02,10,10.5,10.6,9.9,1000,10000,7,5,0.5,-",
		"2024-01-03,10.5,10.8,10.9,10.4,1200,12000,5,2.9",
	})

	assert.Nil(t, series.Rows[0].TurnoverRate)
	assert.Len(t, series.Columns, 9)
	assert.False(t, series.HasColumn(contracts.ColTurnoverRate))
}

func TestFetchBarsUnknownSymbol(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rc":0,"data":null}`)
	})

	_, err := c.FetchBars(context.Background(), "999999", contracts.Daily, time.Now(), time.Now())
	assert.Error(t, err)
}

func TestFetchBarsUnsupportedFrequency(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.FetchBars(context.Background(), "000001", contracts.Frequency("hourly"), time.Now(), time.Now())
	assert.Error(t, err)
}

func TestTradingCalendar(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1.000001", r.URL.Query().Get("secid"))
		fmt.Fprint(w, `{"data":{"klines":["2024-01-02,1,1,1,1,1,1,1,1,1,1","2024-01-03,1,1,1,1,1,1,1,1,1,1"]}}`)
	})

	dates, err := c.TradingCalendar(context.Background())
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), dates[1])
}

func TestListSymbolsPaginates(t *testing.T) {
	pages := map[string]string{
		"1": `{"data":{"total":3,"diff":[{"f12":"000001","f14":"平安银行"},{"f12":"600000","f14":"浦发银行"}]}}`,
		"2": `{"data":{"total":3,"diff":[{"f12":"300750","f14":"宁德时代"}]}}`,
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, listPath, r.URL.Path)
		fmt.Fprint(w, pages[r.URL.Query().Get("pn")])
	})
	c.pageSize = 2

	names, err := c.ListSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, contracts.SymbolNames{
		"000001": "平安银行",
		"600000": "浦发银行",
		"300750": "宁德时代",
	}, names)
}

func TestFundFlow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fundFlowPath, r.URL.Path)
		fmt.Fprint(w, `{"data":{"klines":[
			"2024-01-02,-1000,200,300,400,500,-1.5,0.2,0.3,12.5,0.5,7.15,0.70,0,0",
			"2024-01-03,2500,200,300,400,500,2.5,0.2,0.3,21.0,0.5,7.30,2.10,0,0"]}}`)
	})

	days, err := c.FundFlow(context.Background(), "600000")
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, -1000.0, days[0].MainNetInflow)
	assert.Equal(t, 21.0, days[1].BigOrderRatio)
}

func TestHotRankAndProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "SZ000001", body["srcSecurityCode"])

		switch r.URL.Path {
		case hotRankPath:
			fmt.Fprint(w, `{"data":[{"calcTime":"2024-01-03","rank":12},{"calcTime":"2024-01-02","rank":"30"}]}`)
		case profilePath:
			fmt.Fprint(w, `{"data":[{"calcTime":"2024-01-02 00:00:00","newUidRate":"0.5","oldUidRate":0.3}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ranks, err := c.HotRank(context.Background(), "000001")
	require.NoError(t, err)
	require.Len(t, ranks, 2)
	assert.Equal(t, 30.0, ranks[0].Rank, "oldest first")
	assert.Equal(t, 12.0, ranks[1].Rank)

	fans, err := c.FanProfile(context.Background(), "000001")
	require.NoError(t, err)
	require.Len(t, fans, 1)
	assert.Equal(t, 0.5, fans[0].NewFans)
	assert.Equal(t, 0.3, fans[0].LoyalFans)
}

func TestRelatedSymbols(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"calcTime":"2024-01-02","srcSecurityCode":"SZ000001","relatedSecurityCode":"SH600036","rate":1.2},
			{"calcTime":"2024-01-02","srcSecurityCode":"SZ000001","relatedSecurityCode":"SZ002142","rate":0.8},
			{"calcTime":"2024-01-02","srcSecurityCode":"SZ000001","relatedSecurityCode":"SH600036","rate":0.7}]}`)
	})

	codes, err := c.RelatedSymbols(context.Background(), "000001")
	require.NoError(t, err)
	assert.Equal(t, []string{"600036", "002142"}, codes)
}

func TestFlexFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{`12`, 12},
		{`"3.5"`, 3.5},
		{`"-"`, 0},
		{`null`, 0},
	}

	for _, tt := range tests {
		var f flexFloat
		require.NoError(t, json.Unmarshal([]byte(tt.in), &f), tt.in)
		assert.Equal(t, tt.want, float64(f), tt.in)
	}
}

func TestParseCell(t *testing.T) {
	for _, in := range []string{"", " ", "-", "abc", "NaN", "nan", "Inf", "-Inf", "+Inf"} {
		assert.Nil(t, parseCell(in), in)
	}

	v := parseCell(" 10.37 ")
	require.NotNil(t, v)
	assert.Equal(t, 10.37, *v)

	series := parseKlines("000001", []string{
		"2024-01-02,10,NaN,10.6,9.9,1000,10000,7,5,0.5,2.1",
	})
	assert.Nil(t, series.Rows[0].Close)
}
