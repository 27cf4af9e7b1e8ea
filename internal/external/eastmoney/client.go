package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/pkg/config"
	"github.com/wonny/limitup/pkg/httputil"
	"github.com/wonny/limitup/pkg/logger"
)

// ⭐ SSOT: Eastmoney API 호출은 이 클라이언트에서만
var (
	_ contracts.MarketDataSource = (*Client)(nil)
	_ contracts.FundFlowSource   = (*Client)(nil)
	_ contracts.SentimentSource  = (*Client)(nil)
)

const (
	klinePath    = "/api/qt/stock/kline/get"
	fundFlowPath = "/api/qt/stock/fflow/daykline/get"
	listPath     = "/api/qt/clist/get"
	hotRankPath  = "/stockrank/getHisList"
	profilePath  = "/stockrank/getHisProfileList"
	relatedPath  = "/stockrank/getFollowStockRank"

	// emappdata 고정 식별자
	appID    = "appId01"
	globalID = "786e4c21-70dc-435a-93bb-38"

	defaultPageSize = 500
)

// Client handles communication with the Eastmoney quote and rank endpoints
type Client struct {
	httpClient  *httputil.Client
	logger      *logger.Logger
	quoteURL    string
	listURL     string
	rankURL     string
	calendarRef string
	pageSize    int
}

// NewClient creates a new Eastmoney client
func NewClient(httpClient *httputil.Client, cfg config.EastmoneyConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient:  httpClient,
		logger:      log.WithField("module", "eastmoney"),
		quoteURL:    strings.TrimRight(cfg.QuoteURL, "/"),
		listURL:     strings.TrimRight(cfg.ListURL, "/"),
		rankURL:     strings.TrimRight(cfg.RankURL, "/"),
		calendarRef: cfg.CalendarRef,
		pageSize:    defaultPageSize,
	}
}

// getJSON issues a GET against base+path with query params
func (c *Client) getJSON(ctx context.Context, base, path string, params url.Values, dest interface{}) error {
	fullURL := fmt.Sprintf("%s%s?%s", base, path, params.Encode())
	if err := c.httpClient.GetJSON(ctx, fullURL, dest); err != nil {
		return fmt.Errorf("eastmoney %s: %w", path, err)
	}
	return nil
}

// postRank issues a POST against the rank service for one security
func (c *Client) postRank(ctx context.Context, path, symbol string, dest interface{}) error {
	payload := map[string]string{
		"appId":           appID,
		"globalId":        globalID,
		"marketType":      "",
		"srcSecurityCode": MarketCode(symbol),
	}
	if err := c.httpClient.PostJSON(ctx, c.rankURL+path, payload, dest); err != nil {
		return fmt.Errorf("eastmoney %s: %w", path, err)
	}
	return nil
}

// SecID returns the quote-service identifier ("1." Shanghai, "0." Shenzhen/Beijing)
func SecID(symbol string) string {
	if strings.HasPrefix(symbol, "6") || strings.HasPrefix(symbol, "9") || strings.HasPrefix(symbol, "5") {
		return "1." + symbol
	}
	return "0." + symbol
}

// MarketCode returns the rank-service identifier, e.g. SH600000
func MarketCode(symbol string) string {
	switch {
	case strings.HasPrefix(symbol, "6"), strings.HasPrefix(symbol, "9"), strings.HasPrefix(symbol, "5"):
		return "SH" + symbol
	case strings.HasPrefix(symbol, "8"), strings.HasPrefix(symbol, "4"):
		return "BJ" + symbol
	default:
		return "SZ" + symbol
	}
}

// stripMarket turns SZ000001 into 000001
func stripMarket(code string) string {
	if len(code) == 8 {
		switch code[:2] {
		case "SH", "SZ", "BJ":
			return code[2:]
		}
	}
	return code
}

// parseCell converts a provider cell; "-", "" and non-finite values are nulls
func parseCell(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// flexFloat decodes a JSON number or numeric string
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = 0
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		v, err := n.Float64()
		if err != nil {
			return err
		}
		*f = flexFloat(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("flexFloat: %w", err)
	}
	if p := parseCell(s); p != nil {
		*f = flexFloat(*p)
		return nil
	}
	*f = 0
	return nil
}
