package eastmoney

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/limitup/internal/contracts"
)

type klineResponse struct {
	RC   int `json:"rc"`
	Data *struct {
		Code   string   `json:"code"`
		Name   string   `json:"name"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

// klt maps a frequency onto the provider's kline type
func klt(freq contracts.Frequency) (string, error) {
	switch freq {
	case contracts.Daily, "":
		return "101", nil
	case contracts.Weekly:
		return "102", nil
	case contracts.Monthly:
		return "103", nil
	}
	return "", fmt.Errorf("unsupported frequency: %s", freq)
}

func klineParams(secid, kltValue, beg, end string) url.Values {
	params := url.Values{}
	params.Set("secid", secid)
	params.Set("fields1", "f1,f2,f3,f4,f5,f6")
	params.Set("fields2", "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61")
	params.Set("klt", kltValue)
	params.Set("fqt", "1") // 전복권 (forward adjusted)
	params.Set("beg", beg)
	params.Set("end", end)
	return params
}

// FetchBars fetches forward-adjusted bars for [start, end]
func (c *Client) FetchBars(ctx context.Context, symbol string, freq contracts.Frequency, start, end time.Time) (*contracts.RawSeries, error) {
	k, err := klt(freq)
	if err != nil {
		return nil, err
	}

	var resp klineResponse
	params := klineParams(SecID(symbol), k, start.Format(contracts.DateLayout), end.Format(contracts.DateLayout))
	if err := c.getJSON(ctx, c.quoteURL, klinePath, params, &resp); err != nil {
		return nil, err
	}

	if resp.Data == nil {
		return nil, fmt.Errorf("no kline data for %s", symbol)
	}

	series := parseKlines(symbol, resp.Data.Klines)

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"rows":   len(series.Rows),
		"freq":   string(freq),
	}).Debug("Fetched klines")

	return series, nil
}

// parseKlines converts "date,open,close,high,low,volume,amount,amplitude,pct,chg,turnover" rows.
// Columns reflect the narrowest row so that truncated rows surface as missing columns.
func parseKlines(symbol string, klines []string) *contracts.RawSeries {
	series := &contracts.RawSeries{Symbol: symbol}
	minFields := len(contracts.BarColumns)

	for _, line := range klines {
		f := strings.Split(line, ",")
		if len(f) < minFields {
			minFields = len(f)
		}

		cell := func(i int) *float64 {
			if i >= len(f) {
				return nil
			}
			return parseCell(f[i])
		}

		series.Rows = append(series.Rows, contracts.RawBar{
			Date:         strings.TrimSpace(f[0]),
			Open:         cell(1),
			Close:        cell(2),
			High:         cell(3),
			Low:          cell(4),
			Volume:       cell(5),
			Amount:       cell(6),
			Amplitude:    cell(7),
			PctChange:    cell(8),
			ChangeAmount: cell(9),
			TurnoverRate: cell(10),
		})
	}

	series.Columns = append([]string(nil), contracts.BarColumns[:minFields]...)
	return series
}

// TradingCalendar derives trading dates from the reference index's daily klines
func (c *Client) TradingCalendar(ctx context.Context) ([]time.Time, error) {
	var resp klineResponse
	params := klineParams(c.calendarRef, "101", "19900101", "20500101")
	if err := c.getJSON(ctx, c.quoteURL, klinePath, params, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil || len(resp.Data.Klines) == 0 {
		return nil, fmt.Errorf("empty trading calendar from %s", c.calendarRef)
	}

	dates := make([]time.Time, 0, len(resp.Data.Klines))
	for _, line := range resp.Data.Klines {
		head, _, _ := strings.Cut(line, ",")
		d, err := time.Parse("2006-01-02", strings.TrimSpace(head))
		if err != nil {
			return nil, fmt.Errorf("parse calendar date %q: %w", head, err)
		}
		dates = append(dates, d)
	}

	return dates, nil
}
