package eastmoney

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/limitup/internal/contracts"
)

// FundFlow returns daily individual capital flow, oldest first.
// Row layout: date, main net, small net, mid net, big net, super net,
// main ratio, small ratio, mid ratio, big ratio, super ratio, ...
func (c *Client) FundFlow(ctx context.Context, symbol string) ([]contracts.FundFlowDay, error) {
	params := url.Values{}
	params.Set("lmt", "0")
	params.Set("klt", "101")
	params.Set("secid", SecID(symbol))
	params.Set("fields1", "f1,f2,f3,f7")
	params.Set("fields2", "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61,f62,f63,f64,f65")

	var resp klineResponse
	if err := c.getJSON(ctx, c.quoteURL, fundFlowPath, params, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("no fund flow data for %s", symbol)
	}

	days := make([]contracts.FundFlowDay, 0, len(resp.Data.Klines))
	for _, line := range resp.Data.Klines {
		f := strings.Split(line, ",")
		if len(f) < 10 {
			continue
		}
		d, err := time.Parse("2006-01-02", f[0])
		if err != nil {
			continue
		}
		day := contracts.FundFlowDay{Date: d}
		if v := parseCell(f[1]); v != nil {
			day.MainNetInflow = *v
		}
		if v := parseCell(f[9]); v != nil {
			day.BigOrderRatio = *v
		}
		days = append(days, day)
	}

	return days, nil
}
