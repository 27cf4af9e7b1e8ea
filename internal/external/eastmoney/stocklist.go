package eastmoney

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/wonny/limitup/internal/contracts"
)

// A-share boards: SZ main, SZ ChiNext, SH main, SH STAR, BJ
const aShareFilter = "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23,m:0+t:81+s:2048"

type listResponse struct {
	Data *struct {
		Total int `json:"total"`
		Diff  []struct {
			Code string `json:"f12"`
			Name string `json:"f14"`
		} `json:"diff"`
	} `json:"data"`
}

// ListSymbols returns the full A-share code → name directory
func (c *Client) ListSymbols(ctx context.Context) (contracts.SymbolNames, error) {
	names := make(contracts.SymbolNames)

	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("pn", strconv.Itoa(page))
		params.Set("pz", strconv.Itoa(c.pageSize))
		params.Set("po", "1")
		params.Set("np", "1")
		params.Set("fltt", "2")
		params.Set("invt", "2")
		params.Set("fid", "f12")
		params.Set("fs", aShareFilter)
		params.Set("fields", "f12,f14")

		var resp listResponse
		if err := c.getJSON(ctx, c.listURL, listPath, params, &resp); err != nil {
			return nil, fmt.Errorf("list page %d: %w", page, err)
		}
		if resp.Data == nil || len(resp.Data.Diff) == 0 {
			break
		}

		for _, d := range resp.Data.Diff {
			if d.Code != "" {
				names[d.Code] = d.Name
			}
		}

		if len(names) >= resp.Data.Total {
			break
		}
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("empty symbol directory")
	}

	c.logger.WithField("count", len(names)).Info("Fetched symbol directory")
	return names, nil
}
