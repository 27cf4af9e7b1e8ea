package eastmoney

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/wonny/limitup/internal/contracts"
)

type rankListResponse struct {
	Data []struct {
		CalcTime string    `json:"calcTime"`
		Rank     flexFloat `json:"rank"`
	} `json:"data"`
}

type profileResponse struct {
	Data []struct {
		CalcTime   string    `json:"calcTime"`
		NewUidRate flexFloat `json:"newUidRate"`
		OldUidRate flexFloat `json:"oldUidRate"`
	} `json:"data"`
}

type relatedResponse struct {
	Data []map[string]interface{} `json:"data"`
}

// parseCalcTime accepts "2006-01-02" and "2006-01-02 15:04:05"
func parseCalcTime(s string) (time.Time, bool) {
	head, _, _ := strings.Cut(strings.TrimSpace(s), " ")
	d, err := time.Parse("2006-01-02", head)
	return d, err == nil
}

// HotRank returns the popularity rank history, oldest first
func (c *Client) HotRank(ctx context.Context, symbol string) ([]contracts.HotRankDay, error) {
	var resp rankListResponse
	if err := c.postRank(ctx, hotRankPath, symbol, &resp); err != nil {
		return nil, err
	}

	out := make([]contracts.HotRankDay, 0, len(resp.Data))
	for _, r := range resp.Data {
		d, ok := parseCalcTime(r.CalcTime)
		if !ok {
			continue
		}
		out = append(out, contracts.HotRankDay{Date: d, Rank: float64(r.Rank)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// FanProfile returns new/loyal follower rates, oldest first
func (c *Client) FanProfile(ctx context.Context, symbol string) ([]contracts.FanDay, error) {
	var resp profileResponse
	if err := c.postRank(ctx, profilePath, symbol, &resp); err != nil {
		return nil, err
	}

	out := make([]contracts.FanDay, 0, len(resp.Data))
	for _, r := range resp.Data {
		d, ok := parseCalcTime(r.CalcTime)
		if !ok {
			continue
		}
		out = append(out, contracts.FanDay{
			Date:      d,
			NewFans:   float64(r.NewUidRate),
			LoyalFans: float64(r.OldUidRate),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// RelatedSymbols returns the codes users also follow, without market prefix
func (c *Client) RelatedSymbols(ctx context.Context, symbol string) ([]string, error) {
	var resp relatedResponse
	if err := c.postRank(ctx, relatedPath, symbol, &resp); err != nil {
		return nil, err
	}

	self := MarketCode(symbol)
	seen := make(map[string]bool)
	var out []string
	for _, row := range resp.Data {
		// 응답 필드명이 고정되지 않아 종목코드 형태의 값을 찾음
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s, ok := row[k].(string)
			if !ok || s == self || !isMarketCode(s) {
				continue
			}
			code := stripMarket(s)
			if !seen[code] {
				seen[code] = true
				out = append(out, code)
			}
			break
		}
	}
	return out, nil
}

func isMarketCode(s string) bool {
	if len(s) != 8 {
		return false
	}
	switch s[:2] {
	case "SH", "SZ", "BJ":
	default:
		return false
	}
	for _, r := range s[2:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
