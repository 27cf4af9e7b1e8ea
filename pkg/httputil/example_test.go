package httputil_test

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/limitup/pkg/config"
	"github.com/wonny/limitup/pkg/httputil"
	"github.com/wonny/limitup/pkg/logger"
)

// Example_getJSON demonstrates decoding a JSON endpoint
func Example_getJSON() {
	cfg := config.Default()
	log := logger.New(cfg)

	// Create HTTP client (SSOT)
	client := httputil.New(cfg, log)

	var out map[string]interface{}
	err := client.GetJSON(context.Background(), "https://push2his.eastmoney.com/api/qt/stock/kline/get", &out)
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		return
	}

	fmt.Println(out["rc"])
}

// Example_withRetry demonstrates retry and rate limit configuration
func Example_withRetry() {
	cfg := config.Default()
	log := logger.New(cfg)

	// 5 retries from 2s, at most 5 req/s
	client := httputil.New(cfg, log).
		WithRetry(5, 2*time.Second).
		WithRateLimit(5, 1)

	resp, err := client.Get(context.Background(), "https://push2.eastmoney.com/api/qt/clist/get")
	if err != nil {
		fmt.Printf("Request failed after retries: %v\n", err)
		return
	}
	defer resp.Body.Close()

	fmt.Println("Request succeeded")
}
