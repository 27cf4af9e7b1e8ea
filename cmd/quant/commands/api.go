package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/limitup/internal/api"
	"github.com/wonny/limitup/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                         - Health check
  GET  /metrics                        - Prometheus metrics
  GET  /api/data/status                - 캐시 크기 + 커버리지
  GET  /api/data/universe              - 스크리닝 유니버스
  POST /api/data/collect               - 데이터 수집 트리거 ({"symbols": [...]}, 비우면 전체)
  GET  /api/score/{symbol}             - 단일 종목 점수
  GET  /api/screen?threshold=&top=     - 스크리닝 Top N
  GET  /api/stocks?q=                  - 종목 검색
  GET  /api/stocks/{code}/daily?days=  - 캐시 일봉

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== limitup API Server ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	log := a.log
	log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	ctx := context.Background()

	dir, err := a.directory(ctx)
	if err != nil {
		return err
	}
	col, err := a.collector(ctx, a.cfg)
	if err != nil {
		return err
	}
	engine, err := a.engine(ctx, a.cfg)
	if err != nil {
		return err
	}

	h := api.Handlers{
		Data:    handlers.NewDataHandler(a.store, col, a.universe, a.coverage, log),
		Ranking: handlers.NewRankingHandler(engine, a.screener(engine), a.universe, a.cfg.Screen.Threshold, a.cfg.Screen.TopN, log),
		Stock:   handlers.NewStockHandler(dir, engine, a.store, log),
	}
	if a.cfg.MetricsEnabled {
		h.Metrics = a.metrics.Handler()
	}

	server := api.New(a.cfg, log, api.NewRouter(h, log))

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
