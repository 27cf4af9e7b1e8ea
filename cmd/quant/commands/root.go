package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "limitup - A주 상한가 후보 스크리닝",
	Long: `limitup Unified CLI

A-share 일봉 캐시를 기반으로 상한가 후보를 점수화하고 백테스트합니다.
수집 → 검증 → 캐시 → 점수 → 스크리닝 → 백테스트.

설정은 환경변수(.env)에서 읽습니다. 전략 가중치는 SCORING_CONFIG(YAML).

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant fetcher collect all
  go run ./cmd/quant screen --top 5
  go run ./cmd/quant backtest run --from 20240102 --to 20240131
  go run ./cmd/quant api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
