package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/limitup/internal/selection"
)

// screenCmd scores the whole universe and prints the top N
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "유니버스 스크리닝 → Top N",
	Long: `제외 규칙을 통과한 전체 종목을 캐시 기반으로 병렬 점수화하고,
확률 >= threshold 인 종목 중 상위 N개를 출력합니다.

정렬: 확률 내림차순, 동점은 종목코드 오름차순.
WRITE_REPORTS=true 이면 통과 종목마다 RESULTS_DIR에 분석 리포트를 기록합니다.

Example:
  go run ./cmd/quant screen
  go run ./cmd/quant screen --threshold 80 --top 10
  go run ./cmd/quant screen --date 20240308`,
	RunE: runScreen,
}

var (
	screenThreshold float64
	screenTop       int
	screenDate      string
)

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().Float64Var(&screenThreshold, "threshold", -1, "최소 확률 (기본: SCORE_THRESHOLD)")
	screenCmd.Flags().IntVar(&screenTop, "top", 0, "출력 종목 수 (기본: TOP_N)")
	screenCmd.Flags().StringVar(&screenDate, "date", "", "캐시 윈도우 종료일 YYYYMMDD (기본: FETCH_END_DATE)")
}

func runScreen(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	threshold := a.cfg.Screen.Threshold
	if screenThreshold >= 0 {
		threshold = screenThreshold
	}
	if threshold > 100 {
		return fmt.Errorf("threshold must be within 0..100, got %v", threshold)
	}
	top := a.cfg.Screen.TopN
	if screenTop > 0 {
		top = screenTop
	}

	cfg := a.cfg
	if screenDate != "" {
		end, err := parseDay(screenDate)
		if err != nil {
			return err
		}
		cfg = cfg.WithEndDate(end)
	}

	ctx, stop := signalContext()
	defer stop()

	symbols, err := a.universeSymbols(ctx)
	if err != nil {
		return err
	}
	engine, err := a.engine(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Println("=== limitup Screen ===")
	PrintSeparator()
	PrintKeyValue("Strategy", engine.Strategy(), 9)
	PrintKeyValue("Window", fmt.Sprintf("%s ~ %s",
		cfg.Fetch.StartDate.Format("2006-01-02"), cfg.Fetch.EndDate.Format("2006-01-02")), 9)
	PrintKeyValue("Universe", fmt.Sprintf("%d", len(symbols)), 9)
	PrintKeyValue("Threshold", fmt.Sprintf("%.1f", threshold), 9)
	PrintSeparator()

	start := time.Now()
	bar, progress := newProgress(len(symbols), "Scoring")
	results := a.screener(engine).ScreenAll(ctx, symbols, threshold, progress)
	_ = bar.Finish()
	fmt.Println()

	ranked := selection.TopN(results, top)

	fmt.Println()
	fmt.Printf("🎯 %d passed, top %d\n\n", len(results), len(ranked))
	if len(ranked) == 0 {
		PrintWarning("조건을 만족하는 종목이 없습니다")
		return ctx.Err()
	}

	widths := []int{4, 8, 12, 11, 12}
	PrintTableHeader([]string{"Rank", "Symbol", "Name", "Probability", "Tier"}, widths)
	for _, r := range ranked {
		PrintTableRow([]string{
			fmt.Sprintf("%d", r.Rank),
			r.Symbol,
			r.Name,
			fmt.Sprintf("%.2f", r.Probability),
			string(r.Tier),
		}, widths)
	}

	fmt.Println()
	PrintSuccess(fmt.Sprintf("Screen completed in %.2fs", time.Since(start).Seconds()))
	return ctx.Err()
}
