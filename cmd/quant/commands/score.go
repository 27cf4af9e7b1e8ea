package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/s2_signals"
)

// scoreCmd scores a single cached symbol
var scoreCmd = &cobra.Command{
	Use:   "score SYMBOL",
	Short: "단일 종목 점수 산출",
	Long: `캐시된 시리즈로 상한가 확률을 계산합니다 (네트워크 K선 조회 없음).

전략은 SCORING_STRATEGY 또는 SCORING_CONFIG(YAML)로 선택합니다:
  tiered       - 최근 2일 거래량/등락률/회전율 구간 점수
  multifactor  - 30일 기술/자금흐름/인기/연속상한가 가중 합

Example:
  go run ./cmd/quant score 000001`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	engine, err := a.engine(ctx, a.cfg)
	if err != nil {
		return err
	}

	res := engine.Score(ctx, args[0])
	printScore(res)

	// MA5 각도 확장 여부 (캐시 종가 기준)
	if key, ok := engine.Key(args[0]); ok {
		if series, err := a.store.Load(key); err == nil {
			printAngles(series.Closes())
		}
	}

	if !res.IsSuccess() {
		return fmt.Errorf("score %s: %s", res.Symbol, res.Status)
	}
	return nil
}

// printScore prints one result with its breakdown
func printScore(res contracts.ScoreResult) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s %s (%s)\n", res.Symbol, res.Name, res.Strategy)
	PrintSeparator()
	PrintKeyValue("Probability", fmt.Sprintf("%.2f", res.Probability), 12)
	PrintKeyValue("Risk Tier", string(res.Tier), 12)
	PrintKeyValue("Status", res.Status, 12)
	if !res.Date.IsZero() {
		PrintKeyValue("Date", res.Date.Format("2006-01-02"), 12)
	}

	if len(res.Breakdown.Scores) > 0 {
		PrintSeparator()
		printNamed(res.Breakdown.Scores)
	}
	if len(res.Breakdown.Indicators) > 0 {
		PrintSeparator()
		printNamed(res.Breakdown.Indicators)
	}
	PrintDoubleSeparator()
}

// printNamed keeps the breakdown's own order
func printNamed(factors []contracts.Factor) {
	for _, f := range factors {
		PrintKeyValue(f.Name, fmt.Sprintf("%.4f", f.Value), 20)
	}
}

// printAngles prints the MA5 angle expansion check when enough closes exist
func printAngles(closes []float64) {
	check, ok := s2_signals.CheckMAAngles(closes)
	if !ok {
		return
	}
	angles := make([]string, len(check.Angles))
	for i, v := range check.Angles {
		angles[i] = fmt.Sprintf("%.2f°", v)
	}
	PrintKeyValue("MA5 Angles", strings.Join(angles, " → "), 12)
	PrintKeyValue("Expanding", fmt.Sprintf("%t", check.Expanding), 12)
}
