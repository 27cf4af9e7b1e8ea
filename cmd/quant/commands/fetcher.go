package commands

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/limitup/internal/contracts"
)

// fetcherCmd represents the fetcher command
var fetcherCmd = &cobra.Command{
	Use:   "fetcher",
	Short: "일봉 데이터 수집",
	Long: `Eastmoney에서 A주 K선 데이터를 수집하여 CSV 캐시에 저장합니다.

이 명령어는:
- 종목 디렉터리 조회 (코드 → 종목명)
- 종목별 K선 수집 (전복권, daily/weekly/monthly)
- 전체 시리즈 검증 후에만 캐시 파일 기록 (부분 기록 없음)

Example:
  go run ./cmd/quant fetcher collect all
  go run ./cmd/quant fetcher collect 000001 600000`,
}

// fetcherCollectCmd represents the collect subcommand
var fetcherCollectCmd = &cobra.Command{
	Use:   "collect [all|SYMBOL...]",
	Short: "데이터 수집 실행",
	Long: `유니버스 전체 또는 지정 종목의 데이터를 수집합니다.

대상:
  all        - 제외 규칙 통과 종목 전체
  SYMBOL...  - 6자리 종목코드 목록

수집 기간/주기/워커 수는 환경변수로 설정합니다:
  FETCH_START_DATE, FETCH_END_DATE, FETCH_FREQUENCY, WORKERS, TASK_TIMEOUT

Example:
  go run ./cmd/quant fetcher collect all
  go run ./cmd/quant fetcher collect 000001 600000`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetcherCollect,
}

func init() {
	rootCmd.AddCommand(fetcherCmd)
	fetcherCmd.AddCommand(fetcherCollectCmd)
}

func runFetcherCollect(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	symbols := args
	if len(args) == 1 && args[0] == "all" {
		if symbols, err = a.universeSymbols(ctx); err != nil {
			return err
		}
	}

	col, err := a.collector(ctx, a.cfg)
	if err != nil {
		return err
	}

	fmt.Println("=== limitup Data Fetcher ===")
	PrintSeparator()
	PrintKeyValue("Period", fmt.Sprintf("%s ~ %s",
		a.cfg.Fetch.StartDate.Format("2006-01-02"), a.cfg.Fetch.EndDate.Format("2006-01-02")), 9)
	PrintKeyValue("Frequency", a.cfg.Fetch.Frequency, 9)
	PrintKeyValue("Symbols", fmt.Sprintf("%d", len(symbols)), 9)
	PrintKeyValue("Workers", fmt.Sprintf("%d", a.cfg.Fetch.Workers), 9)
	PrintSeparator()

	start := time.Now()
	bar, progress := newProgress(len(symbols), "Fetching")
	outcomes := col.FetchAll(ctx, symbols, progress)
	_ = bar.Finish()
	fmt.Println()

	printFetchSummary(outcomes)

	if ctx.Err() != nil {
		PrintWarning("수집이 중단되었습니다 (interrupted)")
		return ctx.Err()
	}

	PrintSuccess(fmt.Sprintf("Fetch completed in %.2fs", time.Since(start).Seconds()))
	return nil
}

// printFetchSummary prints outcome counts and the non-success details
func printFetchSummary(outcomes map[string]contracts.FetchOutcome) {
	counts := contracts.CountByKind(outcomes)

	fmt.Println()
	fmt.Println("📊 Outcomes")
	for _, kind := range contracts.OutcomeKinds {
		PrintKeyValue(string(kind), fmt.Sprintf("%d", counts[kind]), 20)
	}

	var failed []string
	for symbol, out := range outcomes {
		if out.Kind != contracts.OutcomeSuccess {
			failed = append(failed, fmt.Sprintf("%s [%s] %s", symbol, out.Kind, out.Reason))
		}
	}
	if len(failed) == 0 {
		return
	}

	sort.Strings(failed)
	const maxShown = 20
	fmt.Println()
	fmt.Println("⚠️  Not cached")
	if len(failed) > maxShown {
		PrintList(failed[:maxShown])
		fmt.Printf("   ... and %d more\n", len(failed)-maxShown)
		return
	}
	PrintList(failed)
}
