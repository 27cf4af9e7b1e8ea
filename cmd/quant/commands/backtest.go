package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/limitup/internal/audit"
	"github.com/wonny/limitup/internal/backtest"
	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/s0_data/quality"
	"github.com/wonny/limitup/internal/selection"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "익일 시가 매수 / 익익일 종가 매도 백테스트",
	Long: `필터일마다 스크리닝 Top N 종목을 다음 거래일 시가에 매수,
그 다음 거래일 종가에 매도한 것으로 계산합니다.

수익률 = (매도 종가 - 매수 시가) / 매수 시가, 일별 합계는 단순 합.
필터일별 결과는 BACKTEST_DIR/{YYYYMMDD}_buy_sell_profit.csv 에 저장되고,
merge 는 all_buy_sell_profit.csv 로 합칩니다.

Example:
  go run ./cmd/quant backtest run --from 20240102 --to 20240131
  go run ./cmd/quant backtest run --dates 20240105,20240112
  go run ./cmd/quant backtest merge`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "백테스트 실행",
		Long: `지정된 기간의 모든 거래일(또는 --dates)에 대해 백테스트를 실행합니다.

Flags:
  --from   시작 필터일 (YYYYMMDD)
  --to     종료 필터일 (YYYYMMDD, 기본: 오늘)
  --dates  쉼표 구분 필터일 목록 (--from/--to 대신)
  --top    필터일별 매수 종목 수 (기본: TOP_N)
  --no-fetch  필터일 윈도우를 수집하지 않고 기존 캐시만 사용

필터일마다 종료일이 필터일인 윈도우를 먼저 수집하고, 캐시 커버리지가
기준 미만이면 해당 날짜는 insufficient_coverage 로 실패 처리됩니다.

마지막 두 거래일은 매도일이 없으므로 calendar_boundary 로 실패 처리되며,
다른 날짜의 실행은 계속됩니다.`,
		RunE: runBacktest,
	}

	backtestMergeCmd = &cobra.Command{
		Use:   "merge [YYYYMMDD...]",
		Short: "필터일 결과 파일 병합",
		Long: `저장된 필터일 파일을 읽어 일별 합계와 전체 합계를 다시 계산하고
all_buy_sell_profit.csv 를 기록합니다. 인자가 없으면 디렉터리의 모든 파일을 병합합니다.`,
		RunE: runBacktestMerge,
	}

	// Flags
	backtestFrom    string
	backtestTo      string
	backtestDates   string
	backtestTop     int
	backtestNoFetch bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)
	backtestCmd.AddCommand(backtestMergeCmd)

	backtestRunCmd.Flags().StringVar(&backtestFrom, "from", "", "시작 필터일 (YYYYMMDD)")
	backtestRunCmd.Flags().StringVar(&backtestTo, "to", "", "종료 필터일 (YYYYMMDD)")
	backtestRunCmd.Flags().StringVar(&backtestDates, "dates", "", "필터일 목록 (쉼표 구분)")
	backtestRunCmd.Flags().IntVar(&backtestTop, "top", 0, "필터일별 매수 종목 수")
	backtestRunCmd.Flags().BoolVar(&backtestNoFetch, "no-fetch", false, "필터일 윈도우 수집 생략")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	top := a.cfg.Screen.TopN
	if backtestTop > 0 {
		top = backtestTop
	}

	ctx, stop := signalContext()
	defer stop()

	simulator := backtest.NewSimulator(a.source, a.log)
	engine := backtest.NewEngine(simulator, backtest.NewJournal(a.cfg.Storage.BacktestDir, a.log), a.log).
		WithMetrics(a.metrics)

	dates, err := backtestFilterDates(ctx, simulator)
	if err != nil {
		return err
	}
	if len(dates) == 0 {
		return fmt.Errorf("no filter dates in range")
	}

	symbols, err := a.universeSymbols(ctx)
	if err != nil {
		return err
	}

	fmt.Println("=== limitup Backtest ===")
	PrintSeparator()
	PrintKeyValue("Dates", fmt.Sprintf("%d (%s ~ %s)", len(dates),
		dates[0].Format("2006-01-02"), dates[len(dates)-1].Format("2006-01-02")), 9)
	PrintKeyValue("Universe", fmt.Sprintf("%d", len(symbols)), 9)
	PrintKeyValue("Top N", fmt.Sprintf("%d", top), 9)
	PrintKeyValue("Output", a.cfg.Storage.BacktestDir, 9)
	PrintSeparator()

	// 필터일마다 캐시 윈도우 종료일을 필터일로 맞춰 스크리닝
	selector := func(ctx context.Context, filterDate time.Time) ([]contracts.RankedStock, error) {
		scorer, err := a.engine(ctx, a.cfg.WithEndDate(filterDate))
		if err != nil {
			return nil, err
		}
		results := a.screener(scorer).ScreenAll(ctx, symbols, a.cfg.Screen.Threshold, nil)
		return selection.TopN(results, top), nil
	}

	result, err := engine.Run(ctx, dates, backtest.Gated(windowPreparer(a, symbols, !backtestNoFetch), selector))
	if err != nil {
		return err
	}

	printBacktestDays(result)

	if len(result.Days) > 0 {
		ran := make([]time.Time, len(result.Days))
		for i, d := range result.Days {
			ran[i] = d.FilterDate
		}
		merged, err := engine.Merge(ran)
		if err != nil {
			return fmt.Errorf("merge: %w", err)
		}
		fmt.Println()
		PrintKeyValue("Merged", merged.Path, 6)
	}

	fmt.Println()
	fmt.Print(audit.Analyze(result.Days).ToSummary())
	fmt.Println()
	PrintSuccess(fmt.Sprintf("Backtest completed in %.2fs", result.Duration.Seconds()))
	return nil
}

// windowPreparer collects the window ending on each filter date, then reports its coverage
func windowPreparer(a *app, symbols []string, fetch bool) backtest.PrepareFunc {
	return func(ctx context.Context, filterDate time.Time) (*quality.Snapshot, error) {
		cfg := a.cfg.WithEndDate(filterDate)
		if fetch {
			col, err := a.collector(ctx, cfg)
			if err != nil {
				return nil, err
			}
			outcomes := col.FetchAll(ctx, symbols, nil)
			a.log.WithFields(map[string]interface{}{
				"filter_date": filterDate.Format(contracts.DateLayout),
				"symbols":     len(outcomes),
				"success":     contracts.CountByKind(outcomes)[contracts.OutcomeSuccess],
			}).Info("Backtest window collected")
		}
		return a.coverageFor(ctx, cfg)
	}
}

// backtestFilterDates resolves --dates, or every calendar day in [--from, --to]
func backtestFilterDates(ctx context.Context, simulator *backtest.Simulator) ([]time.Time, error) {
	if backtestDates != "" {
		var dates []time.Time
		for _, s := range strings.Split(backtestDates, ",") {
			d, err := parseDay(strings.TrimSpace(s))
			if err != nil {
				return nil, err
			}
			dates = append(dates, d)
		}
		return dates, nil
	}

	if backtestFrom == "" {
		return nil, fmt.Errorf("--from or --dates is required")
	}
	from, err := parseDay(backtestFrom)
	if err != nil {
		return nil, err
	}
	to := time.Now().UTC()
	if backtestTo != "" {
		if to, err = parseDay(backtestTo); err != nil {
			return nil, err
		}
	}
	if to.Before(from) {
		return nil, fmt.Errorf("--to %s is before --from %s", backtestTo, backtestFrom)
	}

	calendar, err := simulator.Calendar(ctx)
	if err != nil {
		return nil, fmt.Errorf("trading calendar: %w", err)
	}

	var dates []time.Time
	for _, d := range calendar {
		if !d.Before(from) && !d.After(to) {
			dates = append(dates, d)
		}
	}
	return dates, nil
}

func printBacktestDays(result *backtest.RunResult) {
	fmt.Println()
	widths := []int{10, 10, 10, 7, 7, 12}
	PrintTableHeader([]string{"Filter", "Buy", "Sell", "Trades", "Skip", "Total"}, widths)
	for _, d := range result.Days {
		PrintTableRow([]string{
			d.FilterDate.Format("2006-01-02"),
			d.BuyDate.Format("2006-01-02"),
			d.SellDate.Format("2006-01-02"),
			fmt.Sprintf("%d", len(d.Entries)),
			fmt.Sprintf("%d", len(d.Skipped)),
			fmt.Sprintf("%.4f", d.TotalReturn),
		}, widths)
	}

	if len(result.Failures) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("⚠️  Failed dates")
	items := make([]string, 0, len(result.Failures))
	for _, f := range result.Failures {
		items = append(items, fmt.Sprintf("%s [%s] %v", f.FilterDate.Format("2006-01-02"), f.Reason, f.Err))
	}
	PrintList(items)
}

func runBacktestMerge(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	var dates []time.Time
	for _, s := range args {
		d, err := parseDay(s)
		if err != nil {
			return err
		}
		dates = append(dates, d)
	}

	merged, err := backtest.NewJournal(a.cfg.Storage.BacktestDir, a.log).Merge(dates)
	if err != nil {
		return err
	}

	fmt.Println("=== limitup Backtest Merge ===")
	PrintSeparator()
	widths := []int{10, 7, 12}
	PrintTableHeader([]string{"Filter", "Trades", "Total"}, widths)
	for _, d := range merged.Dates {
		PrintTableRow([]string{
			d.FilterDate.Format("2006-01-02"),
			fmt.Sprintf("%d", d.Entries),
			fmt.Sprintf("%.4f", d.TotalReturn),
		}, widths)
	}
	PrintSeparator()
	PrintKeyValue("Grand Total", fmt.Sprintf("%.4f", merged.GrandTotal), 11)
	PrintKeyValue("File", merged.Path, 11)
	return nil
}
