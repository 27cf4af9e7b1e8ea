package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/s0_data/quality"
	"github.com/wonny/limitup/internal/scheduler"
	"github.com/wonny/limitup/internal/scheduler/jobs"
	"github.com/wonny/limitup/pkg/workerpool"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `수집/스크리닝 작업을 cron 스케줄로 실행합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler list
  go run ./cmd/quant scheduler run data_collection`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업 (cron, 초 포함):
- data_collection: FETCH_CRON  (기본 평일 16:00, 유니버스 전체 수집)
- screen:          SCREEN_CRON (기본 평일 16:30, 스크리닝 Top N)
- cache_usage:     USAGE_CRON  (기본 30분마다, 캐시 용량 메트릭)

수집 윈도우 종료일은 매 실행 시 오늘 날짜로 맞춰집니다.
스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== limitup Scheduler ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	sched, _, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	PrintList(sched.Jobs())
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	sched, _, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// cron은 Start 이후에만 다음 실행 시각을 계산함
	sched.Start()
	defer sched.Stop()

	stats := sched.Stats()
	widths := []int{16, 18, 19}
	PrintTableHeader([]string{"Job", "Schedule", "Next Run"}, widths)
	for _, name := range sched.Jobs() {
		st := stats[name]
		next := "-"
		if st.NextRun != nil {
			next = st.NextRun.Format("2006-01-02 15:04:05")
		}
		PrintTableRow([]string{name, st.Schedule, next}, widths)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := newApp()
	if err != nil {
		return err
	}
	sched, screenJob, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	ctx, stop := signalContext()
	defer stop()

	fmt.Printf("Running job: %s\n", jobName)
	result, err := sched.RunNow(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if jobName == screenJob.Name() {
		for _, r := range screenJob.LastPicks() {
			fmt.Printf("   %d. %s %s %.2f (%s)\n", r.Rank, r.Symbol, r.Name, r.Probability, r.Tier)
		}
	}

	if !result.Success {
		PrintError(fmt.Sprintf("%s failed after %s: %s", jobName, result.Duration, result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}
	PrintSuccess(fmt.Sprintf("%s completed in %s", jobName, result.Duration))
	return nil
}

// initScheduler registers the pipeline jobs
func initScheduler(a *app) (*scheduler.Scheduler, *jobs.ScreenJob, error) {
	sched := scheduler.New(a.log)

	// 수집 전 디렉터리를 갱신 (신규 상장/종목명 변경 반영)
	fetchUniverse := func(ctx context.Context) ([]string, error) {
		if _, err := a.refreshDirectory(ctx); err != nil {
			return nil, err
		}
		return a.universeSymbols(ctx)
	}
	coverage := func(ctx context.Context) (*quality.Snapshot, error) {
		return a.coverageFor(ctx, a.todayConfig())
	}

	screenJob := jobs.NewScreenJob(rollingScreener{a}, coverage, a.universeSymbols, jobs.ScreenConfig{
		Schedule:  a.cfg.Schedule.ScreenCron,
		Threshold: a.cfg.Screen.Threshold,
		TopN:      a.cfg.Screen.TopN,
	}, a.log)

	for _, job := range []scheduler.Job{
		jobs.NewDataCollectionJob(rollingFetcher{a}, fetchUniverse, a.cfg.Schedule.FetchCron, a.log),
		screenJob,
		jobs.NewCacheUsageJob(a.store, a.metrics, a.cfg.Schedule.UsageCron, a.log),
	} {
		if err := sched.AddJob(job); err != nil {
			return nil, nil, err
		}
	}

	return sched, screenJob, nil
}

// rollingFetcher collects into the window ending today
type rollingFetcher struct{ a *app }

func (f rollingFetcher) FetchAll(ctx context.Context, symbols []string, progress workerpool.ProgressFunc) map[string]contracts.FetchOutcome {
	col, err := f.a.collector(ctx, f.a.todayConfig())
	if err != nil {
		out := make(map[string]contracts.FetchOutcome, len(symbols))
		for _, s := range symbols {
			out[s] = contracts.FetchOutcome{Symbol: s, Kind: contracts.OutcomeSourceFailure, Reason: err.Error()}
		}
		return out
	}
	return col.FetchAll(ctx, symbols, progress)
}

// rollingScreener scores the window ending today
type rollingScreener struct{ a *app }

func (s rollingScreener) ScreenAll(ctx context.Context, symbols []string, threshold float64, progress workerpool.ProgressFunc) map[string]contracts.ScoreResult {
	engine, err := s.a.engine(ctx, s.a.todayConfig())
	if err != nil {
		s.a.log.WithError(err).Error("Failed to build scoring engine")
		return map[string]contracts.ScoreResult{}
	}
	return s.a.screener(engine).ScreenAll(ctx, symbols, threshold, progress)
}
