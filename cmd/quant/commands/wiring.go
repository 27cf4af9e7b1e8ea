package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/wonny/limitup/internal/audit"
	"github.com/wonny/limitup/internal/external/eastmoney"
	"github.com/wonny/limitup/internal/metrics"
	"github.com/wonny/limitup/internal/s0_data"
	"github.com/wonny/limitup/internal/s0_data/collector"
	"github.com/wonny/limitup/internal/s0_data/quality"
	"github.com/wonny/limitup/internal/s1_universe"
	"github.com/wonny/limitup/internal/s2_signals"
	"github.com/wonny/limitup/internal/selection"
	"github.com/wonny/limitup/internal/strategyconfig"
	"github.com/wonny/limitup/pkg/config"
	"github.com/wonny/limitup/pkg/httputil"
	"github.com/wonny/limitup/pkg/logger"
	"github.com/wonny/limitup/pkg/workerpool"
)

// minCoverage is the cache coverage below which the data gate reports a failure
const minCoverage = 0.95

// app holds the dependencies shared by every command
// ⭐ SSOT: 커맨드 의존성 조립은 여기서만
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	metrics  *metrics.Registry
	source   *eastmoney.Client
	store    *s0_data.Store
	rules    quality.Rules
	strategy *strategyconfig.Config
	snapshot *strategyconfig.DecisionSnapshot

	mu  sync.Mutex
	dir *s1_universe.Directory // lazily loaded
}

// newApp loads configuration and builds the shared clients
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	httpClient := httputil.New(cfg, log).WithRateLimit(cfg.HTTP.RateLimitRPS, cfg.HTTP.Burst)

	sc, snap, err := loadStrategy(cfg)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		metrics:  metrics.New(),
		source:   eastmoney.NewClient(httpClient, cfg.Eastmoney, log),
		store:    s0_data.NewStore(cfg.Storage.DataDir, log),
		rules:    quality.RulesFromConfig(cfg.Fetch),
		strategy: sc,
		snapshot: snap,
	}, nil
}

// loadStrategy reads the scoring YAML when configured; otherwise the defaults
// with the strategy named by SCORING_STRATEGY
func loadStrategy(cfg *config.Config) (*strategyconfig.Config, *strategyconfig.DecisionSnapshot, error) {
	var (
		sc  *strategyconfig.Config
		raw []byte
		err error
	)

	if cfg.Screen.StrategyFile != "" {
		sc, raw, err = strategyconfig.Load(cfg.Screen.StrategyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load strategy config: %w", err)
		}
	} else {
		sc = strategyconfig.Default()
		sc.Strategy = cfg.Screen.Strategy
	}

	snap, err := strategyconfig.NewDecisionSnapshot(sc, raw)
	if err != nil {
		return nil, nil, fmt.Errorf("strategy snapshot: %w", err)
	}
	return sc, snap, nil
}

// directory loads the symbol directory once per process
func (a *app) directory(ctx context.Context) (*s1_universe.Directory, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dir != nil {
		return a.dir, nil
	}

	dir, err := s1_universe.LoadDirectory(ctx, a.source)
	if err != nil {
		return nil, fmt.Errorf("load symbol directory: %w", err)
	}
	a.log.WithField("symbols", dir.Len()).Info("Symbol directory loaded")

	a.dir = dir
	return dir, nil
}

// refreshDirectory replaces the cached directory with a fresh listing
func (a *app) refreshDirectory(ctx context.Context) (*s1_universe.Directory, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var (
		dir *s1_universe.Directory
		err error
	)
	if a.dir != nil {
		dir, err = a.dir.Refresh(ctx)
	} else {
		dir, err = s1_universe.LoadDirectory(ctx, a.source)
	}
	if err != nil {
		return nil, fmt.Errorf("refresh symbol directory: %w", err)
	}

	a.dir = dir
	return dir, nil
}

// universe returns the screening universe after exclusion rules
func (a *app) universe(ctx context.Context) (*s1_universe.Universe, error) {
	dir, err := a.directory(ctx)
	if err != nil {
		return nil, err
	}
	return s1_universe.NewBuilder(a.rules).Build(dir), nil
}

// universeSymbols is universe() reduced to its symbol list
func (a *app) universeSymbols(ctx context.Context) ([]string, error) {
	u, err := a.universe(ctx)
	if err != nil {
		return nil, err
	}
	return u.Stocks, nil
}

// collector builds the fetch coordinator for the window of cfg
func (a *app) collector(ctx context.Context, cfg *config.Config) (*collector.Collector, error) {
	dir, err := a.directory(ctx)
	if err != nil {
		return nil, err
	}

	validator := quality.NewValidator(a.rules, dir)
	return collector.NewCollector(a.source, dir, validator, a.store, collector.ConfigFrom(cfg), a.log).
		WithMetrics(a.metrics), nil
}

// engine builds a scoring engine over the cache window of cfg
func (a *app) engine(ctx context.Context, cfg *config.Config) (*s2_signals.Engine, error) {
	dir, err := a.directory(ctx)
	if err != nil {
		return nil, err
	}

	start, end := cfg.Fetch.StartDate, cfg.Fetch.EndDate
	feeds := s2_signals.Feeds{
		FundFlow:  a.source,
		Sentiment: a.source,
		Peers:     s2_signals.NewStorePeers(a.store, dir, start, end),
	}

	strategy, err := s2_signals.NewStrategy(a.strategy, feeds, a.log)
	if err != nil {
		return nil, fmt.Errorf("build strategy: %w", err)
	}

	return s2_signals.NewEngine(strategy, a.store, dir, a.strategy.Tiers, start, end, a.log).
		WithMetrics(a.metrics), nil
}

// screener wraps engine with the bounded screen pool and optional reports
func (a *app) screener(engine *s2_signals.Engine) *selection.Screener {
	s := selection.NewScreener(engine, selection.ScreenerConfigFrom(a.cfg), a.log).
		WithMetrics(a.metrics)
	if a.cfg.Screen.WriteReports {
		s.WithReports(audit.NewReporter(a.cfg.Storage.ResultsDir, a.log).WithSnapshot(a.snapshot))
	}
	return s
}

// coverage checks the cache against the eligible universe for the configured window
func (a *app) coverage(ctx context.Context) (*quality.Snapshot, error) {
	return a.coverageFor(ctx, a.cfg)
}

func (a *app) coverageFor(ctx context.Context, cfg *config.Config) (*quality.Snapshot, error) {
	dir, err := a.directory(ctx)
	if err != nil {
		return nil, err
	}
	return quality.NewGate(a.store, a.rules, minCoverage).
		Check(dir.Names(), cfg.Fetch.StartDate, cfg.Fetch.EndDate)
}

// todayConfig moves the window end to the current date; the daemon outlives FETCH_END_DATE
func (a *app) todayConfig() *config.Config {
	today, _ := time.Parse(config.DateLayout, time.Now().Format(config.DateLayout))
	return a.cfg.WithEndDate(today)
}

// newProgress returns a terminal progress bar fed by a worker pool
func newProgress(total int, description string) (*progressbar.ProgressBar, workerpool.ProgressFunc) {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
	return bar, func(done, _ int) {
		_ = bar.Set(done)
	}
}

// parseDay accepts YYYYMMDD or YYYY-MM-DD
func parseDay(s string) (time.Time, error) {
	for _, layout := range []string{config.DateLayout, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want YYYYMMDD)", s)
}

// signalContext is cancelled on Ctrl+C / SIGTERM; running pools stop cooperatively
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
