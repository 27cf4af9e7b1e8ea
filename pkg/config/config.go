package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DateLayout is the compact date format used by the cache keys and the provider
const DateLayout = "20060102"

// MaxWorkers is the hard upper bound for any worker pool
const MaxWorkers = 25

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Storage
	Storage StorageConfig

	// Fetch pipeline
	Fetch FetchConfig

	// Screening / scoring
	Screen ScreenConfig

	// External APIs
	Eastmoney EastmoneyConfig
	HTTP      HTTPConfig

	// Scheduler
	Schedule ScheduleConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// StorageConfig holds flat-file locations
type StorageConfig struct {
	DataDir     string // per-symbol bar cache (default stock_data)
	ResultsDir  string // analysis reports
	BacktestDir string // backtest profit files
}

// FetchConfig holds the fetch window and pool settings
type FetchConfig struct {
	Frequency   string // daily, weekly, monthly
	StartDate   time.Time
	EndDate     time.Time
	Workers     int
	TaskTimeout time.Duration

	ExcludedPrefixes []string // restricted board code prefixes
	STMarkers        []string // special treatment name markers
	DelistMarkers    []string // delisting name markers
}

// ScreenConfig holds scoring and ranking settings
type ScreenConfig struct {
	Strategy     string // tiered, multifactor
	StrategyFile string // optional YAML weights file
	Threshold    float64
	TopN         int
	WriteReports bool
}

// EastmoneyConfig holds market data provider endpoints
type EastmoneyConfig struct {
	QuoteURL    string // push2his: klines, fund flow
	ListURL     string // push2: A-share list
	RankURL     string // emappdata: hot rank
	CalendarRef string // index secid used to derive the trading calendar
}

// HTTPConfig holds outbound HTTP behaviour
type HTTPConfig struct {
	Timeout      time.Duration
	MaxRetries   int
	RateLimitRPS float64
	Burst        int
}

// ScheduleConfig holds cron expressions (with seconds)
type ScheduleConfig struct {
	FetchCron  string
	ScreenCron string
	UsageCron  string // cache size gauge refresh
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	startDate, err := getEnvAsDate("FETCH_START_DATE", "20220101")
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// 종료일 기본값: 오늘
	endDate, err := getEnvAsDate("FETCH_END_DATE", time.Now().Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Storage: StorageConfig{
			DataDir:     getEnv("DATA_DIR", "stock_data"),
			ResultsDir:  getEnv("RESULTS_DIR", "results"),
			BacktestDir: getEnv("BACKTEST_DIR", "backtest_results"),
		},

		Fetch: FetchConfig{
			Frequency:        getEnv("FETCH_FREQUENCY", "daily"),
			StartDate:        startDate,
			EndDate:          endDate,
			Workers:          getEnvAsInt("WORKERS", 10),
			TaskTimeout:      getEnvAsDuration("TASK_TIMEOUT", "60s"),
			ExcludedPrefixes: getEnvAsList("EXCLUDED_PREFIXES", "688,689,8,4,92"),
			STMarkers:        getEnvAsList("ST_MARKERS", "ST"),
			DelistMarkers:    getEnvAsList("DELIST_MARKERS", "退"),
		},

		Screen: ScreenConfig{
			Strategy:     getEnv("SCORING_STRATEGY", "tiered"),
			StrategyFile: getEnv("SCORING_CONFIG", ""),
			Threshold:    getEnvAsFloat("SCORE_THRESHOLD", 70),
			TopN:         getEnvAsInt("TOP_N", 5),
			WriteReports: getEnvAsBool("WRITE_REPORTS", true),
		},

		Eastmoney: EastmoneyConfig{
			QuoteURL:    getEnv("EASTMONEY_QUOTE_URL", "https://push2his.eastmoney.com"),
			ListURL:     getEnv("EASTMONEY_LIST_URL", "https://82.push2.eastmoney.com"),
			RankURL:     getEnv("EASTMONEY_RANK_URL", "https://emappdata.eastmoney.com"),
			CalendarRef: getEnv("CALENDAR_INDEX", "1.000001"),
		},

		HTTP: HTTPConfig{
			Timeout:      getEnvAsDuration("HTTP_TIMEOUT", "15s"),
			MaxRetries:   getEnvAsInt("HTTP_MAX_RETRIES", 2),
			RateLimitRPS: getEnvAsFloat("RATE_LIMIT_RPS", 20),
			Burst:        getEnvAsInt("RATE_LIMIT_BURST", 10),
		},

		Schedule: ScheduleConfig{
			FetchCron:  getEnv("FETCH_CRON", "0 0 16 * * 1-5"),
			ScreenCron: getEnv("SCREEN_CRON", "0 30 16 * * 1-5"),
			UsageCron:  getEnv("USAGE_CRON", "0 */30 * * * *"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no environment is set.
// Intended for tests and embedding.
func Default() *Config {
	start, _ := time.Parse(DateLayout, "20220101")
	end, _ := time.Parse(DateLayout, "20250217")
	return &Config{
		Port: "8089",
		Env:  "development",
		Storage: StorageConfig{
			DataDir:     "stock_data",
			ResultsDir:  "results",
			BacktestDir: "backtest_results",
		},
		Fetch: FetchConfig{
			Frequency:        "daily",
			StartDate:        start,
			EndDate:          end,
			Workers:          10,
			TaskTimeout:      60 * time.Second,
			ExcludedPrefixes: []string{"688", "689", "8", "4", "92"},
			STMarkers:        []string{"ST"},
			DelistMarkers:    []string{"退"},
		},
		Screen: ScreenConfig{
			Strategy:  "tiered",
			Threshold: 70,
			TopN:      5,
		},
		Eastmoney: EastmoneyConfig{
			QuoteURL:    "https://push2his.eastmoney.com",
			ListURL:     "https://82.push2.eastmoney.com",
			RankURL:     "https://emappdata.eastmoney.com",
			CalendarRef: "1.000001",
		},
		HTTP: HTTPConfig{
			Timeout:      15 * time.Second,
			MaxRetries:   2,
			RateLimitRPS: 20,
			Burst:        10,
		},
		Schedule: ScheduleConfig{
			FetchCron:  "0 0 16 * * 1-5",
			ScreenCron: "0 30 16 * * 1-5",
			UsageCron:  "0 */30 * * * *",
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// validate checks if configuration values are in range
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Fetch.Frequency {
	case "daily", "weekly", "monthly":
	default:
		return fmt.Errorf("FETCH_FREQUENCY must be one of: daily, weekly, monthly")
	}

	if c.Fetch.Workers < 1 || c.Fetch.Workers > MaxWorkers {
		return fmt.Errorf("WORKERS must be in [1, %d], got %d", MaxWorkers, c.Fetch.Workers)
	}

	if c.Fetch.EndDate.Before(c.Fetch.StartDate) {
		return fmt.Errorf("FETCH_END_DATE must not be before FETCH_START_DATE")
	}

	if c.Screen.Threshold < 0 || c.Screen.Threshold > 100 {
		return fmt.Errorf("SCORE_THRESHOLD must be in [0, 100]")
	}

	if c.Screen.TopN < 1 {
		return fmt.Errorf("TOP_N must be >= 1")
	}

	if c.Screen.Strategy != "tiered" && c.Screen.Strategy != "multifactor" {
		return fmt.Errorf("SCORING_STRATEGY must be one of: tiered, multifactor")
	}

	return nil
}

// WithEndDate returns a copy whose fetch window ends on the given date.
// Backtests re-key the cache per filter date this way.
func (c *Config) WithEndDate(end time.Time) *Config {
	cp := *c
	cp.Fetch.EndDate = end
	return &cp
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value; an explicitly empty list is "-"
func getEnvAsList(key string, defaultValue string) []string {
	valueStr := getEnv(key, defaultValue)
	if valueStr == "-" {
		return []string{}
	}

	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvAsDate(key string, defaultValue string) (time.Time, error) {
	valueStr := getEnv(key, defaultValue)
	d, err := time.Parse(DateLayout, valueStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYYMMDD, got %q", key, valueStr)
	}
	return d, nil
}
