package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/limitup/pkg/config"
)

func TestParseDay(t *testing.T) {
	want := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	for _, s := range []string{"20240308", "2024-03-08"} {
		got, err := parseDay(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}

	_, err := parseDay("08/03/2024")
	assert.Error(t, err)
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab  ", padRight("ab", 4))
	assert.Equal(t, "平安  ", padRight("平安", 6))
	assert.Equal(t, "toolong", padRight("toolong", 3))
	assert.Equal(t, 8, displayWidth("平安银行"))
}

func TestLoadStrategy_DefaultUsesConfiguredName(t *testing.T) {
	cfg := config.Default()
	cfg.Screen.Strategy = "multifactor"

	sc, snap, err := loadStrategy(cfg)
	require.NoError(t, err)
	assert.Equal(t, "multifactor", sc.Strategy)
	assert.Equal(t, "multifactor", snap.Strategy)
	assert.NotEmpty(t, snap.ConfigHash)
}

func TestLoadStrategy_MissingFile(t *testing.T) {
	cfg := config.Default()
	cfg.Screen.StrategyFile = t.TempDir() + "/missing.yaml"

	_, _, err := loadStrategy(cfg)
	assert.Error(t, err)
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"fetcher", "collect"},
		{"score"},
		{"screen"},
		{"backtest", "run"},
		{"backtest", "merge"},
		{"data", "status"},
		{"api"},
		{"scheduler", "start"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestBacktestRunFlags(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"backtest", "run"})
	require.NoError(t, err)

	flag := cmd.Flags().Lookup("no-fetch")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}
