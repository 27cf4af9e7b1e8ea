package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/s0_data"
	"github.com/wonny/limitup/pkg/logger"
)

func TestGate_Check(t *testing.T) {
	store := s0_data.NewStore(t.TempDir(), logger.NewNop())
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	series := &contracts.BarSeries{Bars: []contracts.DailyBar{{Date: end, Close: 10}}}
	_, err := store.Save(contracts.CacheKey{Symbol: "000001", Name: "平安银行", Start: start, End: end}, series)
	require.NoError(t, err)

	dir := contracts.SymbolNames{
		"000001": "平安银行",
		"600000": "浦发银行",
		"688001": "华兴源创",
		"000004": "*ST 国华",
	}

	snap, err := NewGate(store, defaultRules(), 0.5).Check(dir, start, end)
	require.NoError(t, err)

	assert.Equal(t, 4, snap.Total)
	assert.Equal(t, 2, snap.Eligible)
	assert.Equal(t, 1, snap.Cached)
	assert.Len(t, snap.Excluded, 2)
	assert.InDelta(t, 0.5, snap.Coverage, 1e-9)
	assert.True(t, snap.Passed)
}
