package s2_signals

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/strategyconfig"
	"github.com/wonny/limitup/pkg/logger"
)

type fakeFlow struct {
	days []contracts.FundFlowDay
	err  error
}

func (f *fakeFlow) FundFlow(ctx context.Context, symbol string) ([]contracts.FundFlowDay, error) {
	return f.days, f.err
}

type fakeSentiment struct {
	ranks []contracts.HotRankDay
	fans  []contracts.FanDay
	peers []string
	err   error
}

func (f *fakeSentiment) HotRank(ctx context.Context, symbol string) ([]contracts.HotRankDay, error) {
	return f.ranks, f.err
}

func (f *fakeSentiment) FanProfile(ctx context.Context, symbol string) ([]contracts.FanDay, error) {
	return f.fans, f.err
}

func (f *fakeSentiment) RelatedSymbols(ctx context.Context, symbol string) ([]string, error) {
	return f.peers, f.err
}

type fakePeers map[string]*contracts.BarSeries

func (f fakePeers) PeerBars(ctx context.Context, symbol string) (*contracts.BarSeries, error) {
	s, ok := f[symbol]
	if !ok {
		return nil, errors.New("no peer")
	}
	return s, nil
}

// threeDay: +3% close and 3% turnover on the last bar, so price and turnover score 100
func threeDay() *contracts.BarSeries {
	return twoDay(1,
		contracts.DailyBar{Close: 100, High: 100, Amount: 1000},
		contracts.DailyBar{Close: 103, High: 104, Amount: 1000, PctChange: 3, TurnoverRate: 3})
}

func newMultifactor(feeds Feeds) *MultifactorStrategy {
	return NewMultifactorStrategy(strategyconfig.Default().Multifactor, feeds, logger.NewNop())
}

func TestMultifactor_NeutralFeeds(t *testing.T) {
	// 20 + 15 + 50·(0.25+0.20+0.10+0.20)
	const want = 72.5
	feedErr := errors.New("upstream down")

	tests := []struct {
		name  string
		feeds Feeds
	}{
		{"no feeds", Feeds{}},
		{"failing feeds", Feeds{
			FundFlow:  &fakeFlow{err: feedErr},
			Sentiment: &fakeSentiment{err: feedErr},
			Peers:     fakePeers{},
		}},
		{"empty feeds", Feeds{
			FundFlow:  &fakeFlow{},
			Sentiment: &fakeSentiment{peers: []string{"600099"}},
			Peers:     fakePeers{},
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := newMultifactor(tc.feeds).Evaluate(context.Background(), "000001", threeDay())
			require.NoError(t, err)
			assert.InDelta(t, want, b.Composite, 1e-6)

			for _, name := range []string{ScoreFlow, ScoreSentiment, ScoreTechnical, ScoreLimitUp} {
				v, ok := b.Score(name)
				require.True(t, ok, name)
				assert.Equal(t, 50.0, v, name)
			}
		})
	}
}

func TestMultifactor_Flow(t *testing.T) {
	flow := &fakeFlow{days: []contracts.FundFlowDay{
		{MainNetInflow: 1, BigOrderRatio: 5},
		{MainNetInflow: 2, BigOrderRatio: 15},
		{MainNetInflow: 3, BigOrderRatio: 25},
	}}

	b, err := newMultifactor(Feeds{FundFlow: flow}).Evaluate(context.Background(), "000001", threeDay())
	require.NoError(t, err)

	v, _ := b.Score(ScoreFlow)
	assert.Equal(t, 100.0, v)
	assert.InDelta(t, 72.5+50*0.25, b.Composite, 1e-6)

	ratio, ok := b.Indicator(IndBigOrder)
	require.True(t, ok)
	assert.Equal(t, 25.0, ratio)
}

func TestMultifactor_Sentiment(t *testing.T) {
	s := &fakeSentiment{}
	for i := 0; i < 5; i++ {
		s.ranks = append(s.ranks, contracts.HotRankDay{Rank: float64(50 - 10*i)}) // 50 → 10
		s.fans = append(s.fans, contracts.FanDay{NewFans: float64(i), LoyalFans: float64(10 + i)})
	}

	b, err := newMultifactor(Feeds{Sentiment: s}).Evaluate(context.Background(), "000001", threeDay())
	require.NoError(t, err)

	v, _ := b.Score(ScoreSentiment)
	assert.Equal(t, 100.0, v)
	rank, _ := b.Indicator(IndRank)
	assert.Equal(t, 10.0, rank)
}

func TestMultifactor_LimitUpPeers(t *testing.T) {
	series := twoDay(1,
		contracts.DailyBar{Close: 100, High: 100, Amount: 1000},
		contracts.DailyBar{Close: 110, High: 110, Amount: 1000, PctChange: 10, TurnoverRate: 3})

	opened := twoDay(1,
		contracts.DailyBar{Close: 10, High: 10, Amount: 1},
		contracts.DailyBar{Close: 11, High: 11.2, Amount: 1, PctChange: 10})
	feeds := Feeds{
		Sentiment: &fakeSentiment{peers: []string{"600100", "600101"}},
		Peers:     fakePeers{"600100": opened}, // 600101 누락 → 건너뜀
	}

	b, err := newMultifactor(feeds).Evaluate(context.Background(), "000001", series)
	require.NoError(t, err)

	// 자신: 봉인 상한가 100, 관련 종목: 열린 상한가 80
	v, _ := b.Score(ScoreLimitUp)
	assert.InDelta(t, 100*0.6+80*0.4, v, 1e-9)
	hits, _ := b.Indicator(IndLimitUps)
	assert.Equal(t, 1.0, hits)
	peer, _ := b.Indicator(IndPeerScore)
	assert.Equal(t, 80.0, peer)
}

func TestMultifactor_Insufficient(t *testing.T) {
	_, err := newMultifactor(Feeds{}).Evaluate(context.Background(), "000001", risingSeries("000001", 2))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestMultifactor_UsesLookbackWindow(t *testing.T) {
	// 40행 중 최근 30행만 사용: 오래된 상한가는 이력 점수에 영향 없음
	series := risingSeries("000001", 40)
	series.Bars[0].PctChange = 10

	b, err := newMultifactor(Feeds{}).Evaluate(context.Background(), "000001", series)
	require.NoError(t, err)
	hits, _ := b.Indicator(IndLimitUps)
	assert.Equal(t, 0.0, hits)

	// MACD는 30행으로는 신호선이 없어 지표 생략
	_, ok := b.Indicator(IndDEA)
	assert.False(t, ok)
	_, ok = b.Indicator(IndK)
	assert.True(t, ok)
}

func TestLimitUpCalculator_Count(t *testing.T) {
	calc := NewLimitUpCalculator(strategyconfig.Default().Multifactor.LimitUp, 50, logger.NewNop())

	bars := []contracts.DailyBar{
		{PctChange: 10, High: 11, Close: 11}, // 창 밖
		{PctChange: 1},
		{PctChange: 9.9, High: 10, Close: 10},
		{PctChange: 10, High: 12, Close: 11},
		{PctChange: 2},
		{PctChange: 9.89},
	}
	n := calc.Count(bars)
	assert.Equal(t, LimitUpCount{Hits: 2, Opened: 1}, n)
	assert.Equal(t, 80.0, ScoreCount(n))
	assert.Equal(t, 100.0, ScoreCount(LimitUpCount{Hits: 1}))
	assert.Equal(t, 50.0, ScoreCount(LimitUpCount{}))
}
