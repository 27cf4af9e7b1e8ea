package s2_signals

import (
	"context"
	"errors"
	"math"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/strategyconfig"
	"github.com/wonny/limitup/pkg/logger"
)

// Breakdown keys of the multi-factor strategy
const (
	ScoreFlow      = "flow_score"
	ScoreSentiment = "sentiment_score"
	ScoreTechnical = "technical_score"
	ScoreLimitUp   = "limit_up_score"

	IndMainInflow   = "main_net_inflow"
	IndBigOrder     = "big_order_ratio"
	IndInflowSlope  = "inflow_slope"
	IndRank         = "hot_rank"
	IndRankSlope    = "rank_slope"
	IndNewFans      = "new_fans"
	IndLoyalFans    = "loyal_fans"
	IndDIF          = "dif"
	IndDEA          = "dea"
	IndMACD         = "macd"
	IndK            = "k"
	IndD            = "d"
	IndJ            = "j"
	IndCCI          = "cci"
	IndMASlope      = "ma_slope"
	IndLimitUps     = "limit_up_count"
	IndOpenedLimits = "opened_limit_count"
	IndPeerScore    = "peer_limit_up_score"
)

// MultifactorStrategy is the thirty-day multi-factor model
type MultifactorStrategy struct {
	cfg       strategyconfig.Multifactor
	feeds     Feeds
	flow      *FlowCalculator
	sentiment *SentimentCalculator
	technical *TechnicalCalculator
	limitUp   *LimitUpCalculator
	logger    *logger.Logger
}

// NewMultifactorStrategy creates the multi-factor strategy
func NewMultifactorStrategy(cfg strategyconfig.Multifactor, feeds Feeds, log *logger.Logger) *MultifactorStrategy {
	log = log.WithField("strategy", strategyconfig.StrategyMultifactor)
	return &MultifactorStrategy{
		cfg:       cfg,
		feeds:     feeds,
		flow:      NewFlowCalculator(cfg.Flow, log),
		sentiment: NewSentimentCalculator(cfg.Sentiment, cfg.Neutral, log),
		technical: NewTechnicalCalculator(cfg.Technical, log),
		limitUp:   NewLimitUpCalculator(cfg.LimitUp, cfg.Neutral, log),
		logger:    log,
	}
}

// Name returns "multifactor"
func (s *MultifactorStrategy) Name() string {
	return strategyconfig.StrategyMultifactor
}

// MinRows returns 3
func (s *MultifactorStrategy) MinRows() int {
	return 3
}

// Evaluate scores the trailing window; auxiliary feed failures fall back to the neutral score
func (s *MultifactorStrategy) Evaluate(ctx context.Context, symbol string, series *contracts.BarSeries) (contracts.Breakdown, error) {
	var b contracts.Breakdown
	window := series.Tail(s.cfg.LookbackDays)
	if window.Len() < s.MinRows() {
		return b, ErrInsufficientData
	}

	bars := window.Bars
	today := bars[len(bars)-1]
	prev := bars[len(bars)-2]
	if prev.Close == 0 {
		return b, errors.New("previous close is zero")
	}

	// 1. 가격 변동 / 회전율: 3%에서 최고점인 비선형 점수
	priceChange := (today.Close - prev.Close) / prev.Close * 100
	priceScore := 100 / (1 + math.Abs(priceChange-3))
	turnoverScore := 100 / (1 + math.Abs(today.TurnoverRate-3))

	// 2. 자금흐름
	flowScore := s.cfg.Neutral
	if days := s.fundFlow(ctx, symbol); len(days) > 0 {
		if v, d, ok := s.flow.Calculate(ctx, symbol, days); ok {
			flowScore = v
			addFinite(&b, IndMainInflow, d.MainNetInflow)
			addFinite(&b, IndBigOrder, d.BigOrderRatio)
			addFinite(&b, IndInflowSlope, d.InflowSlope)
		}
	}

	// 3. 인기도
	sentimentScore := s.cfg.Neutral
	ranks, fans := s.hotRank(ctx, symbol), s.fanProfile(ctx, symbol)
	if v, d, ok := s.sentiment.Calculate(ctx, symbol, ranks, fans); ok {
		sentimentScore = v
		if len(ranks) > 0 {
			addFinite(&b, IndRank, d.Rank)
			addFinite(&b, IndRankSlope, d.RankSlope)
		}
		if len(fans) > 0 {
			addFinite(&b, IndNewFans, d.NewFans)
			addFinite(&b, IndLoyalFans, d.LoyalFans)
		}
	}

	// 4. 기술적 지표
	techScore, td := s.technical.Calculate(ctx, symbol, window)
	addFinite(&b, IndDIF, td.MACD.DIF)
	addFinite(&b, IndDEA, td.MACD.DEA)
	addFinite(&b, IndMACD, td.MACD.Hist)
	addFinite(&b, IndK, td.KDJ.K)
	addFinite(&b, IndD, td.KDJ.D)
	addFinite(&b, IndJ, td.KDJ.J)
	addFinite(&b, IndCCI, td.CCI)
	addFinite(&b, IndMASlope, td.MASlope)

	// 5. 상한가 이력 (자신 + 관련 종목)
	limitScore, ld := s.limitUp.Calculate(ctx, window, s.relatedSymbols(ctx, symbol), s.feeds.Peers)
	b.AddIndicator(IndLimitUps, float64(ld.Own.Hits))
	b.AddIndicator(IndOpenedLimits, float64(ld.Own.Opened))
	b.AddIndicator(IndPeerScore, Round2(ld.PeerScore))

	w := s.cfg.Weights
	b.Composite = priceScore*w.Price +
		turnoverScore*w.Turnover +
		flowScore*w.Flow +
		sentimentScore*w.Sentiment +
		limitScore*w.LimitUp +
		techScore*w.Technical

	b.AddScore(ScorePrice, Round2(priceScore))
	b.AddScore(ScoreTurnover, Round2(turnoverScore))
	b.AddScore(ScoreFlow, Round2(flowScore))
	b.AddScore(ScoreSentiment, Round2(sentimentScore))
	b.AddScore(ScoreTechnical, Round2(techScore))
	b.AddScore(ScoreLimitUp, Round2(limitScore))

	b.Indicators = append([]contracts.Factor{
		{Name: IndPriceChange, Value: Round2(priceChange)},
		{Name: IndTurnover, Value: Round2(today.TurnoverRate)},
	}, b.Indicators...)

	return b, nil
}

func (s *MultifactorStrategy) fundFlow(ctx context.Context, symbol string) []contracts.FundFlowDay {
	if s.feeds.FundFlow == nil {
		return nil
	}
	days, err := s.feeds.FundFlow.FundFlow(ctx, symbol)
	if err != nil {
		s.feedFailed(symbol, "fund_flow", err)
		return nil
	}
	return tail(days, s.cfg.LookbackDays)
}

func (s *MultifactorStrategy) hotRank(ctx context.Context, symbol string) []contracts.HotRankDay {
	if s.feeds.Sentiment == nil {
		return nil
	}
	days, err := s.feeds.Sentiment.HotRank(ctx, symbol)
	if err != nil {
		s.feedFailed(symbol, "hot_rank", err)
		return nil
	}
	return tail(days, s.cfg.LookbackDays)
}

func (s *MultifactorStrategy) fanProfile(ctx context.Context, symbol string) []contracts.FanDay {
	if s.feeds.Sentiment == nil {
		return nil
	}
	days, err := s.feeds.Sentiment.FanProfile(ctx, symbol)
	if err != nil {
		s.feedFailed(symbol, "fan_profile", err)
		return nil
	}
	return tail(days, s.cfg.LookbackDays)
}

func (s *MultifactorStrategy) relatedSymbols(ctx context.Context, symbol string) []string {
	if s.feeds.Sentiment == nil {
		return nil
	}
	peers, err := s.feeds.Sentiment.RelatedSymbols(ctx, symbol)
	if err != nil {
		s.feedFailed(symbol, "related", err)
		return nil
	}
	return peers
}

// feedFailed logs an auxiliary feed failure; the run continues with the neutral score
func (s *MultifactorStrategy) feedFailed(symbol, feed string, err error) {
	s.logger.WithFields(map[string]interface{}{
		"code":  symbol,
		"feed":  feed,
		"error": err.Error(),
	}).Warn("Auxiliary feed failed, using neutral score")
}

func tail[T any](items []T, n int) []T {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

func addFinite(b *contracts.Breakdown, name string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	b.AddIndicator(name, Round2(v))
}
