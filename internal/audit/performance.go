package audit

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/wonny/limitup/internal/contracts"
)

// PerformanceReport summarizes a backtest run
type PerformanceReport struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Days      int       `json:"days"`
	Trades    int       `json:"trades"`
	Skipped   int       `json:"skipped"`

	// 수익률 (단순 합산, 파일 총계와 동일 규칙)
	TotalReturn float64 `json:"total_return"`
	AvgDaily    float64 `json:"avg_daily_return"`
	BestDay     float64 `json:"best_day"`
	WorstDay    float64 `json:"worst_day"`

	// 리스크 지표
	Volatility  float64 `json:"volatility"` // std-dev of daily totals
	MaxDrawdown float64 `json:"max_drawdown"`
	VaR95       float64 `json:"var_95"`  // historical, loss as a positive number
	CVaR95      float64 `json:"cvar_95"` // mean of the tail at or below VaR

	// 트레이딩 지표
	WinRate      float64 `json:"win_rate"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	ProfitFactor float64 `json:"profit_factor"`
}

// Analyze computes a performance report over simulated days.
// Days are taken in the given order; the total matches the merged grand total
// when days are in ascending filter-date order.
// ⭐ SSOT: 백테스트 성과 분석 로직은 여기서만
func Analyze(days []contracts.DayResult) *PerformanceReport {
	report := &PerformanceReport{Days: len(days)}
	if len(days) == 0 {
		return report
	}

	report.StartDate = days[0].FilterDate
	report.EndDate = days[len(days)-1].FilterDate

	daily := make([]float64, len(days))
	var trades []contracts.BacktestEntry
	for i, d := range days {
		daily[i] = d.TotalReturn
		report.TotalReturn += d.TotalReturn
		report.Skipped += len(d.Skipped)
		trades = append(trades, d.Entries...)
	}
	report.Trades = len(trades)

	report.AvgDaily = report.TotalReturn / float64(len(days))
	report.BestDay, report.WorstDay = bestWorst(daily)
	report.Volatility = volatility(daily)
	report.MaxDrawdown = maxDrawdown(daily)
	report.VaR95, report.CVaR95 = historicalVaR(daily, 0.95)

	report.WinRate = winRate(trades)
	report.AvgWin, report.AvgLoss = avgWinLoss(trades)
	report.ProfitFactor = profitFactor(trades)

	return report
}

// bestWorst returns the largest and smallest values
func bestWorst(xs []float64) (float64, float64) {
	hi, lo := xs[0], xs[0]
	for _, x := range xs[1:] {
		hi = math.Max(hi, x)
		lo = math.Min(lo, x)
	}
	return hi, lo
}

// volatility is the sample standard deviation
func volatility(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}

	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var variance float64
	for _, x := range xs {
		diff := x - mean
		variance += diff * diff
	}
	variance /= float64(len(xs) - 1)

	return math.Sqrt(variance)
}

// maxDrawdown is the largest peak-to-trough drop of the running sum (<= 0)
func maxDrawdown(daily []float64) float64 {
	cum, peak, maxDD := 0.0, 0.0, 0.0
	for _, r := range daily {
		cum += r
		if cum > peak {
			peak = cum
		}
		if dd := cum - peak; dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// historicalVaR returns VaR and CVaR of the daily totals at the given confidence
func historicalVaR(daily []float64, confidence float64) (float64, float64) {
	if len(daily) == 0 {
		return 0, 0
	}

	// 오름차순: 손실이 앞에
	sorted := append([]float64(nil), daily...)
	sort.Float64s(sorted)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	var tail float64
	for _, r := range sorted[:idx+1] {
		tail += r
	}
	tail /= float64(idx + 1)

	return math.Max(0, -sorted[idx]), math.Max(0, -tail)
}

func winRate(trades []contracts.BacktestEntry) float64 {
	if len(trades) == 0 {
		return 0
	}

	wins := 0
	for _, t := range trades {
		if t.Return > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}

func avgWinLoss(trades []contracts.BacktestEntry) (float64, float64) {
	var sumWin, sumLoss float64
	var countWin, countLoss int

	for _, t := range trades {
		if t.Return > 0 {
			sumWin += t.Return
			countWin++
		} else if t.Return < 0 {
			sumLoss += t.Return
			countLoss++
		}
	}

	avgWin := 0.0
	if countWin > 0 {
		avgWin = sumWin / float64(countWin)
	}
	avgLoss := 0.0
	if countLoss > 0 {
		avgLoss = sumLoss / float64(countLoss)
	}
	return avgWin, avgLoss
}

// profitFactor is gross gain over gross loss; 0 when there are no losses
func profitFactor(trades []contracts.BacktestEntry) float64 {
	var totalWin, totalLoss float64
	for _, t := range trades {
		if t.Return > 0 {
			totalWin += t.Return
		} else if t.Return < 0 {
			totalLoss += math.Abs(t.Return)
		}
	}

	if totalLoss == 0 {
		return 0
	}
	return totalWin / totalLoss
}

// ToSummary renders the report for the terminal
func (r *PerformanceReport) ToSummary() string {
	var b strings.Builder

	if r.Days == 0 {
		b.WriteString("=== Backtest Performance ===\nNo simulated days\n")
		return b.String()
	}

	fmt.Fprintf(&b, "=== Backtest Performance (%s ~ %s) ===\n",
		r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "Days: %d  Trades: %d  Skipped: %d\n\n", r.Days, r.Trades, r.Skipped)

	b.WriteString("📊 Returns\n")
	fmt.Fprintf(&b, "  Total: %.4f (%.2f%%)\n", r.TotalReturn, r.TotalReturn*100)
	fmt.Fprintf(&b, "  Avg Daily: %.4f\n", r.AvgDaily)
	fmt.Fprintf(&b, "  Best Day: %.4f  Worst Day: %.4f\n\n", r.BestDay, r.WorstDay)

	b.WriteString("⚠️ Risk\n")
	fmt.Fprintf(&b, "  Volatility: %.4f\n", r.Volatility)
	fmt.Fprintf(&b, "  Max Drawdown: %.4f (%.2f%%)\n", r.MaxDrawdown, r.MaxDrawdown*100)
	fmt.Fprintf(&b, "  VaR(95%%): %.4f  CVaR(95%%): %.4f\n\n", r.VaR95, r.CVaR95)

	b.WriteString("🎯 Trades\n")
	fmt.Fprintf(&b, "  Win Rate: %.2f%%\n", r.WinRate*100)
	fmt.Fprintf(&b, "  Avg Win: %.4f  Avg Loss: %.4f\n", r.AvgWin, r.AvgLoss)
	fmt.Fprintf(&b, "  Profit Factor: %.2f\n", r.ProfitFactor)

	return b.String()
}
