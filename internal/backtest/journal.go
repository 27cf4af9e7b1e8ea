package backtest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/s0_data"
	"github.com/wonny/limitup/pkg/logger"
)

const (
	daySuffix  = "_buy_sell_profit.csv"
	mergedFile = "all_buy_sell_profit.csv"
)

var dayFilePattern = regexp.MustCompile(`^\d{8}` + regexp.QuoteMeta(daySuffix) + `$`)

// csvDay renders dates as 2006-01-02
type csvDay time.Time

func (d csvDay) MarshalCSV() (string, error) {
	return time.Time(d).Format("2006-01-02"), nil
}

func (d *csvDay) UnmarshalCSV(s string) error {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	*d = csvDay(t)
	return nil
}

// profitRow is one line of a per-date file; TotalReturn is set on the final row only
type profitRow struct {
	FilterDate  csvDay   `csv:"filter_date"`
	Symbol      string   `csv:"symbol"`
	BuyDate     csvDay   `csv:"buy_date"`
	BuyOpen     float64  `csv:"buy_open"`
	SellDate    csvDay   `csv:"sell_date"`
	SellClose   float64  `csv:"sell_close"`
	Return      float64  `csv:"return"`
	TotalReturn *float64 `csv:"total_return,omitempty"`
}

// mergedRow adds the grand total, set on the final row of the merged file only
type mergedRow struct {
	FilterDate       csvDay   `csv:"filter_date"`
	Symbol           string   `csv:"symbol"`
	BuyDate          csvDay   `csv:"buy_date"`
	BuyOpen          float64  `csv:"buy_open"`
	SellDate         csvDay   `csv:"sell_date"`
	SellClose        float64  `csv:"sell_close"`
	Return           float64  `csv:"return"`
	TotalReturn      *float64 `csv:"total_return,omitempty"`
	GrandTotalReturn *float64 `csv:"grand_total_return,omitempty"`
}

func toProfitRow(e contracts.BacktestEntry) profitRow {
	return profitRow{
		FilterDate: csvDay(e.FilterDate),
		Symbol:     e.Symbol,
		BuyDate:    csvDay(e.BuyDate),
		BuyOpen:    e.BuyOpen,
		SellDate:   csvDay(e.SellDate),
		SellClose:  e.SellClose,
		Return:     e.Return,
	}
}

func (r profitRow) entry() contracts.BacktestEntry {
	return contracts.BacktestEntry{
		FilterDate: time.Time(r.FilterDate),
		Symbol:     r.Symbol,
		BuyDate:    time.Time(r.BuyDate),
		BuyOpen:    r.BuyOpen,
		SellDate:   time.Time(r.SellDate),
		SellClose:  r.SellClose,
		Return:     r.Return,
	}
}

// DateTotal is the recomputed total for one filter date
type DateTotal struct {
	FilterDate  time.Time `json:"filter_date"`
	Entries     int       `json:"entries"`
	TotalReturn float64   `json:"total_return"`
}

// MergeResult summarizes a merge of per-date files
type MergeResult struct {
	Path       string      `json:"path"`
	Dates      []DateTotal `json:"dates"`
	GrandTotal float64     `json:"grand_total_return"`
}

// Journal persists per-date backtest files and merges them
// ⭐ SSOT: 백테스트 결과 파일 형식은 여기서만
type Journal struct {
	dir    string
	logger *logger.Logger
}

// NewJournal creates a journal rooted at dir
func NewJournal(dir string, log *logger.Logger) *Journal {
	return &Journal{
		dir:    dir,
		logger: log.WithField("module", "backtest_journal"),
	}
}

// Dir returns the output directory
func (j *Journal) Dir() string {
	return j.dir
}

// DayPath returns the file path for a filter date
func (j *Journal) DayPath(filterDate time.Time) string {
	return filepath.Join(j.dir, filterDate.Format(contracts.DateLayout)+daySuffix)
}

// MergedPath returns the combined file path
func (j *Journal) MergedPath() string {
	return filepath.Join(j.dir, mergedFile)
}

// WriteDay persists one simulated day. Floats are written in shortest
// round-trip form so a later merge reproduces the live totals exactly.
func (j *Journal) WriteDay(day contracts.DayResult) (string, error) {
	rows := make([]profitRow, len(day.Entries))
	for i, e := range day.Entries {
		rows[i] = toProfitRow(e)
	}
	if n := len(rows); n > 0 {
		total := day.TotalReturn
		rows[n-1].TotalReturn = &total
	}

	data, err := gocsv.MarshalBytes(rows)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", day.FilterDate.Format(contracts.DateLayout), err)
	}

	path := j.DayPath(day.FilterDate)
	if err := s0_data.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}

	j.logger.WithFields(map[string]interface{}{
		"filter_date":  day.FilterDate.Format(contracts.DateLayout),
		"entries":      len(rows),
		"total_return": day.TotalReturn,
		"path":         path,
	}).Debug("Saved backtest day")

	return path, nil
}

// ReadDay loads the entries persisted for a filter date, in file row order
func (j *Journal) ReadDay(filterDate time.Time) ([]contracts.BacktestEntry, error) {
	path := j.DayPath(filterDate)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	var rows []profitRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		// 빈 파일은 진입 종목 없음으로 취급
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	entries := make([]contracts.BacktestEntry, len(rows))
	for i, r := range rows {
		entries[i] = r.entry()
	}
	return entries, nil
}

// Dates lists the filter dates that have a per-date file, ascending
func (j *Journal) Dates() ([]time.Time, error) {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backtest dir: %w", err)
	}

	var dates []time.Time
	for _, e := range entries {
		if e.IsDir() || !dayFilePattern.MatchString(e.Name()) {
			continue
		}
		d, err := time.Parse(contracts.DateLayout, strings.TrimSuffix(e.Name(), daySuffix))
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	sortDates(dates)
	return dates, nil
}

// Merge unions the per-date files for dates (all persisted dates when empty),
// recomputes each date's total in file row order and the grand total in date order,
// and writes the combined file.
func (j *Journal) Merge(dates []time.Time) (*MergeResult, error) {
	if len(dates) == 0 {
		found, err := j.Dates()
		if err != nil {
			return nil, err
		}
		dates = found
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("no backtest files in %s", j.dir)
	}

	dates = uniqueDates(dates)
	result := &MergeResult{Path: j.MergedPath()}
	var rows []mergedRow

	for _, d := range dates {
		entries, err := j.ReadDay(d)
		if err != nil {
			return nil, err
		}

		total := contracts.SumReturns(entries)
		result.Dates = append(result.Dates, DateTotal{FilterDate: d, Entries: len(entries), TotalReturn: total})
		result.GrandTotal += total

		for _, e := range entries {
			r := toProfitRow(e)
			rows = append(rows, mergedRow{
				FilterDate: r.FilterDate,
				Symbol:     r.Symbol,
				BuyDate:    r.BuyDate,
				BuyOpen:    r.BuyOpen,
				SellDate:   r.SellDate,
				SellClose:  r.SellClose,
				Return:     r.Return,
			})
		}
		if n := len(rows); len(entries) > 0 {
			t := total
			rows[n-1].TotalReturn = &t
		}
	}

	if n := len(rows); n > 0 {
		g := result.GrandTotal
		rows[n-1].GrandTotalReturn = &g
	}

	data, err := gocsv.MarshalBytes(rows)
	if err != nil {
		return nil, fmt.Errorf("encode merged file: %w", err)
	}
	if err := s0_data.WriteFileAtomic(result.Path, data); err != nil {
		return nil, fmt.Errorf("write merged file: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"dates":              len(dates),
		"rows":               len(rows),
		"grand_total_return": result.GrandTotal,
		"path":               result.Path,
	}).Info("Merged backtest files")

	return result, nil
}

func sortDates(dates []time.Time) {
	sort.Slice(dates, func(i, k int) bool { return dates[i].Before(dates[k]) })
}

// uniqueDates returns a sorted, deduplicated copy
func uniqueDates(dates []time.Time) []time.Time {
	out := make([]time.Time, 0, len(dates))
	seen := make(map[time.Time]bool, len(dates))
	for _, d := range dates {
		d = dateOnly(d)
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sortDates(out)
	return out
}
