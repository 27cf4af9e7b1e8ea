package s0_data

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/pkg/logger"
)

// ErrCacheMiss is returned when no file exists for a CacheKey
var ErrCacheMiss = errors.New("cache miss")

// Store persists validated bar series as CSV files keyed by CacheKey
// ⭐ SSOT: 캐시 파일 읽기/쓰기는 이 저장소에서만
type Store struct {
	dir    string
	logger *logger.Logger
}

// NewStore creates a store rooted at dir (created lazily on first write)
func NewStore(dir string, log *logger.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: log.WithField("module", "store"),
	}
}

// Dir returns the root directory
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path for a key
func (s *Store) Path(key contracts.CacheKey) string {
	return filepath.Join(s.dir, key.FileName())
}

// csvDate renders dates as 2006-01-02
type csvDate time.Time

func (d csvDate) MarshalCSV() (string, error) {
	return time.Time(d).Format("2006-01-02"), nil
}

func (d *csvDate) UnmarshalCSV(s string) error {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	*d = csvDate(t)
	return nil
}

// barRow is the on-disk row; field order is the column order
type barRow struct {
	Date         csvDate `csv:"date"`
	Open         float64 `csv:"open"`
	Close        float64 `csv:"close"`
	High         float64 `csv:"high"`
	Low          float64 `csv:"low"`
	Volume       float64 `csv:"volume"`
	Amount       float64 `csv:"amount"`
	Amplitude    float64 `csv:"amplitude"`
	PctChange    float64 `csv:"pct_change"`
	ChangeAmount float64 `csv:"change_amount"`
	TurnoverRate float64 `csv:"turnover_rate"`
}

func toRows(bars []contracts.DailyBar) []barRow {
	rows := make([]barRow, len(bars))
	for i, b := range bars {
		rows[i] = barRow{
			Date:         csvDate(b.Date),
			Open:         b.Open,
			Close:        b.Close,
			High:         b.High,
			Low:          b.Low,
			Volume:       b.Volume,
			Amount:       b.Amount,
			Amplitude:    b.Amplitude,
			PctChange:    b.PctChange,
			ChangeAmount: b.ChangeAmount,
			TurnoverRate: b.TurnoverRate,
		}
	}
	return rows
}

func fromRows(rows []barRow) []contracts.DailyBar {
	bars := make([]contracts.DailyBar, len(rows))
	for i, r := range rows {
		bars[i] = contracts.DailyBar{
			Date:         time.Time(r.Date),
			Open:         r.Open,
			Close:        r.Close,
			High:         r.High,
			Low:          r.Low,
			Volume:       r.Volume,
			Amount:       r.Amount,
			Amplitude:    r.Amplitude,
			PctChange:    r.PctChange,
			ChangeAmount: r.ChangeAmount,
			TurnoverRate: r.TurnoverRate,
		}
	}
	return bars
}

// Save writes the series under key and returns the file path.
// The file is written to a temp name and renamed, so readers never see a partial file.
func (s *Store) Save(key contracts.CacheKey, series *contracts.BarSeries) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	data, err := gocsv.MarshalBytes(toRows(series.Bars))
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", key.Symbol, err)
	}

	path := s.Path(key)
	if err := WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("write %s: %w", key.Symbol, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"symbol": key.Symbol,
		"rows":   len(series.Bars),
		"path":   path,
	}).Debug("Saved series")

	return path, nil
}

// Load reads the series for key; a missing file is ErrCacheMiss
func (s *Store) Load(key contracts.CacheKey) (*contracts.BarSeries, error) {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key.FileName())
		}
		return nil, fmt.Errorf("read %s: %w", key.Symbol, err)
	}

	var rows []barRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key.FileName(), err)
	}

	return &contracts.BarSeries{
		Symbol: key.Symbol,
		Name:   key.Name,
		Bars:   fromRows(rows),
	}, nil
}

// Exists reports whether a file is cached for key
func (s *Store) Exists(key contracts.CacheKey) bool {
	_, err := os.Stat(s.Path(key))
	return err == nil
}

// Usage summarizes the cache directory
type Usage struct {
	Files []string `json:"files"`
	Bytes int64    `json:"bytes"`
}

// KB returns the size in kibibytes
func (u Usage) KB() float64 { return float64(u.Bytes) / 1024 }

// MB returns the size in mebibytes
func (u Usage) MB() float64 { return u.KB() / 1024 }

// GB returns the size in gibibytes
func (u Usage) GB() float64 { return u.MB() / 1024 }

// Usage lists cached files and their total size
func (s *Store) Usage() (Usage, error) {
	var u Usage

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return u, nil
		}
		return u, fmt.Errorf("read data dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return u, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		u.Files = append(u.Files, e.Name())
		u.Bytes += info.Size()
	}
	sort.Strings(u.Files)

	return u, nil
}

// CachedSymbols returns the symbols that have a file for the given window
func (s *Store) CachedSymbols(start, end time.Time) ([]string, error) {
	u, err := s.Usage()
	if err != nil {
		return nil, err
	}

	suffix := fmt.Sprintf("_%s_%s.csv", start.Format(contracts.DateLayout), end.Format(contracts.DateLayout))
	var out []string
	for _, name := range u.Files {
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		if code, _, ok := strings.Cut(name, "_"); ok {
			out = append(out, code)
		}
	}
	return out, nil
}

// WriteFileAtomic writes data to a temp file in the target directory and renames it into place
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
