package audit

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wonny/limitup/internal/contracts"
	"github.com/wonny/limitup/internal/s0_data"
	"github.com/wonny/limitup/internal/strategyconfig"
	"github.com/wonny/limitup/pkg/logger"
)

// Report labels
const (
	LabelSymbol      = "symbol"
	LabelName        = "name"
	LabelDate        = "date"
	LabelStrategy    = "strategy"
	LabelProbability = "probability"
	LabelTier        = "risk_tier"
	LabelStatus      = "status"
	LabelComposite   = "composite"
	LabelStrategyID  = "strategy_id"
	LabelConfigHash  = "config_hash"
)

// Reporter writes one plain-text analysis report per (symbol, date)
// ⭐ SSOT: 분석 리포트 파일 형식은 여기서만
type Reporter struct {
	dir      string
	snapshot *strategyconfig.DecisionSnapshot
	logger   *logger.Logger
}

// NewReporter creates a reporter writing into dir
func NewReporter(dir string, logger *logger.Logger) *Reporter {
	return &Reporter{
		dir:    dir,
		logger: logger.WithField("module", "audit_report"),
	}
}

// WithSnapshot stamps every report with the strategy config provenance
func (r *Reporter) WithSnapshot(s *strategyconfig.DecisionSnapshot) *Reporter {
	r.snapshot = s
	return r
}

// Path returns the report path for a symbol and its evaluation date
func (r *Reporter) Path(res contracts.ScoreResult) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s_%s_analysis.txt", res.Symbol, res.Date.Format(contracts.DateLayout)))
}

// Write renders res as "label: value" lines and replaces any previous report for the same key
func (r *Reporter) Write(res contracts.ScoreResult) (string, error) {
	path := r.Path(res)
	if err := s0_data.WriteFileAtomic(path, Render(res, r.snapshot)); err != nil {
		return "", fmt.Errorf("write report %s: %w", filepath.Base(path), err)
	}

	r.logger.WithFields(map[string]interface{}{
		"symbol": res.Symbol,
		"path":   path,
	}).Debug("Wrote analysis report")

	return path, nil
}

// Render formats a report; scores and indicators follow the breakdown order
func Render(res contracts.ScoreResult, snapshot *strategyconfig.DecisionSnapshot) []byte {
	var b bytes.Buffer
	line := func(label, value string) {
		fmt.Fprintf(&b, "%s: %s\n", label, value)
	}

	line(LabelSymbol, res.Symbol)
	line(LabelName, res.Name)
	line(LabelDate, res.Date.Format("2006-01-02"))
	line(LabelStrategy, res.Strategy)
	line(LabelProbability, formatFloat(res.Probability))
	line(LabelTier, string(res.Tier))
	line(LabelStatus, res.Status)
	line(LabelComposite, formatFloat(res.Breakdown.Composite))

	for _, f := range res.Breakdown.Scores {
		line(f.Name, formatFloat(f.Value))
	}
	for _, f := range res.Breakdown.Indicators {
		line(f.Name, formatFloat(f.Value))
	}

	if snapshot != nil {
		line(LabelStrategyID, snapshot.StrategyID)
		line(LabelConfigHash, snapshot.ConfigHash)
	}

	return b.Bytes()
}

// ReadReport parses a report file back into label → value
func ReadReport(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	out := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		label, value, ok := strings.Cut(sc.Text(), ": ")
		if !ok {
			continue
		}
		out[label] = value
	}
	return out, sc.Err()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
