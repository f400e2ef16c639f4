package quality

import (
	"sort"

	"github.com/wonny/fundflow/internal/contracts"
)

// Config holds per-column coverage thresholds (0.0 - 1.0)
type Config struct {
	MinDateCoverage  float64
	MinCloseCoverage float64
	MinFlowCoverage  float64 // applied to each *_net_flow / net_flow_amount column
}

// DefaultConfig returns the thresholds used by the CLI
func DefaultConfig() Config {
	return Config{
		MinDateCoverage:  1.0,
		MinCloseCoverage: 0.95,
		MinFlowCoverage:  0.90,
	}
}

// Snapshot is the coverage of one normalized batch
type Snapshot struct {
	Rows         int                `json:"rows"`
	Coverage     map[string]float64 `json:"coverage"` // column → non-missing ratio
	QualityScore float64            `json:"quality_score"`
	BelowMinimum []string           `json:"below_minimum,omitempty"`
}

// QualityGate measures how complete a normalized batch is.
// It only reports: rows with missing values are never dropped.
// ⭐ SSOT: S0 품질 측정은 여기서만
type QualityGate struct {
	config Config
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config Config) *QualityGate {
	return &QualityGate{config: config}
}

// Check computes column coverage and the weighted score for rows
func (g *QualityGate) Check(rows []contracts.FundFlow) *Snapshot {
	snapshot := &Snapshot{
		Rows:     len(rows),
		Coverage: make(map[string]float64, len(contracts.FundFlowNumericFields)+1),
	}
	if len(rows) == 0 {
		return snapshot
	}

	// 1. 컬럼별 커버리지
	dated := 0
	present := make(map[string]int, len(contracts.FundFlowNumericFields))
	for i := range rows {
		if rows[i].Date != nil {
			dated++
		}
		for _, name := range contracts.FundFlowNumericFields {
			if rows[i].Numeric(name).Valid {
				present[name]++
			}
		}
	}

	total := float64(len(rows))
	snapshot.Coverage["date"] = float64(dated) / total
	for _, name := range contracts.FundFlowNumericFields {
		snapshot.Coverage[name] = float64(present[name]) / total
	}

	// 2. 임계값 미달 컬럼
	for column, cov := range snapshot.Coverage {
		if cov < g.minimum(column) {
			snapshot.BelowMinimum = append(snapshot.BelowMinimum, column)
		}
	}
	sort.Strings(snapshot.BelowMinimum)

	// 3. 품질 점수
	snapshot.QualityScore = g.calculateScore(snapshot.Coverage)

	return snapshot
}

func (g *QualityGate) minimum(column string) float64 {
	switch column {
	case "date":
		return g.config.MinDateCoverage
	case "close":
		return g.config.MinCloseCoverage
	case "pct_change", "turnover_rate":
		return 0
	default:
		return g.config.MinFlowCoverage
	}
}

// calculateScore calculates overall quality score using weighted average
func (g *QualityGate) calculateScore(coverage map[string]float64) float64 {
	// 가중치 (합계 = 1.0)
	weights := map[string]float64{
		"date":                  0.25, // 날짜 없으면 시계열로 못 씀
		"close":                 0.15,
		"pct_change":            0.05,
		"turnover_rate":         0.05,
		"net_flow_amount":       0.10,
		"main_net_flow":         0.15, // 주력
		"super_large_net_flow":  0.10,
		"large_net_flow":        0.10,
		"medium_small_net_flow": 0.05,
	}

	score := 0.0
	for key, weight := range weights {
		if cov, exists := coverage[key]; exists {
			score += cov * weight
		}
	}

	return score
}
