package s0_data

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/fundflow/internal/contracts"
)

var (
	// ErrNoRecords means there was nothing to normalize (nothing to persist)
	ErrNoRecords = errors.New("no raw records")

	// ErrSchemaMismatch means none of the mapped source fields appeared in the records
	ErrSchemaMismatch = errors.New("none of the expected fields present")
)

// ColumnMap renames one source field to its canonical name
type ColumnMap struct {
	Source string
	Target string
}

// ColumnMapping is an ordered source → canonical rename table
type ColumnMapping []ColumnMap

// DefaultColumnMapping returns the Sina money-flow field mapping
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		{Source: "opendate", Target: "date"},
		{Source: "trade", Target: "close"},
		{Source: "changeratio", Target: "pct_change"},
		{Source: "turnover", Target: "turnover_rate"},
		{Source: "netamount", Target: "net_flow_amount"},
		{Source: "r0_net", Target: "main_net_flow"},
		{Source: "r1_net", Target: "super_large_net_flow"},
		{Source: "r2_net", Target: "large_net_flow"},
		{Source: "r3_net", Target: "medium_small_net_flow"},
	}
}

// Validate checks that every target is a known canonical column
func (m ColumnMapping) Validate() error {
	var probe contracts.FundFlow
	seen := make(map[string]bool, len(m))
	for _, c := range m {
		if c.Target != "date" && probe.Numeric(c.Target) == nil {
			return fmt.Errorf("unknown canonical column %q for source %q", c.Target, c.Source)
		}
		if seen[c.Target] {
			return fmt.Errorf("canonical column %q mapped twice", c.Target)
		}
		seen[c.Target] = true
	}
	return nil
}

// DefaultDateLayouts returns the date layouts tried in order on the date column
func DefaultDateLayouts() []string {
	return []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006/01/02",
		"20060102",
	}
}

// Normalizer projects, renames and coerces raw records
// ⭐ SSOT: 원시 레코드 정제는 여기서만
type Normalizer struct {
	mapping ColumnMapping
	layouts []string
}

// NewNormalizer creates a normalizer for the given mapping and date layouts
func NewNormalizer(mapping ColumnMapping, layouts []string) (*Normalizer, error) {
	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	if len(layouts) == 0 {
		return nil, errors.New("at least one date layout is required")
	}
	return &Normalizer{
		mapping: mapping,
		layouts: append([]string(nil), layouts...),
	}, nil
}

// Present returns the mapping entries whose source field appears in at least one record
func (n *Normalizer) Present(records []contracts.RawRecord) ColumnMapping {
	var present ColumnMapping
	for _, c := range n.mapping {
		for _, r := range records {
			if _, ok := r[c.Source]; ok {
				present = append(present, c)
				break
			}
		}
	}
	return present
}

// Normalize converts raw records into FundFlow rows sorted by date (nil dates last).
// Unparseable dates and numbers become missing values; the row is kept.
// The symbol is attached verbatim and never coerced.
func (n *Normalizer) Normalize(records []contracts.RawRecord, symbol string) ([]contracts.FundFlow, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	present := n.Present(records)
	if len(present) == 0 {
		return nil, ErrSchemaMismatch
	}

	rows := make([]contracts.FundFlow, 0, len(records))
	for _, r := range records {
		row := contracts.FundFlow{Code: symbol}
		for _, c := range present {
			value, ok := r[c.Source]
			if !ok {
				continue
			}
			if c.Target == "date" {
				row.Date = ParseDate(value, n.layouts)
				continue
			}
			*row.Numeric(c.Target) = ParseDecimal(value)
		}
		rows = append(rows, row)
	}

	SortByDate(rows)
	return rows, nil
}

// ParseDate parses a calendar date with the first matching layout; nil when none matches
func ParseDate(s string, layouts []string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// ParseDecimal parses a number; invalid NullDecimal when it cannot
func ParseDecimal(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// SortByDate sorts ascending by date, stable, nil dates last
func SortByDate(rows []contracts.FundFlow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Date, rows[j].Date
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.Before(*b)
	})
}

// Summary describes a normalized set for the end-of-run report
type Summary struct {
	Count     int        `json:"count"`
	MinDate   *time.Time `json:"min_date,omitempty"`
	MaxDate   *time.Time `json:"max_date,omitempty"`
	NullDates int        `json:"null_dates"`
}

// Summarize computes count and date range
func Summarize(rows []contracts.FundFlow) Summary {
	s := Summary{Count: len(rows)}
	for _, r := range rows {
		if r.Date == nil {
			s.NullDates++
			continue
		}
		if s.MinDate == nil || r.Date.Before(*s.MinDate) {
			d := *r.Date
			s.MinDate = &d
		}
		if s.MaxDate == nil || r.Date.After(*s.MaxDate) {
			d := *r.Date
			s.MaxDate = &d
		}
	}
	return s
}
