package s0_data

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundflow/internal/contracts"
)

func newNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := NewNormalizer(DefaultColumnMapping(), DefaultDateLayouts())
	require.NoError(t, err)
	return n
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalize_Scenario(t *testing.T) {
	raw := []contracts.RawRecord{
		{"opendate": "2023-01-03", "trade": "1680.00", "r0_net": "1000000"},
	}

	rows, err := newNormalizer(t).Normalize(raw, "sh.600519")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	require.NotNil(t, row.Date)
	assert.Equal(t, date(2023, 1, 3), *row.Date)
	assert.True(t, row.Close.Valid)
	assert.True(t, row.Close.Decimal.Equal(decimal.RequireFromString("1680.00")))
	assert.True(t, row.MainNetFlow.Valid)
	assert.True(t, row.MainNetFlow.Decimal.Equal(decimal.NewFromInt(1000000)))
	assert.Equal(t, "sh.600519", row.Code)

	// fields absent from the source stay missing
	assert.False(t, row.PctChange.Valid)
	assert.False(t, row.MediumSmallNetFlow.Valid)
}

func TestNormalize_BadDateKeepsRecord(t *testing.T) {
	raw := []contracts.RawRecord{
		{"opendate": "bad-date", "trade": "12.5", "changeratio": "-0.0123", "r1_net": "oops"},
	}

	rows, err := newNormalizer(t).Normalize(raw, "sz.000001")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Nil(t, rows[0].Date)
	assert.True(t, rows[0].Close.Decimal.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, rows[0].PctChange.Decimal.Equal(decimal.RequireFromString("-0.0123")))
	assert.False(t, rows[0].SuperLargeNetFlow.Valid, "unparseable number becomes missing")
}

func TestNormalize_Empty(t *testing.T) {
	rows, err := newNormalizer(t).Normalize(nil, "sh.600519")
	assert.ErrorIs(t, err, ErrNoRecords)
	assert.Empty(t, rows)
}

func TestNormalize_SchemaMismatch(t *testing.T) {
	raw := []contracts.RawRecord{
		{"symbol": "sh600519", "name": "贵州茅台"},
		{"foo": "bar"},
	}

	rows, err := newNormalizer(t).Normalize(raw, "sh.600519")
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.Empty(t, rows)
}

func TestNormalize_SortAscendingNullsLast(t *testing.T) {
	raw := []contracts.RawRecord{
		{"opendate": "2023-01-05", "trade": "5"},
		{"opendate": "garbage", "trade": "x1"},
		{"opendate": "2023-01-03", "trade": "3"},
		{"opendate": "2023-01-04", "trade": "4a"},
		{"opendate": "", "trade": "x2"},
		{"opendate": "2023-01-03", "trade": "3b"}, // duplicate date kept
	}

	rows, err := newNormalizer(t).Normalize(raw, "sh.600519")
	require.NoError(t, err)
	require.Len(t, rows, 6, "no dedup")

	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1].Date, rows[i].Date
		if prev == nil {
			assert.Nil(t, cur, "nil dates must be last")
			continue
		}
		if cur != nil {
			assert.False(t, cur.Before(*prev), "rows %d and %d out of order", i-1, i)
		}
	}

	assert.Equal(t, date(2023, 1, 3), *rows[0].Date)
	assert.Equal(t, date(2023, 1, 3), *rows[1].Date)
	assert.True(t, rows[0].Close.Decimal.Equal(decimal.NewFromInt(3)), "stable among equal dates")
	assert.False(t, rows[1].Close.Valid)
	assert.Nil(t, rows[4].Date)
	assert.Nil(t, rows[5].Date)
}

func TestNormalize_CodeNeverCoerced(t *testing.T) {
	raw := []contracts.RawRecord{{"opendate": "2023-01-03"}}

	rows, err := newNormalizer(t).Normalize(raw, "000001")
	require.NoError(t, err)
	assert.Equal(t, "000001", rows[0].Code, "leading zeros survive")
}

func TestNormalize_PartialFieldPresence(t *testing.T) {
	raw := []contracts.RawRecord{
		{"opendate": "2023-01-03", "netamount": "-2.5e6"},
		{"opendate": "2023-01-04", "r3_net": " 42 "},
	}

	rows, err := newNormalizer(t).Normalize(raw, "sh.600519")
	require.NoError(t, err)

	assert.True(t, rows[0].NetFlowAmount.Decimal.Equal(decimal.NewFromInt(-2500000)))
	assert.False(t, rows[0].MediumSmallNetFlow.Valid)
	assert.True(t, rows[1].MediumSmallNetFlow.Decimal.Equal(decimal.NewFromInt(42)))
	assert.False(t, rows[1].NetFlowAmount.Valid)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want *time.Time
	}{
		{"2023-01-03", ptr(date(2023, 1, 3))},
		{"2023-01-03 15:00:00", ptr(date(2023, 1, 3))},
		{"2023/01/03", ptr(date(2023, 1, 3))},
		{"20230103", ptr(date(2023, 1, 3))},
		{" 2023-01-03 ", ptr(date(2023, 1, 3))},
		{"2023-13-45", nil},
		{"bad-date", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseDate(tt.in, DefaultDateLayouts())
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestColumnMappingValidate(t *testing.T) {
	assert.NoError(t, DefaultColumnMapping().Validate())

	_, err := NewNormalizer(ColumnMapping{{Source: "x", Target: "volume"}}, DefaultDateLayouts())
	assert.Error(t, err)

	_, err = NewNormalizer(ColumnMapping{{Source: "a", Target: "close"}, {Source: "b", Target: "close"}}, DefaultDateLayouts())
	assert.Error(t, err)
}

func TestNormalize_DateLayoutsAreInjected(t *testing.T) {
	_, err := NewNormalizer(DefaultColumnMapping(), nil)
	assert.Error(t, err)

	n, err := NewNormalizer(DefaultColumnMapping(), []string{"02.01.2006"})
	require.NoError(t, err)

	rows, err := n.Normalize([]contracts.RawRecord{
		{"opendate": "03.01.2024"},
		{"opendate": "2024-01-02"},
	}, "sh.600519")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].Date)
	assert.Equal(t, date(2024, 1, 3), *rows[0].Date)
	assert.Nil(t, rows[1].Date, "layout not configured on this normalizer")
}

func TestSummarize(t *testing.T) {
	rows := []contracts.FundFlow{
		{Date: ptr(date(2023, 1, 3))},
		{Date: ptr(date(2023, 2, 1))},
		{Date: nil},
	}

	s := Summarize(rows)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 1, s.NullDates)
	assert.Equal(t, date(2023, 1, 3), *s.MinDate)
	assert.Equal(t, date(2023, 2, 1), *s.MaxDate)

	empty := Summarize(nil)
	assert.Zero(t, empty.Count)
	assert.Nil(t, empty.MinDate)
}

func ptr[T any](v T) *T { return &v }
