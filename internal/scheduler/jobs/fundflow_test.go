package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/fundflow/internal/s0_data/collector"
	"github.com/wonny/fundflow/pkg/logger"
)

type stubRunner struct {
	report *collector.Report
	symbol string
}

func (r *stubRunner) Run(_ context.Context, symbol string) *collector.Report {
	r.symbol = symbol
	return r.report
}

func TestFundFlowJob(t *testing.T) {
	tests := []struct {
		name    string
		report  *collector.Report
		wantErr string
	}{
		{
			name:   "ok",
			report: &collector.Report{Status: collector.StatusOK, Outputs: []collector.OutputResult{{Format: "csv"}}},
		},
		{
			name:    "empty",
			report:  &collector.Report{Status: collector.StatusEmpty},
			wantErr: "sh.600519: no records fetched",
		},
		{
			name:    "schema mismatch",
			report:  &collector.Report{Status: collector.StatusSchemaMismatch},
			wantErr: "sh.600519: expected fields missing",
		},
		{
			name:    "partial",
			report:  &collector.Report{Status: collector.StatusPartial, FetchErr: errors.New("transport error: page 3: EOF")},
			wantErr: "sh.600519: transport error: page 3: EOF",
		},
		{
			name: "writer failed",
			report: &collector.Report{Status: collector.StatusOK, Outputs: []collector.OutputResult{
				{Format: "parquet", Err: errors.New("disk full")},
				{Format: "csv"},
			}},
			wantErr: "sh.600519: parquet output: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{report: tt.report}
			job := NewFundFlowJob(runner, "sh.600519", "0 30 16 * * 1-5", logger.Nop())

			err := job.Run(context.Background())
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
			assert.Equal(t, "sh.600519", runner.symbol)
			assert.Same(t, tt.report, job.LastReport)
		})
	}
}

func TestFundFlowJob_Identity(t *testing.T) {
	job := NewFundFlowJob(&stubRunner{}, "sz.000001", "@daily", logger.Nop())
	assert.Equal(t, "fundflow_sz.000001", job.Name())
	assert.Equal(t, "@daily", job.Schedule())
}
