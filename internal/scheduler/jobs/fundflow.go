package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/fundflow/internal/s0_data/collector"
	"github.com/wonny/fundflow/pkg/logger"
)

// Runner harvests one symbol
type Runner interface {
	Run(ctx context.Context, symbol string) *collector.Report
}

// FundFlowJob harvests the configured symbol on a cron schedule
// ⭐ SSOT: 자금흐름 수집 스케줄은 이 Job에서만
type FundFlowJob struct {
	runner   Runner
	symbol   string
	schedule string
	logger   *logger.Logger

	// LastReport is the report of the most recent run (nil before the first)
	LastReport *collector.Report
}

// NewFundFlowJob creates a new fund-flow job
func NewFundFlowJob(runner Runner, symbol, schedule string, log *logger.Logger) *FundFlowJob {
	return &FundFlowJob{
		runner:   runner,
		symbol:   symbol,
		schedule: schedule,
		logger:   log.WithField("job", "fundflow"),
	}
}

// Name returns the job name
func (j *FundFlowJob) Name() string {
	return "fundflow_" + j.symbol
}

// Schedule returns the cron schedule (with seconds)
func (j *FundFlowJob) Schedule() string {
	return j.schedule
}

// Run executes one harvest. Anything short of a clean run is reported as an
// error so the scheduler history shows it.
func (j *FundFlowJob) Run(ctx context.Context) error {
	report := j.runner.Run(ctx, j.symbol)
	j.LastReport = report

	j.logger.WithFields(map[string]interface{}{
		"run_id":  report.RunID,
		"status":  string(report.Status),
		"records": report.Summary.Count,
	}).Info("Scheduled harvest finished")

	switch {
	case report.Status == collector.StatusEmpty:
		return fmt.Errorf("%s: no records fetched", j.symbol)
	case report.Status == collector.StatusSchemaMismatch:
		return fmt.Errorf("%s: expected fields missing", j.symbol)
	case report.FetchErr != nil:
		return fmt.Errorf("%s: %w", j.symbol, report.FetchErr)
	case report.Failed():
		for _, o := range report.Outputs {
			if o.Err != nil {
				return fmt.Errorf("%s: %s output: %w", j.symbol, o.Format, o.Err)
			}
		}
	}
	return nil
}
