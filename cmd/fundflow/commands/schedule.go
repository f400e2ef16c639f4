package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/fundflow/internal/scheduler"
	"github.com/wonny/fundflow/internal/scheduler/jobs"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule [symbol]",
	Short: "스케줄러 시작",
	Long: `크론 표현식(FUNDFLOW_SCHEDULE)에 따라 한 종목을 주기적으로 수집합니다.

실패한 실행은 재시도하지 않고 다음 스케줄에서 다시 수집합니다.

Example:
  go run ./cmd/fundflow schedule
  go run ./cmd/fundflow schedule sz.000001 --cron "0 0 17 * * 1-5"
  go run ./cmd/fundflow schedule --now`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSchedule,
}

var (
	scheduleCron string
	scheduleNow  bool
)

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron expression with seconds (default FUNDFLOW_SCHEDULE)")
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "run once immediately after starting")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	symbol := cfg.Symbol
	if len(args) == 1 {
		symbol = args[0]
	}
	if scheduleCron != "" {
		cfg.Schedule = scheduleCron
	}

	a, err := newApp(cfg, appOptions{useDB: true})
	if err != nil {
		return err
	}
	defer a.Close()

	// 1. Register job
	s := scheduler.New(a.log)
	job := jobs.NewFundFlowJob(a.collector, symbol, cfg.Schedule, a.log)
	if err := s.AddJob(job); err != nil {
		return err
	}

	s.Start()
	defer s.Stop()

	// 2. Show registered jobs
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Println("  Scheduler")
	PrintSeparator()
	widths := []int{24, 18, 20}
	PrintTableHeader([]string{"JOB", "SCHEDULE", "NEXT RUN"}, widths)
	for _, name := range s.GetAllJobs() {
		next, _ := s.NextRun(name)
		PrintTableRow([]string{name, cfg.Schedule, next.Format("2006-01-02 15:04:05")}, widths)
	}
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Optional immediate run
	if scheduleNow {
		result, err := s.RunJob(ctx, job.Name())
		if err != nil {
			return err
		}
		if job.LastReport != nil {
			PrintReport(job.LastReport)
		}
		if !result.Success {
			PrintError(result.Error)
		}
	}

	PrintInfo("Press Ctrl+C to stop")
	<-ctx.Done()

	stats := s.GetJobStats()[job.Name()]
	PrintKeyValue("Runs", fmt.Sprintf("%d (failed %d)", stats.TotalRuns, stats.FailureCount), 6)
	return nil
}
