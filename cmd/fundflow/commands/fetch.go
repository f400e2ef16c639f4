package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [symbol]",
	Short: "종목 자금흐름 히스토리 수집",
	Long: `한 종목의 자금흐름 히스토리를 처음 페이지부터 끝까지 수집합니다.

이 명령어는:
- 페이지 단위로 요청 (빈 페이지 또는 짧은 페이지에서 종료)
- 가득 찬 페이지 이후 고정 지연 (SINA_DELAY)
- 필드 정제 후 날짜 오름차순 정렬
- fundflow_<symbol>.parquet (ZSTD) / .csv 저장
- DATABASE_URL 설정 시 PostgreSQL 에도 저장

요청 실패 시 재시도하지 않으며, 그때까지 수집한 페이지는 저장합니다.

Example:
  go run ./cmd/fundflow fetch
  go run ./cmd/fundflow fetch sz.000001 --out ./data
  go run ./cmd/fundflow fetch sh.600519 --page-size 100 --delay 1s`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFetch,
}

var (
	fetchPageSize int
	fetchDelay    time.Duration
	fetchOut      string
	fetchNoDB     bool
	fetchStrict   bool
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().IntVar(&fetchPageSize, "page-size", 0, "records per page (default SINA_PAGE_SIZE)")
	fetchCmd.Flags().DurationVar(&fetchDelay, "delay", -1, "wait after a full page (default SINA_DELAY)")
	fetchCmd.Flags().StringVar(&fetchOut, "out", "", "output directory (default OUTPUT_DIR)")
	fetchCmd.Flags().BoolVar(&fetchNoDB, "no-db", false, "skip the database sink even if configured")
	fetchCmd.Flags().BoolVar(&fetchStrict, "strict", false, "exit non-zero when nothing was saved or a save failed")
}

func runFetch(cmd *cobra.Command, args []string) error {
	// 1. Load config + flag overrides
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	symbol := cfg.Symbol
	if len(args) == 1 {
		symbol = args[0]
	}
	if fetchPageSize > 0 {
		cfg.Sina.PageSize = fetchPageSize
	}
	if fetchDelay >= 0 {
		cfg.Sina.Delay = fetchDelay
	}
	if fetchOut != "" {
		cfg.Output.Dir = fetchOut
	}

	// 2. Wire components
	a, err := newApp(cfg, appOptions{useDB: !fetchNoDB})
	if err != nil {
		return err
	}
	defer a.Close()

	PrintRunHeader(RunMetadata{
		Title:    "Sina Fund Flow History",
		Symbol:   symbol,
		Tag:      "Sina",
		PageSize: cfg.Sina.PageSize,
		Delay:    cfg.Sina.Delay,
		Output:   cfg.Output.Dir,
	})

	a.paginator.OnProgress(func(page, pageCount, total int) {
		PrintPageProgress("Sina", page, pageCount, total)
	})

	// 3. Run (Ctrl+C stops between pages; collected pages are still saved)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := a.collector.Run(ctx, symbol)

	// 4. Report
	PrintRawSample(report.Sample)
	PrintReport(report)

	if fetchStrict && (report.Failed() || len(report.Outputs) == 0) {
		return fmt.Errorf("fetch %s: %s", symbol, report.Status)
	}
	return nil
}
