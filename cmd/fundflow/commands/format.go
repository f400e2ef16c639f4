package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/fundflow/internal/contracts"
	"github.com/wonny/fundflow/internal/s0_data/collector"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const dateLayout = "2006-01-02"

// RunMetadata holds run header metadata
type RunMetadata struct {
	Title    string
	Symbol   string
	Tag      string
	PageSize int
	Delay    time.Duration
	Output   string
}

// PrintRunHeader prints a formatted run header
func PrintRunHeader(meta RunMetadata) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", meta.Title)
	PrintSeparator()
	fmt.Printf("  Symbol    : %s\n", meta.Symbol)
	fmt.Printf("  Page size : %d\n", meta.PageSize)
	fmt.Printf("  Delay     : %v\n", meta.Delay)
	fmt.Printf("  Output    : %s\n", meta.Output)
	PrintSeparator()
	fmt.Printf("[%s] Started at %s\n", meta.Tag, time.Now().Format("2006-01-02 15:04:05"))
}

// PrintPageProgress prints one fetched page
// Example: [Sina] page 3: 50 records (total 150)
func PrintPageProgress(tag string, page, pageCount, total int) {
	fmt.Printf("[%s] page %d: %d records (total %d)\n", tag, page, pageCount, total)
}

// PrintRawSample prints the fields of the first raw record, keys sorted
func PrintRawSample(record contracts.RawRecord) {
	if len(record) == 0 {
		return
	}

	keys := make([]string, 0, len(record))
	width := 0
	for k := range record {
		keys = append(keys, k)
		if len(k) > width {
			width = len(k)
		}
	}
	sort.Strings(keys)

	fmt.Println()
	fmt.Println("Sample raw record:")
	for _, k := range keys {
		PrintKeyValue(k, record[k], width)
	}
}

// PrintReport prints the end-of-run summary
func PrintReport(r *collector.Report) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Println("  Summary")
	PrintSeparator()

	PrintKeyValue("Run ID", r.RunID, 10)
	PrintKeyValue("Status", string(r.Status), 10)
	PrintKeyValue("Requests", fmt.Sprintf("%d (%d pages, stop: %s)", r.Requests, r.Pages, r.StopReason), 10)
	PrintKeyValue("Records", fmt.Sprintf("%d", r.Summary.Count), 10)
	if r.Summary.MinDate != nil && r.Summary.MaxDate != nil {
		PrintKeyValue("Date range", r.Summary.MinDate.Format(dateLayout)+" ~ "+r.Summary.MaxDate.Format(dateLayout), 10)
	}
	if r.Summary.NullDates > 0 {
		PrintKeyValue("No date", fmt.Sprintf("%d", r.Summary.NullDates), 10)
	}
	if r.Quality != nil {
		PrintKeyValue("Quality", fmt.Sprintf("%.1f%%", r.Quality.QualityScore*100), 10)
		if len(r.Quality.BelowMinimum) > 0 {
			PrintKeyValue("Sparse", strings.Join(r.Quality.BelowMinimum, ", "), 10)
		}
	}
	PrintKeyValue("Duration", fmt.Sprintf("%.2fs", r.Duration.Seconds()), 10)
	PrintSeparator()

	if r.FetchErr != nil {
		PrintWarning(fmt.Sprintf("Fetch stopped early, partial data kept: %v", r.FetchErr))
	}

	switch r.Status {
	case collector.StatusEmpty:
		PrintWarning("No data fetched, nothing saved")
	case collector.StatusSchemaMismatch:
		PrintWarning("None of the expected fields were present, nothing saved")
	}

	for _, o := range r.Outputs {
		target := o.Path
		if target == "" {
			target = o.Format
		}
		if o.Err != nil {
			PrintError(fmt.Sprintf("%s save failed: %v", o.Format, o.Err))
			continue
		}
		PrintSuccess(fmt.Sprintf("Saved %s (%d rows)", target, o.Rows))
	}
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	for i := 0; i < totalWidth; i++ {
		fmt.Print("─")
	}
	fmt.Println()
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}
