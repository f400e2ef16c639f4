package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/wonny/fundflow/internal/contracts"
)

// csvRow is the text layout; an empty cell is a missing value
type csvRow struct {
	Date               string `csv:"date"`
	Close              string `csv:"close"`
	PctChange          string `csv:"pct_change"`
	TurnoverRate       string `csv:"turnover_rate"`
	NetFlowAmount      string `csv:"net_flow_amount"`
	MainNetFlow        string `csv:"main_net_flow"`
	SuperLargeNetFlow  string `csv:"super_large_net_flow"`
	LargeNetFlow       string `csv:"large_net_flow"`
	MediumSmallNetFlow string `csv:"medium_small_net_flow"`
	Code               string `csv:"code"`
}

// CSVWriter writes a UTF-8 comma-separated file with a fixed header
type CSVWriter struct{}

// NewCSVWriter creates a CSV writer
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

func (w *CSVWriter) Format() string { return "csv" }
func (w *CSVWriter) Ext() string    { return "csv" }

// Write replaces path with rows
func (w *CSVWriter) Write(path string, rows []contracts.FundFlow) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close csv file: %w", cerr)
		}
	}()

	out := make([]csvRow, 0, len(rows))
	for _, f := range rows {
		out = append(out, toCSVRow(f))
	}

	// gocsv omits the header for an empty slice; write it ourselves so the file
	// always carries the fixed header row.
	if len(out) == 0 {
		_, err = file.WriteString(joinHeader() + "\n")
		return err
	}

	if err := gocsv.MarshalFile(&out, file); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ReadCSV loads rows written by CSVWriter
func ReadCSV(path string) ([]contracts.FundFlow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer file.Close()

	var raw []csvRow
	if err := gocsv.UnmarshalFile(file, &raw); err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	rows := make([]contracts.FundFlow, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, fromCSVRow(r))
	}
	return rows, nil
}

func toCSVRow(f contracts.FundFlow) csvRow {
	row := csvRow{
		Close:              cell(f.Close),
		PctChange:          cell(f.PctChange),
		TurnoverRate:       cell(f.TurnoverRate),
		NetFlowAmount:      cell(f.NetFlowAmount),
		MainNetFlow:        cell(f.MainNetFlow),
		SuperLargeNetFlow:  cell(f.SuperLargeNetFlow),
		LargeNetFlow:       cell(f.LargeNetFlow),
		MediumSmallNetFlow: cell(f.MediumSmallNetFlow),
		Code:               f.Code,
	}
	if f.Date != nil {
		row.Date = f.Date.Format(dateLayout)
	}
	return row
}

func fromCSVRow(r csvRow) contracts.FundFlow {
	f := contracts.FundFlow{Code: r.Code}
	if r.Date != "" {
		if d, err := parseDay(r.Date); err == nil {
			f.Date = &d
		}
	}
	values := []string{r.Close, r.PctChange, r.TurnoverRate, r.NetFlowAmount,
		r.MainNetFlow, r.SuperLargeNetFlow, r.LargeNetFlow, r.MediumSmallNetFlow}
	for i, name := range contracts.FundFlowNumericFields {
		*f.Numeric(name) = uncell(values[i])
	}
	return f
}

func joinHeader() string {
	return strings.Join(Columns, ",")
}
