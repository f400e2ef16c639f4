package export

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/wonny/fundflow/internal/contracts"
)

// parquetRow is the on-disk layout. Nullable values are OPTIONAL columns;
// date is days since the Unix epoch (DATE logical type).
type parquetRow struct {
	Date               *int32   `parquet:"name=date, type=INT32, convertedtype=DATE, repetitiontype=OPTIONAL"`
	Close              *float64 `parquet:"name=close, type=DOUBLE, repetitiontype=OPTIONAL"`
	PctChange          *float64 `parquet:"name=pct_change, type=DOUBLE, repetitiontype=OPTIONAL"`
	TurnoverRate       *float64 `parquet:"name=turnover_rate, type=DOUBLE, repetitiontype=OPTIONAL"`
	NetFlowAmount      *float64 `parquet:"name=net_flow_amount, type=DOUBLE, repetitiontype=OPTIONAL"`
	MainNetFlow        *float64 `parquet:"name=main_net_flow, type=DOUBLE, repetitiontype=OPTIONAL"`
	SuperLargeNetFlow  *float64 `parquet:"name=super_large_net_flow, type=DOUBLE, repetitiontype=OPTIONAL"`
	LargeNetFlow       *float64 `parquet:"name=large_net_flow, type=DOUBLE, repetitiontype=OPTIONAL"`
	MediumSmallNetFlow *float64 `parquet:"name=medium_small_net_flow, type=DOUBLE, repetitiontype=OPTIONAL"`
	Code               string   `parquet:"name=code, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
}

const secondsPerDay = 24 * 60 * 60

// ParquetWriter writes a ZSTD-compressed Parquet file
type ParquetWriter struct {
	parallel int64
}

// NewParquetWriter creates a Parquet writer
func NewParquetWriter() *ParquetWriter {
	return &ParquetWriter{parallel: 1}
}

func (w *ParquetWriter) Format() string { return "parquet" }
func (w *ParquetWriter) Ext() string    { return "parquet" }

// Write replaces path with rows
func (w *ParquetWriter) Write(path string, rows []contracts.FundFlow) (err error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("open parquet file: %w", err)
	}
	defer func() {
		if cerr := fw.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close parquet file: %w", cerr)
		}
	}()

	pw, err := writer.NewParquetWriter(fw, new(parquetRow), w.parallel)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_ZSTD

	for i := range rows {
		if err := pw.Write(toParquetRow(rows[i])); err != nil {
			return fmt.Errorf("write parquet row %d: %w", i, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finish parquet file: %w", err)
	}
	return nil
}

// ReadParquet loads rows written by ParquetWriter
func ReadParquet(path string) ([]contracts.FundFlow, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(parquetRow), 1)
	if err != nil {
		return nil, fmt.Errorf("create parquet reader: %w", err)
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	raw := make([]parquetRow, n)
	if n > 0 {
		if err := pr.Read(&raw); err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}

	rows := make([]contracts.FundFlow, 0, n)
	for _, r := range raw {
		rows = append(rows, fromParquetRow(r))
	}
	return rows, nil
}

func toParquetRow(f contracts.FundFlow) parquetRow {
	row := parquetRow{
		Close:              toFloat(f.Close),
		PctChange:          toFloat(f.PctChange),
		TurnoverRate:       toFloat(f.TurnoverRate),
		NetFlowAmount:      toFloat(f.NetFlowAmount),
		MainNetFlow:        toFloat(f.MainNetFlow),
		SuperLargeNetFlow:  toFloat(f.SuperLargeNetFlow),
		LargeNetFlow:       toFloat(f.LargeNetFlow),
		MediumSmallNetFlow: toFloat(f.MediumSmallNetFlow),
		Code:               f.Code,
	}
	if f.Date != nil {
		days := int32(f.Date.Unix() / secondsPerDay)
		row.Date = &days
	}
	return row
}

func fromParquetRow(r parquetRow) contracts.FundFlow {
	f := contracts.FundFlow{
		Close:              fromFloat(r.Close),
		PctChange:          fromFloat(r.PctChange),
		TurnoverRate:       fromFloat(r.TurnoverRate),
		NetFlowAmount:      fromFloat(r.NetFlowAmount),
		MainNetFlow:        fromFloat(r.MainNetFlow),
		SuperLargeNetFlow:  fromFloat(r.SuperLargeNetFlow),
		LargeNetFlow:       fromFloat(r.LargeNetFlow),
		MediumSmallNetFlow: fromFloat(r.MediumSmallNetFlow),
		Code:               r.Code,
	}
	if r.Date != nil {
		d := time.Unix(int64(*r.Date)*secondsPerDay, 0).UTC()
		f.Date = &d
	}
	return f
}

func toFloat(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	v, _ := d.Decimal.Float64()
	return &v
}

func fromFloat(v *float64) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*v))
}
