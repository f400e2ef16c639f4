package collector

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/fundflow/internal/contracts"
	"github.com/wonny/fundflow/internal/export"
	"github.com/wonny/fundflow/internal/external/sina"
	"github.com/wonny/fundflow/internal/s0_data"
	"github.com/wonny/fundflow/internal/s0_data/quality"
	"github.com/wonny/fundflow/pkg/logger"
	"github.com/wonny/fundflow/pkg/redis"
)

// Status is the terminal state of one run
type Status string

const (
	StatusOK             Status = "ok"
	StatusPartial        Status = "partial"         // pagination aborted, collected pages persisted
	StatusEmpty          Status = "empty"           // nothing fetched, nothing persisted
	StatusSchemaMismatch Status = "schema_mismatch" // records lacked every expected field
)

// Sink is an optional extra destination for normalized rows (e.g. PostgreSQL)
type Sink interface {
	SaveBatch(ctx context.Context, runID string, flows []contracts.FundFlow) (int, error)
}

// unavailableSink stands in for a sink that could not be opened
type unavailableSink struct {
	err error
}

func (s unavailableSink) SaveBatch(context.Context, string, []contracts.FundFlow) (int, error) {
	return 0, s.err
}

// UnavailableSink returns a Sink whose every save fails with err, so a sink that
// could not be opened is reported as a failed output instead of aborting the run.
func UnavailableSink(err error) Sink {
	return unavailableSink{err: err}
}

// OutputResult is the outcome of one persistence target
type OutputResult struct {
	Format string `json:"format"`
	Path   string `json:"path,omitempty"`
	Rows   int    `json:"rows"`
	Err    error  `json:"-"`
}

// Report describes one run end to end
type Report struct {
	RunID      string              `json:"run_id"`
	Symbol     string              `json:"symbol"`
	StartedAt  time.Time           `json:"started_at"`
	Duration   time.Duration       `json:"duration"`
	Status     Status              `json:"status"`
	Requests   int                 `json:"requests"`
	Pages      int                 `json:"pages"`
	RawCount   int                 `json:"raw_count"`
	StopReason sina.StopReason     `json:"stop_reason"`
	FetchErr   error               `json:"-"`
	Sample     contracts.RawRecord `json:"-"` // first raw record, for the console
	Summary    s0_data.Summary     `json:"summary"`
	Quality    *quality.Snapshot   `json:"quality,omitempty"`
	Outputs    []OutputResult      `json:"outputs"`
}

// Failed reports whether any persistence target failed
func (r *Report) Failed() bool {
	for _, o := range r.Outputs {
		if o.Err != nil {
			return true
		}
	}
	return false
}

// Collector runs fetch → normalize → persist for one symbol
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	paginator  *sina.Paginator
	normalizer *s0_data.Normalizer
	gate       *quality.QualityGate
	writers    []export.Writer
	outputDir  string
	sink       Sink
	cache      *redis.Cache
	logger     *logger.Logger
}

// NewCollector creates a new Collector instance
func NewCollector(
	paginator *sina.Paginator,
	normalizer *s0_data.Normalizer,
	writers []export.Writer,
	outputDir string,
	log *logger.Logger,
) *Collector {
	return &Collector{
		paginator:  paginator,
		normalizer: normalizer,
		gate:       quality.NewQualityGate(quality.DefaultConfig()),
		writers:    writers,
		outputDir:  outputDir,
		logger:     log.WithField("module", "collector"),
	}
}

// WithSink adds a database sink. cache (may be nil) is invalidated for the
// symbol after a successful save.
func (c *Collector) WithSink(sink Sink, cache *redis.Cache) *Collector {
	c.sink = sink
	c.cache = cache
	return c
}

// Run harvests one symbol. It never returns an error: every failure is recorded
// in the Report so the caller can always print the end-of-run summary.
func (c *Collector) Run(ctx context.Context, symbol string) *Report {
	report := &Report{
		RunID:     uuid.NewString(),
		Symbol:    symbol,
		StartedAt: time.Now(),
		Status:    StatusOK,
	}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	log := c.logger.WithFields(map[string]interface{}{
		"run_id": report.RunID,
		"symbol": symbol,
	})

	// 1. Fetch
	harvest, err := c.paginator.FetchHistory(ctx, symbol)
	if harvest != nil {
		report.Requests = harvest.Requests
		report.Pages = harvest.Pages
		report.RawCount = len(harvest.Records)
		report.StopReason = harvest.StopReason
		if len(harvest.Records) > 0 {
			report.Sample = harvest.Records[0]
		}
	}
	if err != nil {
		report.FetchErr = err
		log.WithError(err).Warn("Fetch stopped early, keeping collected pages")
	}

	// 2. Normalize
	var records []contracts.RawRecord
	if harvest != nil {
		records = harvest.Records
	}
	rows, err := c.normalizer.Normalize(records, symbol)
	switch {
	case errors.Is(err, s0_data.ErrNoRecords):
		report.Status = StatusEmpty
		log.Warn("No records fetched, skipping persistence")
		return report
	case errors.Is(err, s0_data.ErrSchemaMismatch):
		report.Status = StatusSchemaMismatch
		log.Warn("Expected fields missing, skipping persistence")
		return report
	case err != nil:
		report.Status = StatusSchemaMismatch
		log.WithError(err).Error("Normalization failed")
		return report
	}

	report.Summary = s0_data.Summarize(rows)
	report.Quality = c.gate.Check(rows)
	if len(report.Quality.BelowMinimum) > 0 {
		log.WithFields(map[string]interface{}{
			"columns": report.Quality.BelowMinimum,
			"score":   report.Quality.QualityScore,
		}).Warn("Low column coverage")
	}
	if report.FetchErr != nil {
		report.Status = StatusPartial
	}

	// 3. Persist: each target independently
	if err := export.EnsureDir(c.outputDir); err != nil {
		log.WithError(err).Error("Cannot create output directory")
	}
	for _, w := range c.writers {
		report.Outputs = append(report.Outputs, c.write(log, w, symbol, rows))
	}

	if c.sink != nil {
		report.Outputs = append(report.Outputs, c.save(ctx, log, report.RunID, symbol, rows))
	}

	log.WithFields(map[string]interface{}{
		"status":  string(report.Status),
		"records": report.Summary.Count,
	}).Info("Run finished")

	return report
}

func (c *Collector) write(log *logger.Logger, w export.Writer, symbol string, rows []contracts.FundFlow) OutputResult {
	path := export.Path(c.outputDir, symbol, w)
	result := OutputResult{Format: w.Format(), Path: path}

	if err := w.Write(path, rows); err != nil {
		result.Err = err
		log.WithError(err).WithField("format", w.Format()).Error("Write failed")
		return result
	}

	result.Rows = len(rows)
	log.WithFields(map[string]interface{}{
		"format": w.Format(),
		"path":   path,
	}).Info("Saved")
	return result
}

func (c *Collector) save(ctx context.Context, log *logger.Logger, runID, symbol string, rows []contracts.FundFlow) OutputResult {
	result := OutputResult{Format: "postgres"}

	saved, err := c.sink.SaveBatch(ctx, runID, rows)
	if err != nil {
		result.Err = err
		log.WithError(err).Error("Database save failed")
		return result
	}
	result.Rows = saved

	if c.cache != nil {
		if err := c.cache.DeletePattern(ctx, redis.FundFlowPattern(symbol)); err != nil {
			log.WithError(err).Warn("Cache invalidation failed")
		}
	}
	return result
}
