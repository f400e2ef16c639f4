package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/fundflow/internal/export"
	"github.com/wonny/fundflow/internal/external/sina"
	"github.com/wonny/fundflow/internal/s0_data"
	"github.com/wonny/fundflow/internal/s0_data/collector"
	"github.com/wonny/fundflow/pkg/config"
	"github.com/wonny/fundflow/pkg/database"
	"github.com/wonny/fundflow/pkg/httputil"
	"github.com/wonny/fundflow/pkg/logger"
	"github.com/wonny/fundflow/pkg/redis"
)

// app holds the wired components shared by every command
type app struct {
	cfg *config.Config
	log *logger.Logger

	redis *redis.Client
	cache *redis.Cache
	db    *database.DB // nil when DATABASE_URL is empty
	repo  *s0_data.FundFlowRepository

	paginator *sina.Paginator
	collector *collector.Collector
}

// appOptions selects optional wiring
type appOptions struct {
	requireDB bool // fail instead of running without the database sink
	useDB     bool // attach the database sink when configured
}

// newApp wires config → clients → paginator → normalizer → writers → collector
func newApp(cfg *config.Config, opts appOptions) (*app, error) {
	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log}

	// 1. Redis (optional shared rate limit + API cache)
	rc, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without it")
		rc, _ = redis.New(&config.Config{})
	}
	a.redis = rc
	a.cache = redis.NewCache(rc, "fundflow")

	// 2. Database (optional sink)
	var sinkErr error
	if opts.useDB || opts.requireDB {
		sinkErr = a.openDatabase()
		switch {
		case errors.Is(sinkErr, database.ErrNotConfigured) && !opts.requireDB:
			log.Debug("DATABASE_URL empty, database sink disabled")
			sinkErr = nil
		case sinkErr != nil && opts.requireDB:
			a.Close()
			return nil, sinkErr
		case sinkErr != nil:
			// files are still written; the failed sink shows up in every report
			log.WithError(sinkErr).Warn("Database unavailable, continuing without the database sink")
		}
	}

	// 3. HTTP client with the endpoint's headers and throttles
	httpClient := httputil.New(log, cfg.Sina.Timeout).
		WithHeader("User-Agent", cfg.Sina.UserAgent).
		WithHeader("Referer", cfg.Sina.Referer).
		WithLimiter(cfg.Sina.RateLimit)
	if rc.Enabled() {
		httpClient.WithRateLimiter(redis.NewRateLimiter(rc, "fundflow"), redis.SinaRateLimit)
	}

	// 4. Paginator + normalizer + writers
	a.paginator = sina.NewPaginator(sina.NewClient(httpClient, cfg.Sina, log), cfg.Sina, log)

	normalizer, err := s0_data.NewNormalizer(s0_data.DefaultColumnMapping(), s0_data.DefaultDateLayouts())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("column mapping: %w", err)
	}

	var writers []export.Writer
	if cfg.Output.Parquet {
		writers = append(writers, export.NewParquetWriter())
	}
	if cfg.Output.CSV {
		writers = append(writers, export.NewCSVWriter())
	}

	a.collector = collector.NewCollector(a.paginator, normalizer, writers, cfg.Output.Dir, log)
	switch {
	case a.repo != nil:
		a.collector.WithSink(a.repo, a.cache)
	case sinkErr != nil:
		a.collector.WithSink(collector.UnavailableSink(sinkErr), nil)
	}

	return a, nil
}

// openDatabase connects and ensures the fund_flow table. On failure a.db and
// a.repo stay nil.
func (a *app) openDatabase() error {
	db, err := database.New(a.cfg)
	if err != nil {
		if errors.Is(err, database.ErrNotConfigured) {
			return err
		}
		return fmt.Errorf("connect to database: %w", err)
	}

	repo := s0_data.NewFundFlowRepository(db.Pool)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return err
	}

	a.db = db
	a.repo = repo
	return nil
}

// Close releases connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
