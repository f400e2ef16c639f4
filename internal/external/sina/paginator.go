package sina

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/fundflow/internal/contracts"
	"github.com/wonny/fundflow/pkg/config"
	"github.com/wonny/fundflow/pkg/logger"
)

// ErrTransport marks a page fetch failure that aborted pagination
var ErrTransport = errors.New("transport error")

// PageFetcher retrieves one page of raw records
type PageFetcher interface {
	FetchPage(ctx context.Context, symbol string, page, size int) ([]contracts.RawRecord, error)
}

// StopReason tells why pagination ended
type StopReason string

const (
	StopExhausted StopReason = "exhausted" // a page came back empty
	StopPartial   StopReason = "partial"   // a page came back short
	StopError     StopReason = "error"     // a page fetch failed
	StopCancelled StopReason = "cancelled" // ctx done while waiting between pages
)

// Harvest is the outcome of one pagination run
type Harvest struct {
	Symbol     string
	Records    []contracts.RawRecord // request order, not date order
	Pages      int                   // pages appended
	Requests   int                   // requests issued
	StopReason StopReason
}

// ProgressFunc is called after each appended page
type ProgressFunc func(page, pageCount, total int)

// Paginator walks fixed-size pages until the source runs dry
// ⭐ SSOT: 페이지네이션 종료 판단은 여기서만
type Paginator struct {
	fetcher  PageFetcher
	pageSize int
	delay    time.Duration
	logger   *logger.Logger
	progress ProgressFunc
}

// NewPaginator creates a paginator using PageSize and Delay from cfg
func NewPaginator(fetcher PageFetcher, cfg config.SinaConfig, log *logger.Logger) *Paginator {
	return &Paginator{
		fetcher:  fetcher,
		pageSize: cfg.PageSize,
		delay:    cfg.Delay,
		logger:   log.WithField("module", "paginator"),
	}
}

// OnProgress registers a progress callback
func (p *Paginator) OnProgress(fn ProgressFunc) *Paginator {
	p.progress = fn
	return p
}

// FetchHistory requests pages 1, 2, ... for symbol.
//
//   - empty page: stop without appending
//   - short page: append, stop
//   - full page: append, wait the fixed delay, continue
//
// A failed page stops pagination immediately. The records collected so far are
// returned in the Harvest together with an error wrapping ErrTransport.
func (p *Paginator) FetchHistory(ctx context.Context, symbol string) (*Harvest, error) {
	h := &Harvest{Symbol: symbol}
	log := p.logger.WithField("symbol", symbol)

	for page := 1; ; page++ {
		h.Requests++
		records, err := p.fetcher.FetchPage(ctx, symbol, page, p.pageSize)
		if err != nil {
			h.StopReason = StopError
			log.WithError(err).WithFields(map[string]interface{}{
				"page":      page,
				"collected": len(h.Records),
			}).Warn("Page fetch failed, pagination aborted")
			return h, fmt.Errorf("%w: page %d: %v", ErrTransport, page, err)
		}

		if len(records) == 0 {
			h.StopReason = StopExhausted
			log.WithField("page", page).Debug("Empty page, stopping")
			break
		}

		h.Records = append(h.Records, records...)
		h.Pages++
		if p.progress != nil {
			p.progress(page, len(records), len(h.Records))
		}

		if len(records) < p.pageSize {
			h.StopReason = StopPartial
			break
		}

		if err := sleepCtx(ctx, p.delay); err != nil {
			h.StopReason = StopCancelled
			return h, err
		}
	}

	log.WithFields(map[string]interface{}{
		"pages":   h.Pages,
		"records": len(h.Records),
		"reason":  string(h.StopReason),
	}).Info("Pagination finished")

	return h, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
