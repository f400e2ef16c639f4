package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/fundflow/internal/contracts"
	"github.com/wonny/fundflow/internal/s0_data/collector"
	"github.com/wonny/fundflow/pkg/logger"
	"github.com/wonny/fundflow/pkg/redis"
)

const dateLayout = "2006-01-02"

// FundFlowReader reads stored fund-flow rows
type FundFlowReader interface {
	GetByCodeAndDateRange(ctx context.Context, code string, from, to time.Time) ([]contracts.FundFlow, error)
}

// Runner harvests one symbol on demand
type Runner interface {
	Run(ctx context.Context, symbol string) *collector.Report
}

// FundFlowHandler serves stored fund-flow history
type FundFlowHandler struct {
	reader FundFlowReader
	runner Runner       // optional
	cache  *redis.Cache // optional
	logger *logger.Logger
}

// NewFundFlowHandler creates a new fund-flow handler. runner and cache may be nil.
func NewFundFlowHandler(reader FundFlowReader, runner Runner, cache *redis.Cache, log *logger.Logger) *FundFlowHandler {
	return &FundFlowHandler{
		reader: reader,
		runner: runner,
		cache:  cache,
		logger: log.WithField("handler", "fundflow"),
	}
}

// FundFlowResponse is the history payload
type FundFlowResponse struct {
	Code  string               `json:"code"`
	From  string               `json:"from"`
	To    string               `json:"to"`
	Count int                  `json:"count"`
	Rows  []contracts.FundFlow `json:"rows"`
}

// GetHistory returns stored rows for a code
// GET /api/fundflow/{code}?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *FundFlowHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	// Default: last 1 year
	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(-1, 0, 0)

	var err error
	if s := r.URL.Query().Get("from"); s != "" {
		from, err = time.Parse(dateLayout, s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'from' date format (expected YYYY-MM-DD)")
			return
		}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		to, err = time.Parse(dateLayout, s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'to' date format (expected YYYY-MM-DD)")
			return
		}
	}
	if from.After(to) {
		respondError(w, http.StatusBadRequest, "'from' must not be after 'to'")
		return
	}

	resp := FundFlowResponse{
		Code: code,
		From: from.Format(dateLayout),
		To:   to.Format(dateLayout),
	}

	load := func() (interface{}, error) {
		rows, err := h.reader.GetByCodeAndDateRange(ctx, code, from, to)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []contracts.FundFlow{}
		}
		return rows, nil
	}

	if h.cache != nil {
		err = h.cache.GetOrSet(ctx, redis.FundFlowKey(code, resp.From, resp.To), &resp.Rows, redis.TTLFundFlow, load)
	} else {
		var v interface{}
		if v, err = load(); err == nil {
			resp.Rows = v.([]contracts.FundFlow)
		}
	}
	if err != nil {
		h.logger.WithError(err).WithField("code", code).Error("Failed to read fund flow")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve fund flow")
		return
	}

	resp.Count = len(resp.Rows)
	respondJSON(w, http.StatusOK, resp)
}

// CollectOutput is one persistence result of a triggered run
type CollectOutput struct {
	Format string `json:"format"`
	Path   string `json:"path,omitempty"`
	Rows   int    `json:"rows"`
	Error  string `json:"error,omitempty"`
}

// CollectResponse represents a triggered harvest
type CollectResponse struct {
	RunID      string          `json:"run_id"`
	Symbol     string          `json:"symbol"`
	Status     string          `json:"status"`
	StopReason string          `json:"stop_reason"`
	FetchError string          `json:"fetch_error,omitempty"`
	Count      int             `json:"count"`
	Outputs    []CollectOutput `json:"outputs"`
}

// Collect harvests a code now
// POST /api/fundflow/{code}/collect
func (h *FundFlowHandler) Collect(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		respondError(w, http.StatusServiceUnavailable, "Collection is not enabled")
		return
	}

	code := mux.Vars(r)["code"]
	report := h.runner.Run(r.Context(), code)

	resp := CollectResponse{
		RunID:      report.RunID,
		Symbol:     report.Symbol,
		Status:     string(report.Status),
		StopReason: string(report.StopReason),
		Count:      report.Summary.Count,
		Outputs:    make([]CollectOutput, 0, len(report.Outputs)),
	}
	if report.FetchErr != nil {
		resp.FetchError = report.FetchErr.Error()
	}
	for _, o := range report.Outputs {
		out := CollectOutput{Format: o.Format, Path: o.Path, Rows: o.Rows}
		if o.Err != nil {
			out.Error = o.Err.Error()
		}
		resp.Outputs = append(resp.Outputs, out)
	}

	respondJSON(w, http.StatusOK, resp)
}
