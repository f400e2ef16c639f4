package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundflow/internal/api/handlers"
	"github.com/wonny/fundflow/internal/contracts"
	"github.com/wonny/fundflow/internal/external/sina"
	"github.com/wonny/fundflow/internal/s0_data/collector"
	"github.com/wonny/fundflow/pkg/config"
	"github.com/wonny/fundflow/pkg/logger"
	"github.com/wonny/fundflow/pkg/redis"
)

type fakeReader struct {
	rows     []contracts.FundFlow
	err      error
	code     string
	from, to time.Time
	calls    int
}

func (f *fakeReader) GetByCodeAndDateRange(_ context.Context, code string, from, to time.Time) ([]contracts.FundFlow, error) {
	f.calls++
	f.code, f.from, f.to = code, from, to
	return f.rows, f.err
}

type fakeRunner struct{ report *collector.Report }

func (f *fakeRunner) Run(_ context.Context, symbol string) *collector.Report {
	f.report.Symbol = symbol
	return f.report
}

func newTestRouter(reader handlers.FundFlowReader, runner handlers.Runner, cache *redis.Cache) http.Handler {
	h := handlers.NewFundFlowHandler(reader, runner, cache, logger.Nop())
	return NewRouter(h, logger.Nop())
}

func serve(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealth(t *testing.T) {
	rec, body := serve(t, newTestRouter(&fakeReader{}, nil, nil), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestGetHistory(t *testing.T) {
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	reader := &fakeReader{rows: []contracts.FundFlow{{
		Date:        &d,
		Close:       decimal.NewNullDecimal(decimal.RequireFromString("1688.5")),
		MainNetFlow: decimal.NewNullDecimal(decimal.RequireFromString("-12345.67")),
		Code:        "sh.600519",
	}}}

	rec, body := serve(t, newTestRouter(reader, nil, nil), http.MethodGet, "/api/fundflow/sh.600519?from=2024-01-01&to=2024-01-31")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sh.600519", reader.code)
	assert.Equal(t, "2024-01-01", reader.from.Format("2006-01-02"))
	assert.Equal(t, "2024-01-31", reader.to.Format("2006-01-02"))

	assert.Equal(t, "sh.600519", body["code"])
	assert.EqualValues(t, 1, body["count"])
	rows := body["rows"].([]interface{})
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, "1688.5", row["close"])
	assert.Nil(t, row["pct_change"])
}

func TestGetHistory_EmptyIsArray(t *testing.T) {
	rec, body := serve(t, newTestRouter(&fakeReader{}, nil, nil), http.MethodGet, "/api/fundflow/sz.000001")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, body["rows"])
	assert.EqualValues(t, 0, body["count"])
}

func TestGetHistory_BadRequests(t *testing.T) {
	for _, target := range []string{
		"/api/fundflow/sh.600519?from=20240101",
		"/api/fundflow/sh.600519?to=yesterday",
		"/api/fundflow/sh.600519?from=2024-02-01&to=2024-01-01",
	} {
		reader := &fakeReader{}
		rec, body := serve(t, newTestRouter(reader, nil, nil), http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.NotEmpty(t, body["error"])
		assert.Zero(t, reader.calls)
	}
}

func TestGetHistory_ReaderError(t *testing.T) {
	rec, body := serve(t, newTestRouter(&fakeReader{err: errors.New("db down")}, nil, nil), http.MethodGet, "/api/fundflow/sh.600519")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to retrieve fund flow", body["error"])
}

func TestGetHistory_DisabledCacheFallsThrough(t *testing.T) {
	client, err := redis.New(&config.Config{})
	require.NoError(t, err)
	cache := redis.NewCache(client, "fundflow")

	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	reader := &fakeReader{rows: []contracts.FundFlow{{Date: &d, Code: "sh.600519"}}}
	router := newTestRouter(reader, nil, cache)

	for i := 0; i < 2; i++ {
		rec, body := serve(t, router, http.MethodGet, "/api/fundflow/sh.600519")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 1, body["count"])
	}
	assert.Equal(t, 2, reader.calls)
}

func TestCollect(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		rec, _ := serve(t, newTestRouter(&fakeReader{}, nil, nil), http.MethodPost, "/api/fundflow/sh.600519/collect")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("reports outputs", func(t *testing.T) {
		runner := &fakeRunner{report: &collector.Report{
			RunID:      "run-1",
			Status:     collector.StatusPartial,
			StopReason: sina.StopError,
			FetchErr:   errors.New("transport error: page 2: EOF"),
			Outputs: []collector.OutputResult{
				{Format: "parquet", Path: "output/fundflow_sh.600519.parquet", Err: errors.New("disk full")},
				{Format: "csv", Path: "output/fundflow_sh.600519.csv", Rows: 50},
			},
		}}

		rec, body := serve(t, newTestRouter(&fakeReader{}, runner, nil), http.MethodPost, "/api/fundflow/sh.600519/collect")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "sh.600519", body["symbol"])
		assert.Equal(t, "partial", body["status"])
		assert.Equal(t, "error", body["stop_reason"])
		assert.Equal(t, "transport error: page 2: EOF", body["fetch_error"])

		outputs := body["outputs"].([]interface{})
		require.Len(t, outputs, 2)
		assert.Equal(t, "disk full", outputs[0].(map[string]interface{})["error"])
		assert.EqualValues(t, 50, outputs[1].(map[string]interface{})["rows"])
	})
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(&fakeReader{}, nil, nil)

	for _, tt := range []struct {
		method, target string
		want           int
	}{
		{http.MethodDelete, "/api/fundflow/sh.600519", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/fundflow/sh.600519/collect", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))
		assert.Equal(t, tt.want, rec.Code, "%s %s", tt.method, tt.target)
	}
}
