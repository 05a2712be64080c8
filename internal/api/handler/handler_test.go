package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/momentum/internal/api/job"
	"github.com/newthinker/momentum/internal/api/response"
	"github.com/newthinker/momentum/internal/core"
	"github.com/newthinker/momentum/internal/scanner"
	"github.com/newthinker/momentum/internal/storage/report"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScanner struct {
	mu    sync.Mutex
	store report.Store
	reqs  []scanner.Request
	err   error
	n     int
}

func (f *fakeScanner) Scan(ctx context.Context, req scanner.Request) (*core.ScanReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	f.n++
	r := core.ScanReport{
		ID:        "scan-" + string(rune('0'+f.n)),
		Source:    "yahoo",
		StartedAt: time.Date(2024, 6, 3, 14, f.n, 0, 0, time.UTC),
	}
	if f.store != nil {
		f.store.Save(ctx, r)
	}
	return &r, nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	env := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestScans_LatestEmpty(t *testing.T) {
	h := NewScansHandler(&fakeScanner{}, report.NewMemoryStore(10), nil, nil)

	w := httptest.NewRecorder()
	h.Latest(w, httptest.NewRequest(http.MethodGet, "/api/scan/latest", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NO_DATA", errorCode(t, w))
}

func TestScans_TriggerSync(t *testing.T) {
	store := report.NewMemoryStore(10)
	fs := &fakeScanner{store: store}
	h := NewScansHandler(fs, store, nil, nil)

	body := strings.NewReader(`{"source":"yahoo","tickers":["RELI","GNS"]}`)
	w := httptest.NewRecorder()
	h.Trigger(w, httptest.NewRequest(http.MethodPost, "/api/scan", body))

	require.Equal(t, http.StatusOK, w.Code)
	var rep core.ScanReport
	decode(t, w, &rep)
	assert.Equal(t, "scan-1", rep.ID)
	assert.Equal(t, []string{"RELI", "GNS"}, fs.reqs[0].Tickers)

	w = httptest.NewRecorder()
	h.Latest(w, httptest.NewRequest(http.MethodGet, "/api/scan/latest", nil))
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &rep)
	assert.Equal(t, "scan-1", rep.ID)
}

func TestScans_TriggerEmptyBody(t *testing.T) {
	fs := &fakeScanner{}
	h := NewScansHandler(fs, report.NewMemoryStore(10), nil, nil)

	w := httptest.NewRecorder()
	h.Trigger(w, httptest.NewRequest(http.MethodPost, "/api/scan", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, scanner.Request{}, fs.reqs[0])
}

func TestScans_TriggerBadBody(t *testing.T) {
	h := NewScansHandler(&fakeScanner{}, report.NewMemoryStore(10), nil, nil)

	w := httptest.NewRecorder()
	h.Trigger(w, httptest.NewRequest(http.MethodPost, "/api/scan", strings.NewReader("{")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScans_TriggerSourceFailure(t *testing.T) {
	h := NewScansHandler(&fakeScanner{err: core.ErrSourceFailed}, report.NewMemoryStore(10), nil, nil)

	w := httptest.NewRecorder()
	h.Trigger(w, httptest.NewRequest(http.MethodPost, "/api/scan", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "SOURCE_FAILED", errorCode(t, w))
}

func TestScans_TriggerAsync(t *testing.T) {
	store := report.NewMemoryStore(10)
	jobs := job.NewStore(10, time.Hour)
	h := NewScansHandler(&fakeScanner{store: store}, store, jobs, nil)

	w := httptest.NewRecorder()
	h.Trigger(w, httptest.NewRequest(http.MethodPost, "/api/scan", strings.NewReader(`{"async":true}`)))
	require.Equal(t, http.StatusAccepted, w.Code)

	var j job.Job
	decode(t, w, &j)
	require.NotEmpty(t, j.ID)

	require.Eventually(t, func() bool {
		got, err := jobs.Get(j.ID)
		return err == nil && got.Done()
	}, time.Second, 5*time.Millisecond)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/jobs/{id}", h.Job)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/"+j.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &j)
	assert.Equal(t, job.StatusComplete, j.Status)
	assert.Equal(t, "scan-1", j.ReportID)
}

func TestScans_ListAndGet(t *testing.T) {
	store := report.NewMemoryStore(10)
	fs := &fakeScanner{store: store}
	for i := 0; i < 3; i++ {
		fs.Scan(context.Background(), scanner.Request{})
	}
	h := NewScansHandler(fs, store, nil, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/scans", h.List)
	mux.HandleFunc("GET /api/scans/{id}", h.Get)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/scans?limit=2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Scans []core.ScanReport `json:"scans"`
		Limit int               `json:"limit"`
	}
	decode(t, w, &list)
	require.Len(t, list.Scans, 2)
	assert.Equal(t, "scan-3", list.Scans[0].ID, "newest first")

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/scans/scan-2", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/scans/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssess(t *testing.T) {
	h := NewAssessHandler(nil, decimal.NewFromInt(100))

	body := `{"row":{"Ticker":" reli ","Price":"$1.23","Change":"+7.50%","Volume":"650K"},"buying_power":"20.0"}`
	w := httptest.NewRecorder()
	h.Assess(w, httptest.NewRequest(http.MethodPost, "/api/assess", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp AssessResponse
	decode(t, w, &resp)
	assert.Equal(t, "RELI", resp.Record.Ticker)
	assert.Equal(t, core.SignalLong, resp.Assessment.Signal)
	assert.Equal(t, int64(16), resp.Assessment.SharesAffordable)
	assert.True(t, resp.Assessment.StopLoss.Equal(decimal.RequireFromString("1.1685")))
}

func TestAssess_CustomColumnsAndNumbers(t *testing.T) {
	h := NewAssessHandler(nil, decimal.NewFromInt(10))

	body := `{"columns":{"ticker":"symbol","price":"last","volume":"vol"},"row":{"symbol":"BTC","last":67000.5,"vol":1200}}`
	w := httptest.NewRecorder()
	h.Assess(w, httptest.NewRequest(http.MethodPost, "/api/assess", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp AssessResponse
	decode(t, w, &resp)
	assert.Equal(t, core.SignalUnclear, resp.Assessment.Signal)
	assert.False(t, resp.Record.PercentChange.Valid)
	assert.Equal(t, int64(0), resp.Assessment.SharesAffordable)
}

func TestAssess_RowRejected(t *testing.T) {
	h := NewAssessHandler(nil, decimal.Zero)

	w := httptest.NewRecorder()
	h.Assess(w, httptest.NewRequest(http.MethodPost, "/api/assess",
		strings.NewReader(`{"row":{"Ticker":"X","Price":"0","Volume":"1"}}`)))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "ROW_PARSE", errorCode(t, w))
}

func TestAssess_BadColumns(t *testing.T) {
	h := NewAssessHandler(nil, decimal.Zero)

	w := httptest.NewRecorder()
	h.Assess(w, httptest.NewRequest(http.MethodPost, "/api/assess",
		strings.NewReader(`{"columns":{"ticker":"t"},"row":{}}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CONFIG_INVALID", errorCode(t, w))
}
