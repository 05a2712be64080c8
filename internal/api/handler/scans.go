// Package handler implements the API endpoints.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/newthinker/momentum/internal/api/job"
	"github.com/newthinker/momentum/internal/api/response"
	"github.com/newthinker/momentum/internal/core"
	"github.com/newthinker/momentum/internal/scanner"
	"github.com/newthinker/momentum/internal/storage/report"
	"go.uber.org/zap"
)

// Scanner is the part of scanner.Scanner the API drives.
type Scanner interface {
	Scan(ctx context.Context, req scanner.Request) (*core.ScanReport, error)
}

// ScansHandler serves scan reports and triggers scans.
type ScansHandler struct {
	scanner Scanner
	store   report.Store
	jobs    *job.Store
	logger  *zap.Logger
}

// NewScansHandler creates a scans handler. jobs may be nil, which
// disables asynchronous scans.
func NewScansHandler(s Scanner, store report.Store, jobs *job.Store, logger *zap.Logger) *ScansHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScansHandler{scanner: s, store: store, jobs: jobs, logger: logger}
}

// Latest returns the most recent report.
func (h *ScansHandler) Latest(w http.ResponseWriter, r *http.Request) {
	rep, err := h.store.Latest(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rep)
}

// Get returns one report by id.
func (h *ScansHandler) Get(w http.ResponseWriter, r *http.Request) {
	rep, err := h.store.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rep)
}

// List returns reports matching query parameters.
func (h *ScansHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := report.ListFilter{
		Source: q.Get("source"),
		From:   parseTime(q.Get("from")),
		To:     parseTime(q.Get("to")),
		Limit:  20,
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		filter.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		filter.Offset = n
	}

	reports, err := h.store.List(r.Context(), filter)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"scans":  reports,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// TriggerRequest is the optional body of POST /api/scan
type TriggerRequest struct {
	Source  string   `json:"source"`
	Tickers []string `json:"tickers"`
	Async   bool     `json:"async"`
}

// Trigger runs a scan. Synchronous scans answer with the report;
// asynchronous ones answer 202 with a job to poll.
func (h *ScansHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Fail(w, core.WrapError(core.ErrInvalidInput, err))
		return
	}
	scanReq := scanner.Request{Source: req.Source, Tickers: req.Tickers}

	if req.Async && h.jobs != nil {
		j := h.jobs.Create(req.Source)
		go h.runJob(j.ID, scanReq)
		response.JSON(w, http.StatusAccepted, j)
		return
	}

	rep, err := h.scanner.Scan(r.Context(), scanReq)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rep)
}

// Job returns the status of an asynchronous scan.
func (h *ScansHandler) Job(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		response.Fail(w, core.ErrNoData)
		return
	}
	j, err := h.jobs.Get(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, j)
}

func (h *ScansHandler) runJob(id string, req scanner.Request) {
	h.jobs.Start(id)
	// detached from the request, which ends with the 202
	rep, err := h.scanner.Scan(context.Background(), req)
	if err != nil {
		h.logger.Error("async scan failed", zap.String("job_id", id), zap.Error(err))
		h.jobs.Fail(id, err)
		return
	}
	h.jobs.Complete(id, rep.ID)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}
