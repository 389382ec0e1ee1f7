// internal/api/handler/api/stocks.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/stockanalyzer/internal/api/job"
	"github.com/newthinker/stockanalyzer/internal/api/response"
	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/newthinker/stockanalyzer/internal/history"
	"go.uber.org/zap"
)

const importJobType = "import"

// JobMetrics tracks active jobs.
type JobMetrics interface {
	JobStarted(jobType string)
	JobFinished(jobType string)
}

type nopJobMetrics struct{}

func (nopJobMetrics) JobStarted(string)  {}
func (nopJobMetrics) JobFinished(string) {}

// ImportRequest is the request body for a batch import.
type ImportRequest struct {
	Symbols   []string `json:"symbols"`
	Collector string   `json:"collector,omitempty"`
}

// StocksHandler handles price import and history requests.
type StocksHandler struct {
	ctx      context.Context
	jobStore *job.Store
	history  *history.Service
	metrics  JobMetrics
	logger   *zap.Logger
}

// NewStocksHandler creates a new stocks handler. Import jobs run under ctx
// and stop when it is canceled.
func NewStocksHandler(ctx context.Context, jobStore *job.Store, hist *history.Service, metrics JobMetrics, logger *zap.Logger) *StocksHandler {
	if metrics == nil {
		metrics = nopJobMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StocksHandler{
		ctx:      ctx,
		jobStore: jobStore,
		history:  hist,
		metrics:  metrics,
		logger:   logger,
	}
}

// Import starts an async batch import job.
func (h *StocksHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, core.WrapError(core.ErrInvalidInput, fmt.Errorf("decoding body: %w", err)))
		return
	}

	symbols := make([]string, 0, len(req.Symbols))
	for _, s := range req.Symbols {
		if s = core.NormalizeSymbol(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		response.Fail(w, core.WrapError(core.ErrInvalidInput, fmt.Errorf("no symbols provided")))
		return
	}
	if _, err := h.history.Collector(req.Collector); err != nil {
		response.Fail(w, err)
		return
	}

	j := h.jobStore.Create(importJobType)
	h.metrics.JobStarted(importJobType)

	go h.runImport(j.ID, req.Collector, symbols)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id":  j.ID,
		"status":  j.Status,
		"symbols": symbols,
	})
}

// runImport executes the import and updates job status.
func (h *StocksHandler) runImport(jobID, collectorName string, symbols []string) {
	defer h.metrics.JobFinished(importJobType)

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	started := time.Now()
	results, err := h.history.Import(h.ctx, collectorName, symbols, func(done, total int) {
		h.jobStore.Update(jobID, func(j *job.Job) {
			j.Progress = done * 100 / total
		})
	})

	h.logger.Info("import job finished",
		zap.String("job_id", jobID),
		zap.Int("symbols", len(results)),
		zap.Duration("elapsed", time.Since(started)),
		zap.Error(err),
	)

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Result = map[string]any{"results": results}
		if err != nil {
			j.Status = job.StatusFailed
			j.Error = core.WrapError(core.ErrCollectorFailed, err)
			return
		}
		j.Status = job.StatusComplete
		j.Progress = 100
	})
}

// History returns stored bars for a list of symbol queries.
func (h *StocksHandler) History(w http.ResponseWriter, r *http.Request) {
	var queries []history.Query
	if err := json.NewDecoder(r.Body).Decode(&queries); err != nil {
		response.Fail(w, core.WrapError(core.ErrInvalidInput, fmt.Errorf("expected a list of symbol queries: %w", err)))
		return
	}

	batch, err := h.history.Lookup(r.Context(), queries)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, batch)
}
