// internal/api/handler/api/jobs.go
package api

import (
	"net/http"

	"github.com/newthinker/stockanalyzer/internal/api/job"
	"github.com/newthinker/stockanalyzer/internal/api/response"
)

// JobsHandler reports async job status.
type JobsHandler struct {
	jobStore *job.Store
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(jobStore *job.Store) *JobsHandler {
	return &JobsHandler{jobStore: jobStore}
}

// GetStatus returns the status of the job named by the {id} path value.
func (h *JobsHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobStore.Get(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	resp := map[string]any{
		"job_id":   j.ID,
		"type":     j.Type,
		"status":   j.Status,
		"progress": j.Progress,
	}

	if j.Result != nil {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		detail := map[string]string{
			"code":    j.Error.Code,
			"message": j.Error.Message,
		}
		if j.Error.Cause != nil {
			detail["cause"] = j.Error.Cause.Error()
		}
		resp["error"] = detail
	}

	response.JSON(w, http.StatusOK, resp)
}
