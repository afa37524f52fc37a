package handlers

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/jordanlanch/backoffice/pkg/api/errors"
	"github.com/jordanlanch/backoffice/pkg/jobs"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/labstack/echo/v4"
)

// JobRunner runs registered background jobs on demand.
type JobRunner interface {
	Names() []string
	Run(ctx context.Context, name string) (bool, error)
}

// JobsHandler handles background job endpoints
type JobsHandler struct {
	runner  JobRunner
	timeout time.Duration
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(runner JobRunner) *JobsHandler {
	return &JobsHandler{runner: runner, timeout: 2 * time.Minute}
}

// JobsResponse lists the registered jobs.
type JobsResponse struct {
	Jobs []string `json:"jobs"`
}

// JobRunResponse reports the outcome of a manual run.
type JobRunResponse struct {
	Job string `json:"job"`
	// Ran is false when the job already ran in the current period.
	Ran bool `json:"ran"`
}

// ListJobs godoc
// @Summary List background jobs
// @Description Requires admin role.
// @Tags Admin Jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} JobsResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/jobs [get]
func (h *JobsHandler) ListJobs(c echo.Context) error {
	return c.JSON(http.StatusOK, JobsResponse{Jobs: h.runner.Names()})
}

// RunJob godoc
// @Summary Run a background job now
// @Description Runs the job unless it already ran in the current period. Requires admin role.
// @Tags Admin Jobs
// @Produce json
// @Security BearerAuth
// @Param name path string true "Job name"
// @Success 200 {object} JobRunResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /admin/jobs/{name}/run [post]
func (h *JobsHandler) RunJob(c echo.Context) error {
	name := c.Param("name")

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	ran, err := h.runner.Run(ctx, name)
	if stderrors.Is(err, jobs.ErrUnknownJob) {
		return c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	}
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, JobRunResponse{Job: name, Ran: ran})
}
