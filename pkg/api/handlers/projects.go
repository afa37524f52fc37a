package handlers

import (
	"net/http"

	"github.com/jordanlanch/backoffice/pkg/api/errors"
	apimw "github.com/jordanlanch/backoffice/pkg/api/middleware"
	"github.com/jordanlanch/backoffice/pkg/projects"
	"github.com/labstack/echo/v4"
)

// ProjectHandler handles project and task endpoints.
type ProjectHandler struct {
	service  *projects.Service
	timeouts Timeouts
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(service *projects.Service, timeouts Timeouts) *ProjectHandler {
	return &ProjectHandler{service: service, timeouts: timeouts}
}

func taskFilter(c echo.Context) (projects.TaskFilter, error) {
	filter := projects.TaskFilter{
		Status:   c.QueryParam("status"),
		Priority: c.QueryParam("priority"),
	}
	var err error
	if filter.AssignedTo, err = optionalUint(c, "assigned_to"); err != nil {
		return filter, err
	}
	filter.ProjectID, err = optionalUint(c, "project")
	return filter, err
}

// ListProjects godoc
// @Summary List projects
// @Description Projects the caller manages or works on. Admins see every project.
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (max 100)" default(20)
// @Param search query string false "Search name or description"
// @Param ordering query string false "created_at, start_date or end_date"
// @Param status query string false "Project status"
// @Param manager query int false "Manager user ID"
// @Success 200 {object} models.ListResponse[models.Project]
// @Failure 400 {object} models.ErrorResponse
// @Router /projects [get]
func (h *ProjectHandler) ListProjects(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	p, err := listParams(c)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	filter := projects.ProjectFilter{Status: c.QueryParam("status")}
	if filter.ManagerID, err = optionalUint(c, "manager"); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	res, err := h.service.ListProjects(ctx, actor, filter, p)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// GetProject godoc
// @Summary Get a project with its progress
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 200 {object} projects.ProjectDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/{id} [get]
func (h *ProjectHandler) GetProject(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	project, err := h.service.GetProject(ctx, actor, id)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, project)
}

// CreateProject godoc
// @Summary Create a project
// @Tags Projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body projects.ProjectRequest true "Project"
// @Success 201 {object} projects.ProjectDetail
// @Failure 400 {object} models.ErrorResponse
// @Router /projects [post]
func (h *ProjectHandler) CreateProject(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	var req projects.ProjectRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	project, err := h.service.CreateProject(ctx, actor, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusCreated, project)
}

// UpdateProject godoc
// @Summary Update a project
// @Tags Projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param request body projects.ProjectRequest true "Project"
// @Success 200 {object} projects.ProjectDetail
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/{id} [put]
func (h *ProjectHandler) UpdateProject(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var req projects.ProjectRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	project, err := h.service.UpdateProject(ctx, actor, id, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, project)
}

// SetTeam godoc
// @Summary Replace the team of a project
// @Tags Projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param request body projects.TeamRequest true "Team members"
// @Success 200 {object} projects.ProjectDetail
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/{id}/team [put]
func (h *ProjectHandler) SetTeam(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var req projects.TeamRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	project, err := h.service.SetTeam(ctx, actor, id, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, project)
}

// DeleteProject godoc
// @Summary Delete a project and its tasks
// @Tags Projects
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/{id} [delete]
func (h *ProjectHandler) DeleteProject(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	if err := h.service.DeleteProject(ctx, actor, id); err != nil {
		return errors.FromDomain(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListTasks godoc
// @Summary List the tasks of a project
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (max 100)" default(20)
// @Param search query string false "Search title or description"
// @Param ordering query string false "created_at, due_date or priority"
// @Param status query string false "Task status"
// @Param priority query string false "Task priority"
// @Param assigned_to query int false "Assignee user ID"
// @Success 200 {object} models.ListResponse[models.Task]
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/{id}/tasks [get]
func (h *ProjectHandler) ListTasks(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	p, err := listParams(c)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	filter, err := taskFilter(c)
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	res, err := h.service.ListTasks(ctx, actor, id, filter, p)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CreateTask godoc
// @Summary Create a task in a project
// @Tags Projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param request body projects.TaskRequest true "Task"
// @Success 201 {object} models.Task
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/{id}/tasks [post]
func (h *ProjectHandler) CreateTask(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var req projects.TaskRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	task, err := h.service.CreateTask(ctx, actor, id, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusCreated, task)
}

// AssignedTasks godoc
// @Summary List my assigned tasks
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (max 100)" default(20)
// @Param status query string false "Task status"
// @Param priority query string false "Task priority"
// @Param project query int false "Project ID"
// @Success 200 {object} models.ListResponse[models.Task]
// @Failure 400 {object} models.ErrorResponse
// @Router /projects/tasks/assigned [get]
func (h *ProjectHandler) AssignedTasks(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	p, err := listParams(c)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	filter, err := taskFilter(c)
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	res, err := h.service.AssignedTasks(ctx, actor, filter, p)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// GetTask godoc
// @Summary Get a task
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} models.Task
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/tasks/{id} [get]
func (h *ProjectHandler) GetTask(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	task, err := h.service.GetTask(ctx, actor, id)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

// UpdateTask godoc
// @Summary Update a task
// @Description Completing a task stamps its completion date, reopening it clears the stamp.
// @Tags Projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param request body projects.TaskRequest true "Task"
// @Success 200 {object} models.Task
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/tasks/{id} [put]
func (h *ProjectHandler) UpdateTask(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var req projects.TaskRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	task, err := h.service.UpdateTask(ctx, actor, id, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

// DeleteTask godoc
// @Summary Delete a task
// @Tags Projects
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/tasks/{id} [delete]
func (h *ProjectHandler) DeleteTask(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	if err := h.service.DeleteTask(ctx, actor, id); err != nil {
		return errors.FromDomain(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Dashboard godoc
// @Summary Project dashboard
// @Tags Project Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} projects.Dashboard
// @Router /projects/dashboard [get]
func (h *ProjectHandler) Dashboard(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	res, err := h.service.Dashboard(ctx, actor)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Reports godoc
// @Summary Project reports
// @Tags Project Reports
// @Produce json
// @Security BearerAuth
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} projects.Reports
// @Failure 400 {object} models.ErrorResponse
// @Router /projects/reports [get]
func (h *ProjectHandler) Reports(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	rng, err := rangeParams(c)
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	res, err := h.service.Reports(ctx, actor, rng)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Timeline godoc
// @Summary Project timeline
// @Description Only admins and the project manager may view the timeline.
// @Tags Project Reports
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 200 {object} projects.Timeline
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/{id}/timeline [get]
func (h *ProjectHandler) Timeline(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	res, err := h.service.Timeline(ctx, actor, id)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// TeamPerformance godoc
// @Summary Team performance
// @Tags Project Reports
// @Produce json
// @Security BearerAuth
// @Param team_members query []int false "Member user IDs" collectionFormat(multi)
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} projects.TeamPerformance
// @Failure 400 {object} models.ErrorResponse
// @Router /projects/team-performance [get]
func (h *ProjectHandler) TeamPerformance(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	members, err := uintList(c, "team_members")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	rng, err := rangeParams(c)
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	res, err := h.service.TeamPerformance(ctx, actor, members, rng)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Workload godoc
// @Summary Workload of a user
// @Description Users may view their own workload. Admins and managers may view anyone's.
// @Tags Project Reports
// @Produce json
// @Security BearerAuth
// @Param user_id path int true "User ID"
// @Success 200 {object} projects.Workload
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/workload/{user_id} [get]
func (h *ProjectHandler) Workload(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	userID, err := idParam(c, "user_id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	res, err := h.service.Workload(ctx, actor, userID)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
