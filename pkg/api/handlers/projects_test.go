package handlers

import (
	"net/http"
	"testing"

	"github.com/jordanlanch/backoffice/pkg/database/dbtest"
	"github.com/jordanlanch/backoffice/pkg/events"
	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/projects"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupProjectHandler(t *testing.T) (*ProjectHandler, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	svc := projects.NewService(db, &events.Recorder{}, logger.Nop())
	return NewProjectHandler(svc, DefaultTimeouts()), db
}

func createProject(t *testing.T, h *ProjectHandler, actor scope.Actor, team ...uint) projects.ProjectDetail {
	t.Helper()
	body := projects.ProjectRequest{
		Name:        "Warehouse move",
		StartDate:   models.Today(),
		EndDate:     models.Today().AddDays(30),
		TeamMembers: team,
	}
	c, rec := newContext(t, request{method: http.MethodPost, target: "/projects", body: body, actor: &actor})
	require.NoError(t, h.CreateProject(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[projects.ProjectDetail](t, rec)
}

func TestProjectHandler_Access(t *testing.T) {
	h, db := setupProjectHandler(t)
	manager := createUser(t, db, "manager", models.RoleManager)
	member := createUser(t, db, "member", models.RoleEmployee)
	outsider := createUser(t, db, "outsider", models.RoleEmployee)

	project := createProject(t, h, manager, member.UserID)
	assert.Equal(t, manager.UserID, project.ManagerID)
	assert.Equal(t, models.ProjectStatusNew, project.Status)
	require.Len(t, project.TeamMembers, 1)
	id := idStr(project.ID)

	c, rec := newContext(t, request{method: http.MethodGet, target: "/projects/" + id, actor: &member, params: map[string]string{"id": id}})
	require.NoError(t, h.GetProject(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(t, request{method: http.MethodGet, target: "/projects/" + id, actor: &outsider, params: map[string]string{"id": id}})
	require.NoError(t, h.GetProject(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	update := projects.ProjectRequest{Name: "Renamed", StartDate: project.StartDate, EndDate: project.EndDate}
	c, rec = newContext(t, request{method: http.MethodPut, target: "/projects/" + id, body: update, actor: &member, params: map[string]string{"id": id}})
	require.NoError(t, h.UpdateProject(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = newContext(t, request{method: http.MethodPut, target: "/projects/" + id + "/team", body: projects.TeamRequest{TeamMembers: []uint{member.UserID, outsider.UserID}}, actor: &manager, params: map[string]string{"id": id}})
	require.NoError(t, h.SetTeam(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[projects.ProjectDetail](t, rec).TeamMembers, 2)
}

func TestProjectHandler_CreateProject_Invalid(t *testing.T) {
	h, db := setupProjectHandler(t)
	manager := createUser(t, db, "manager", models.RoleManager)

	body := projects.ProjectRequest{Name: "Backwards", StartDate: models.Today(), EndDate: models.Today().AddDays(-1)}
	c, rec := newContext(t, request{method: http.MethodPost, target: "/projects", body: body, actor: &manager})
	require.NoError(t, h.CreateProject(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[models.ErrorResponse](t, rec).Details, "end_date")
}

func TestProjectHandler_TaskProgress(t *testing.T) {
	h, db := setupProjectHandler(t)
	manager := createUser(t, db, "manager", models.RoleManager)
	member := createUser(t, db, "member", models.RoleEmployee)
	project := createProject(t, h, manager, member.UserID)
	id := idStr(project.ID)

	task := projects.TaskRequest{
		Title:      "Pack shelves",
		AssignedTo: &member.UserID,
		Priority:   models.TaskPriorityHigh,
		StartDate:  models.Today(),
		DueDate:    models.Today().AddDays(3),
	}
	c, rec := newContext(t, request{method: http.MethodPost, target: "/projects/" + id + "/tasks", body: task, actor: &manager, params: map[string]string{"id": id}})
	require.NoError(t, h.CreateTask(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Task](t, rec)
	assert.Equal(t, models.TaskStatusTodo, created.Status)
	assert.Nil(t, created.CompletedAt)

	c, rec = newContext(t, request{method: http.MethodGet, target: "/projects/tasks/assigned", actor: &member})
	require.NoError(t, h.AssignedTasks(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[models.ListResponse[models.Task]](t, rec).Data, 1)

	c, rec = newContext(t, request{method: http.MethodGet, target: "/projects/workload/" + idStr(member.UserID), actor: &member, params: map[string]string{"user_id": idStr(member.UserID)}})
	require.NoError(t, h.Workload(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	workload := decode[projects.Workload](t, rec)
	assert.Equal(t, int64(1), workload.ActiveTasks)
	assert.Equal(t, int64(1), workload.HighPriorityTasks)

	task.Status = models.TaskStatusCompleted
	taskID := idStr(created.ID)
	c, rec = newContext(t, request{method: http.MethodPut, target: "/projects/tasks/" + taskID, body: task, actor: &member, params: map[string]string{"id": taskID}})
	require.NoError(t, h.UpdateTask(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotNil(t, decode[models.Task](t, rec).CompletedAt)

	c, rec = newContext(t, request{method: http.MethodGet, target: "/projects/" + id, actor: &manager, params: map[string]string{"id": id}})
	require.NoError(t, h.GetProject(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100.0, decode[projects.ProjectDetail](t, rec).Progress)
}

func TestProjectHandler_WorkloadOfOthers(t *testing.T) {
	h, db := setupProjectHandler(t)
	manager := createUser(t, db, "manager", models.RoleManager)
	employee := createUser(t, db, "employee", models.RoleEmployee)
	other := createUser(t, db, "other", models.RoleEmployee)

	c, rec := newContext(t, request{method: http.MethodGet, target: "/projects/workload/" + idStr(other.UserID), actor: &employee, params: map[string]string{"user_id": idStr(other.UserID)}})
	require.NoError(t, h.Workload(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = newContext(t, request{method: http.MethodGet, target: "/projects/workload/" + idStr(other.UserID), actor: &manager, params: map[string]string{"user_id": idStr(other.UserID)}})
	require.NoError(t, h.Workload(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(t, request{method: http.MethodGet, target: "/projects/dashboard", actor: &employee})
	require.NoError(t, h.Dashboard(c))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	c, rec = newContext(t, request{method: http.MethodGet, target: "/projects/team-performance?team_members=1,x", actor: &manager})
	require.NoError(t, h.TeamPerformance(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
