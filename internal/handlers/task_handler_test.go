package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/authz"
	"taskhub/internal/middleware"
	"taskhub/internal/models"
	"taskhub/internal/services"
)

func init() { gin.SetMode(gin.TestMode) }

type stubTaskService struct {
	actor  authz.Actor
	create services.CreateTaskInput
	patch  models.TaskPatch
	filter models.TaskFilter
	err    error
}

func (s *stubTaskService) Create(_ context.Context, actor authz.Actor, in services.CreateTaskInput) (*models.Task, error) {
	s.actor, s.create = actor, in
	if s.err != nil {
		return nil, s.err
	}
	return &models.Task{ID: 50, Title: in.Title, Status: models.StatusTodo}, nil
}

func (s *stubTaskService) Get(_ context.Context, actor authz.Actor, id int64) (*models.Task, error) {
	s.actor = actor
	if s.err != nil {
		return nil, s.err
	}
	return &models.Task{ID: id, Title: "Write report"}, nil
}

func (s *stubTaskService) List(_ context.Context, actor authz.Actor, f models.TaskFilter) ([]models.Task, error) {
	s.actor, s.filter = actor, f
	return nil, s.err
}

func (s *stubTaskService) Update(_ context.Context, actor authz.Actor, id int64, p models.TaskPatch) (*models.Task, error) {
	s.actor, s.patch = actor, p
	if s.err != nil {
		return nil, s.err
	}
	return &models.Task{ID: id}, nil
}

func (s *stubTaskService) Delete(_ context.Context, actor authz.Actor, _ int64) error {
	s.actor = actor
	return s.err
}

func taskRouter(svc services.TaskService) *gin.Engine {
	h := NewTaskHandler(svc)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.CtxUserID, int64(2))
		c.Set(middleware.CtxRoleID, authz.RoleUser)
		c.Set(middleware.CtxUserName, "Alice")
		c.Next()
	})
	r.POST("/api/task", h.Create)
	r.GET("/api/task", h.List)
	r.GET("/api/task/:id", h.GetByID)
	r.PUT("/api/task/:id", h.Update)
	r.DELETE("/api/task/:id", h.Delete)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestTaskHandler_Create(t *testing.T) {
	svc := &stubTaskService{}
	w := do(taskRouter(svc), http.MethodPost, "/api/task",
		`{"title":"Write report","project_id":7,"assigned_to":3,"due_date":"2025-03-11T12:00:00Z"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, authz.Actor{ID: 2, RoleID: authz.RoleUser, Name: "Alice"}, svc.actor)
	assert.Equal(t, "Write report", svc.create.Title)
	assert.Equal(t, int64(7), svc.create.ProjectID)
	assert.Equal(t, int64(3), svc.create.AssignedTo)
	require.NotNil(t, svc.create.DueDate)
	assert.Equal(t, 11, svc.create.DueDate.Day())
}

func TestTaskHandler_CreateBadDueDate(t *testing.T) {
	w := do(taskRouter(&stubTaskService{}), http.MethodPost, "/api/task", `{"title":"x","due_date":"tomorrow"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid due_date (RFC3339)", errorBody(t, w))
}

func TestTaskHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		reason string
	}{
		{fmt.Errorf("%w: title is required", services.ErrValidation), http.StatusBadRequest, "title is required"},
		{fmt.Errorf("%w: task 9", services.ErrNotFound), http.StatusNotFound, "task 9"},
		{fmt.Errorf("%w: not your task", services.ErrForbidden), http.StatusForbidden, "not your task"},
		{fmt.Errorf("%w: already deleted", services.ErrConflict), http.StatusConflict, "already deleted"},
		{fmt.Errorf("%w: update task: conn reset", services.ErrPersistence), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			w := do(taskRouter(&stubTaskService{err: tt.err}), http.MethodPut, "/api/task/9", `{"title":"x"}`)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.reason, errorBody(t, w))
		})
	}
}

func TestTaskHandler_UpdatePatch(t *testing.T) {
	svc := &stubTaskService{}
	w := do(taskRouter(svc), http.MethodPut, "/api/task/9", `{"status":"Done","due_date":"","created_by":1}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.patch.Status)
	assert.Equal(t, models.StatusDone, *svc.patch.Status)
	require.NotNil(t, svc.patch.DueDate)
	assert.True(t, svc.patch.DueDate.IsZero(), "empty due_date clears")
	assert.Nil(t, svc.patch.Title)
}

func TestTaskHandler_InvalidID(t *testing.T) {
	r := taskRouter(&stubTaskService{})
	for _, path := range []string{"/api/task/abc", "/api/task/0", "/api/task/-1"} {
		w := do(r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestTaskHandler_ListFilters(t *testing.T) {
	svc := &stubTaskService{}
	w := do(taskRouter(svc), http.MethodGet, "/api/task?project_id=7&status=Todo&assigned_to=oops", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	require.NotNil(t, svc.filter.ProjectID)
	assert.Equal(t, int64(7), *svc.filter.ProjectID)
	require.NotNil(t, svc.filter.Status)
	assert.Equal(t, models.StatusTodo, *svc.filter.Status)
	assert.Nil(t, svc.filter.AssignedTo)
	assert.Nil(t, svc.filter.Priority)
}

func TestTaskHandler_Delete(t *testing.T) {
	w := do(taskRouter(&stubTaskService{}), http.MethodDelete, "/api/task/9", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Task deleted successfully"}`, w.Body.String())
}
