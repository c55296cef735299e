package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"taskhub/internal/models"
	"taskhub/internal/services"
)

type TaskHandler struct {
	service services.TaskService
}

func NewTaskHandler(service services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

type createTaskRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     string              `json:"due_date"` // RFC3339
	ProjectID   int64               `json:"project_id"`
	AssignedTo  int64               `json:"assigned_to"`
}

// updateTaskRequest carries only the mutable fields; anything else in the
// body is ignored.
type updateTaskRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Status      *models.TaskStatus   `json:"status"`
	Priority    *models.TaskPriority `json:"priority"`
	DueDate     *string              `json:"due_date"` // RFC3339, "" clears
	AssignedTo  *int64               `json:"assigned_to"`
	ProjectID   *int64               `json:"project_id"`
}

// @Summary      Create task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        task  body      createTaskRequest  true  "Task"
// @Success      201   {object}  models.Task
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/task [post]
func (h *TaskHandler) Create(c *gin.Context) {
	actor := actorFrom(c)
	log.Printf("[task][create] call by userID=%d role=%d", actor.ID, actor.RoleID)

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[task][create][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var due *time.Time
	if req.DueDate != "" {
		t, err := time.Parse(time.RFC3339, req.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due_date (RFC3339)"})
			return
		}
		due = &t
	}

	task, err := h.service.Create(c.Request.Context(), actor, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     due,
		ProjectID:   req.ProjectID,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		respondError(c, "[task][create]", err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// @Summary      Get task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Task ID"
// @Success      200  {object}  models.Task
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/task/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	task, err := h.service.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, "[task][get]", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// @Summary      List tasks
// @Description  Admins see every active task, users only their own.
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        project_id   query     int     false  "Project"
// @Param        assigned_to  query     int     false  "Assignee (admin only)"
// @Param        status       query     string  false  "Status"
// @Param        priority     query     string  false  "Priority"
// @Success      200  {array}   models.Task
// @Router       /api/task [get]
func (h *TaskHandler) List(c *gin.Context) {
	actor := actorFrom(c)

	var filter models.TaskFilter
	if v, ok := c.GetQuery("project_id"); ok {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.ProjectID = &id
		} else {
			log.Printf("[task][list][warn] bad project_id=%q: %v", v, err)
		}
	}
	if v, ok := c.GetQuery("assigned_to"); ok {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.AssignedTo = &id
		} else {
			log.Printf("[task][list][warn] bad assigned_to=%q: %v", v, err)
		}
	}
	if v, ok := c.GetQuery("status"); ok {
		st := models.TaskStatus(v)
		filter.Status = &st
	}
	if v, ok := c.GetQuery("priority"); ok {
		p := models.TaskPriority(v)
		filter.Priority = &p
	}

	tasks, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, "[task][list]", err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	log.Printf("[task][list][ok] userID=%d count=%d", actor.ID, len(tasks))
	c.JSON(http.StatusOK, tasks)
}

// @Summary      Update task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                true  "Task ID"
// @Param        task  body      updateTaskRequest  true  "Changed fields"
// @Success      200   {object}  models.Task
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/task/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	actor := actorFrom(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	log.Printf("[task][update] call by userID=%d role=%d id=%d", actor.ID, actor.RoleID, id)

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[task][update][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch := models.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
		ProjectID:   req.ProjectID,
	}
	if req.DueDate != nil {
		due := time.Time{}
		if *req.DueDate != "" {
			t, err := time.Parse(time.RFC3339, *req.DueDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due_date (RFC3339)"})
				return
			}
			due = t
		}
		patch.DueDate = &due
	}

	task, err := h.service.Update(c.Request.Context(), actor, id, patch)
	if err != nil {
		respondError(c, "[task][update]", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// @Summary      Delete task
// @Description  Soft delete. A second delete answers 409.
// @Tags         Tasks
// @Security     BearerAuth
// @Param        id   path  int  true  "Task ID"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/task/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, "[task][delete]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}
