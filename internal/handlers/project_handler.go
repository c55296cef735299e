package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskhub/internal/models"
	"taskhub/internal/services"
)

type ProjectHandler struct {
	service services.ProjectService
}

func NewProjectHandler(service services.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

type createProjectRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Members     []int64 `json:"members"`
}

// @Summary      Create project
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        project  body      createProjectRequest  true  "Project"
// @Success      201      {object}  models.Project
// @Failure      403      {object}  map[string]string
// @Router       /api/project [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.service.Create(c.Request.Context(), actorFrom(c), services.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Members:     req.Members,
	})
	if err != nil {
		respondError(c, "[project][create]", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary      List projects
// @Description  Without page or limit every active project is returned as an array.
// @Description  With either one the response is a models.ProjectPage.
// @Tags         Projects
// @Produce      json
// @Security     BearerAuth
// @Param        page   query  int  false  "Page, from 1"
// @Param        limit  query  int  false  "Page size (default 10, max 100)"
// @Success      200  {array}  models.Project
// @Router       /api/project [get]
func (h *ProjectHandler) List(c *gin.Context) {
	pageStr, paged := c.GetQuery("page")
	limitStr, limited := c.GetQuery("limit")
	if paged || limited {
		page, _ := strconv.Atoi(pageStr)
		limit, _ := strconv.Atoi(limitStr)
		res, err := h.service.ListPage(c.Request.Context(), page, limit)
		if err != nil {
			respondError(c, "[project][list]", err)
			return
		}
		c.JSON(http.StatusOK, res)
		return
	}

	items, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, "[project][list]", err)
		return
	}
	if items == nil {
		items = []models.Project{}
	}
	c.JSON(http.StatusOK, items)
}

// @Summary      Get project
// @Tags         Projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Project ID"
// @Success      200  {object}  models.Project
// @Failure      404  {object}  map[string]string
// @Router       /api/project/{id} [get]
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, "[project][get]", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary      Update project
// @Description  Admins and the project's creator only. Omitted fields are kept.
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                  true  "Project ID"
// @Param        project  body      models.ProjectPatch  true  "Changed fields"
// @Success      200      {object}  models.Project
// @Failure      400      {object}  map[string]string
// @Failure      403      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Router       /api/project/{id} [put]
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var patch models.ProjectPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.service.Update(c.Request.Context(), actorFrom(c), id, patch)
	if err != nil {
		respondError(c, "[project][update]", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary      Delete project
// @Tags         Projects
// @Security     BearerAuth
// @Param        id   path  int  true  "Project ID"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/project/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, "[project][delete]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}
