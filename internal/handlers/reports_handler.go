package handlers

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"taskhub/internal/authz"
	"taskhub/internal/models"
	"taskhub/internal/pdf"
	"taskhub/internal/services"
)

// ReportHandler serves the admin audit trail as JSON and as PDF.
type ReportHandler struct {
	Recorder *services.ActivityRecorder
	PDF      pdf.Generator
}

func NewReportHandler(recorder *services.ActivityRecorder, gen pdf.Generator) *ReportHandler {
	return &ReportHandler{Recorder: recorder, PDF: gen}
}

func activityFilter(c *gin.Context) models.ActivityFilter {
	var f models.ActivityFilter
	if v, ok := c.GetQuery("task_id"); ok {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.TaskID = &id
		}
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return f
}

// @Summary      Activity logs
// @Description  Audit entries, newest first.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        task_id  query  int  false  "Task"
// @Param        limit   query  int  false  "Page size (max 500)"
// @Param        offset  query  int  false  "Offset"
// @Success      200  {array}   models.ActivityLog
// @Failure      403  {object}  map[string]string
// @Router       /api/admin/active-logs [get]
func (h *ReportHandler) ActivityLogs(c *gin.Context) {
	actor := actorFrom(c)
	if !authz.Can(actor, authz.ActionActivityRead, authz.Resource{}) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	logs, err := h.Recorder.List(c.Request.Context(), activityFilter(c))
	if err != nil {
		respondError(c, "[activity][list]", err)
		return
	}
	if logs == nil {
		logs = []models.ActivityLog{}
	}
	c.JSON(http.StatusOK, logs)
}

// @Summary      Activity report (PDF)
// @Tags         Admin
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        task_id  query  int  false  "Task"
// @Success      200
// @Failure      403  {object}  map[string]string
// @Router       /api/admin/active-logs.pdf [get]
func (h *ReportHandler) ActivityLogsPDF(c *gin.Context) {
	actor := actorFrom(c)
	if !authz.Can(actor, authz.ActionActivityRead, authz.Resource{}) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	logs, err := h.Recorder.List(c.Request.Context(), activityFilter(c))
	if err != nil {
		respondError(c, "[activity][pdf]", err)
		return
	}

	now := time.Now()
	var buf bytes.Buffer
	err = h.PDF.ActivityReport(&buf, pdf.ActivityReportData{
		GeneratedAt: now,
		GeneratedBy: actor.Name,
		Entries:     logs,
	})
	if err != nil {
		log.Printf("[activity][pdf][err] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render report"})
		return
	}
	name := fmt.Sprintf("activity_%s.pdf", now.Format("20060102_1504"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
