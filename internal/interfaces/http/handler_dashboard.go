package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"intake_bot/internal/entities"
	"intake_bot/internal/intake"
	"intake_bot/internal/repository"
)

func (h *Handler) GetDashboard(c *gin.Context) {
	stats, err := h.deps.Dashboard.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "dashboard")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// pageFromQuery reads ?page=&page_size= (1-based pages)
func pageFromQuery(c *gin.Context) repository.Page {
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(repository.DefaultPageSize)))
	if size <= 0 || size > repository.MaxPageSize {
		size = repository.DefaultPageSize
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	return repository.Page{Limit: size, Offset: (page - 1) * size}
}

// parseDate accepts YYYY-MM-DD or RFC3339
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", s)
	}
	return &t, nil
}

func formFilterFromQuery(c *gin.Context) (repository.FormFilter, error) {
	f := repository.FormFilter{
		Status:  c.Query("status"),
		Project: c.Query("project"),
		School:  c.Query("school"),
		GroupID: c.Query("group_id"),
		Page:    pageFromQuery(c),
	}
	if f.Status != "" && !entities.ValidFormStatus(f.Status) {
		return f, fmt.Errorf("invalid status %q", f.Status)
	}

	var err error
	if f.From, err = parseDate(c.Query("from")); err != nil {
		return f, err
	}
	if f.To, err = parseDate(c.Query("to")); err != nil {
		return f, err
	}
	// a bare date for "to" includes that whole day
	if f.To != nil && len(c.Query("to")) == len(time.DateOnly) {
		end := f.To.AddDate(0, 0, 1)
		f.To = &end
	}
	return f, nil
}

func (h *Handler) ListForms(c *gin.Context) {
	filter, err := formFilterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	forms, total, err := h.deps.Forms.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err, "intake forms")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"results":   forms,
		"count":     total,
		"page_size": filter.Limit,
		"offset":    filter.Offset,
	})
}

func formID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) GetForm(c *gin.Context) {
	id, ok := formID(c)
	if !ok {
		return
	}
	form, err := h.deps.Forms.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "intake form")
		return
	}
	c.JSON(http.StatusOK, form)
}

func (h *Handler) UpdateFormStatus(c *gin.Context) {
	id, ok := formID(c)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !entities.ValidFormStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status must be one of new, processing, completed, rejected"})
		return
	}

	if err := h.deps.Forms.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		h.respondError(c, err, "intake form")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
}

func (h *Handler) DeleteForm(c *gin.Context) {
	id, ok := formID(c)
	if !ok {
		return
	}
	if err := h.deps.Forms.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "intake form")
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportForms streams matching forms as a CSV download
func (h *Handler) ExportForms(c *gin.Context) {
	filter, err := formFilterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filename := fmt.Sprintf("intake_forms_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	n, err := h.deps.Forms.ExportCSV(c.Request.Context(), filter, c.Writer)
	if err != nil {
		// headers are already sent
		h.log.Error().Err(err).Int("rows", n).Msg("csv export interrupted")
		return
	}
	h.log.Info().Int("rows", n).Msg("forms exported")
}

func (h *Handler) ListMessageLogs(c *gin.Context) {
	filter := repository.LogFilter{
		MessageType: c.Query("message_type"),
		Phone:       c.Query("phone"),
		Page:        pageFromQuery(c),
	}
	if p := c.Query("processed"); p != "" {
		processed, err := strconv.ParseBool(p)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "processed must be true or false"})
			return
		}
		filter.Processed = &processed
	}

	logs, total, err := h.deps.Logs.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err, "message logs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": logs, "count": total})
}

// ParseMessage runs the classifier and extractor on posted text without storing anything
func (h *Handler) ParseMessage(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
		Phone   string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	if !ValidateLength(req.Message, 1, MaxParseLength) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message too long"})
		return
	}

	result := intake.Extract(req.Message)
	c.JSON(http.StatusOK, gin.H{
		"result":               result,
		"normalized":           intake.Normalize(result, req.Phone),
		"complete":             result.IsComplete(),
		"marker_table_version": intake.MarkerTableVersion,
	})
}
