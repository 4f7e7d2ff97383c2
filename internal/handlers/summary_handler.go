package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/instantquiz-service/internal/services"
	"github.com/SAP-F-2025/instantquiz-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type SummaryHandler struct {
	BaseHandler
	summaryService services.SummaryService
}

func NewSummaryHandler(summaryService services.SummaryService, logger utils.Logger) *SummaryHandler {
	return &SummaryHandler{
		BaseHandler:    NewBaseHandler(logger),
		summaryService: summaryService,
	}
}

// GetSummary returns the aggregated results of a quiz
// @Summary Quiz summary
// @Description Results per criterion, feedback and question over the current attempts
// @Tags summary
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} models.SummaryReport
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/summary [get]
func (h *SummaryHandler) GetSummary(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	report, err := h.summaryService.GetForUser(c.Request.Context(), quizID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ExportSummary downloads the summary as a workbook
// @Summary Export quiz summary
// @Tags summary
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Quiz ID"
// @Success 200 {file} file
// @Failure 403 {object} ErrorResponse
// @Router /quizzes/{id}/summary/export [get]
func (h *SummaryHandler) ExportSummary(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	h.LogRequest(c, "Exporting summary", "quiz_id", quizID)

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	buf, err := h.summaryService.ExportXLSX(c.Request.Context(), quizID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="quiz-%d-summary.xlsx"`, quizID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ResetSummary drops the cached summary so the next read recomputes it
// @Summary Reset quiz summary
// @Tags summary
// @Param id path uint true "Quiz ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Router /quizzes/{id}/summary [delete]
func (h *SummaryHandler) ResetSummary(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.summaryService.ResetForUser(c.Request.Context(), quizID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
