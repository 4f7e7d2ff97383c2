package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/instantquiz-service/internal/services"
	"github.com/SAP-F-2025/instantquiz-service/internal/utils"
)

type FeedbackHandler struct {
	BaseHandler
	feedbackService services.FeedbackService
}

func NewFeedbackHandler(feedbackService services.FeedbackService, logger utils.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		BaseHandler:     NewBaseHandler(logger),
		feedbackService: feedbackService,
	}
}

// @Summary Create feedback
// @Tags feedbacks
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param feedback body services.FeedbackRequest true "Feedback data"
// @Success 201 {object} models.Feedback
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /quizzes/{id}/feedbacks [post]
func (h *FeedbackHandler) CreateFeedback(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	var req services.FeedbackRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	feedback, err := h.feedbackService.Create(c.Request.Context(), quizID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, feedback)
}

// @Summary List feedbacks
// @Tags feedbacks
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {array} models.Feedback
// @Failure 403 {object} ErrorResponse
// @Router /quizzes/{id}/feedbacks [get]
func (h *FeedbackHandler) ListFeedbacks(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	feedbacks, err := h.feedbackService.List(c.Request.Context(), quizID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, feedbacks)
}

// @Summary Get feedback
// @Tags feedbacks
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param feedback_id path uint true "Feedback ID"
// @Success 200 {object} models.Feedback
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/feedbacks/{feedback_id} [get]
func (h *FeedbackHandler) GetFeedback(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	id := h.parseIDParam(c, "feedback_id")
	if id == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	feedback, err := h.feedbackService.GetByID(c.Request.Context(), quizID, id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, feedback)
}

// @Summary Update feedback
// @Tags feedbacks
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param feedback_id path uint true "Feedback ID"
// @Param feedback body services.FeedbackRequest true "Feedback data"
// @Success 200 {object} models.Feedback
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/feedbacks/{feedback_id} [put]
func (h *FeedbackHandler) UpdateFeedback(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	id := h.parseIDParam(c, "feedback_id")
	if id == 0 {
		return
	}

	var req services.FeedbackRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	feedback, err := h.feedbackService.Update(c.Request.Context(), quizID, id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, feedback)
}

// @Summary Delete feedback
// @Tags feedbacks
// @Param id path uint true "Quiz ID"
// @Param feedback_id path uint true "Feedback ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/feedbacks/{feedback_id} [delete]
func (h *FeedbackHandler) DeleteFeedback(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	id := h.parseIDParam(c, "feedback_id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting feedback", "quiz_id", quizID, "feedback_id", id)

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.feedbackService.Delete(c.Request.Context(), quizID, id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// PreviewFeedback evaluates a formula against ad-hoc scores without saving anything
// @Summary Preview feedback formula
// @Tags feedbacks
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param preview body services.FeedbackPreviewRequest true "Formula and scores"
// @Success 200 {object} services.FeedbackPreviewResponse
// @Failure 400 {object} ErrorResponse
// @Router /quizzes/{id}/feedbacks/preview [post]
func (h *FeedbackHandler) PreviewFeedback(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	var req services.FeedbackPreviewRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	preview, err := h.feedbackService.Preview(c.Request.Context(), quizID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, preview)
}
