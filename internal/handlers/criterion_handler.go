package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/instantquiz-service/internal/services"
	"github.com/SAP-F-2025/instantquiz-service/internal/utils"
)

type CriterionHandler struct {
	BaseHandler
	criterionService services.CriterionService
}

func NewCriterionHandler(criterionService services.CriterionService, logger utils.Logger) *CriterionHandler {
	return &CriterionHandler{
		BaseHandler:      NewBaseHandler(logger),
		criterionService: criterionService,
	}
}

// @Summary Create criterion
// @Tags criteria
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param criterion body services.CriterionRequest true "Criterion data"
// @Success 201 {object} models.Criterion
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /quizzes/{id}/criteria [post]
func (h *CriterionHandler) CreateCriterion(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	var req services.CriterionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	criterion, err := h.criterionService.Create(c.Request.Context(), quizID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, criterion)
}

// @Summary List criteria
// @Tags criteria
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {array} models.Criterion
// @Failure 403 {object} ErrorResponse
// @Router /quizzes/{id}/criteria [get]
func (h *CriterionHandler) ListCriteria(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	criteria, err := h.criterionService.List(c.Request.Context(), quizID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, criteria)
}

// @Summary Get criterion
// @Tags criteria
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param criterion_id path uint true "Criterion ID"
// @Success 200 {object} models.Criterion
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/criteria/{criterion_id} [get]
func (h *CriterionHandler) GetCriterion(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	id := h.parseIDParam(c, "criterion_id")
	if id == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	criterion, err := h.criterionService.GetByID(c.Request.Context(), quizID, id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, criterion)
}

// @Summary Update criterion
// @Tags criteria
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param criterion_id path uint true "Criterion ID"
// @Param criterion body services.CriterionRequest true "Criterion data"
// @Success 200 {object} models.Criterion
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/criteria/{criterion_id} [put]
func (h *CriterionHandler) UpdateCriterion(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	id := h.parseIDParam(c, "criterion_id")
	if id == 0 {
		return
	}

	var req services.CriterionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	criterion, err := h.criterionService.Update(c.Request.Context(), quizID, id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, criterion)
}

// @Summary Delete criterion
// @Tags criteria
// @Param id path uint true "Quiz ID"
// @Param criterion_id path uint true "Criterion ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/criteria/{criterion_id} [delete]
func (h *CriterionHandler) DeleteCriterion(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	id := h.parseIDParam(c, "criterion_id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting criterion", "quiz_id", quizID, "criterion_id", id)

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.criterionService.Delete(c.Request.Context(), quizID, id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
