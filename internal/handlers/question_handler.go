package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/instantquiz-service/internal/services"
	"github.com/SAP-F-2025/instantquiz-service/internal/utils"
)

type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
}

func NewQuestionHandler(questionService services.QuestionService, logger utils.Logger) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger),
		questionService: questionService,
	}
}

// quizAndQuestion parses both path ids; zero means a response was already written
func (h *QuestionHandler) quizAndQuestion(c *gin.Context) (uint, uint) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return 0, 0
	}
	return quizID, h.parseIDParam(c, "question_id")
}

// CreateQuestion adds a question to a quiz
// @Summary Create question
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param question body services.CreateQuestionRequest true "Question data"
// @Success 201 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/questions [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	h.LogRequest(c, "Creating question", "quiz_id", quizID)

	var req services.CreateQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), quizID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// ListQuestions lists the questions of a quiz in display order
// @Summary List questions
// @Tags questions
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {array} models.Question
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/questions [get]
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	questions, err := h.questionService.List(c.Request.Context(), quizID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

// GetQuestion returns one question
// @Summary Get question
// @Tags questions
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param question_id path uint true "Question ID"
// @Success 200 {object} models.Question
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/questions/{question_id} [get]
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	quizID, id := h.quizAndQuestion(c)
	if id == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	question, err := h.questionService.GetByID(c.Request.Context(), quizID, id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// UpdateQuestion updates a question; a given options list replaces the current one
// @Summary Update question
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param question_id path uint true "Question ID"
// @Param question body services.UpdateQuestionRequest true "Question data"
// @Success 200 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/questions/{question_id} [put]
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	quizID, id := h.quizAndQuestion(c)
	if id == 0 {
		return
	}

	h.LogRequest(c, "Updating question", "quiz_id", quizID, "question_id", id)

	var req services.UpdateQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	question, err := h.questionService.Update(c.Request.Context(), quizID, id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// DeleteQuestion removes a question
// @Summary Delete question
// @Tags questions
// @Param id path uint true "Quiz ID"
// @Param question_id path uint true "Question ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/questions/{question_id} [delete]
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	quizID, id := h.quizAndQuestion(c)
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting question", "quiz_id", quizID, "question_id", id)

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), quizID, id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddOption appends an option unless one with the same value exists
// @Summary Add option
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param question_id path uint true "Question ID"
// @Param option body services.AddOptionRequest true "Option"
// @Success 200 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/questions/{question_id}/options [post]
func (h *QuestionHandler) AddOption(c *gin.Context) {
	quizID, id := h.quizAndQuestion(c)
	if id == 0 {
		return
	}

	var req services.AddOptionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	question, err := h.questionService.AddOption(c.Request.Context(), quizID, id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// SetOptionEvaluation sets the points an option gives for a criterion
// @Summary Set option evaluation
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param question_id path uint true "Question ID"
// @Param evaluation body services.OptionEvaluationRequest true "Evaluation"
// @Success 200 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/questions/{question_id}/evaluation [put]
func (h *QuestionHandler) SetOptionEvaluation(c *gin.Context) {
	quizID, id := h.quizAndQuestion(c)
	if id == 0 {
		return
	}

	var req services.OptionEvaluationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	question, err := h.questionService.SetOptionEvaluation(c.Request.Context(), quizID, id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}
