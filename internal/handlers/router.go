package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/services"
	"github.com/SAP-F-2025/instantquiz-service/internal/utils"
	"github.com/SAP-F-2025/instantquiz-service/pkg/monitoring"
)

type HandlerManager struct {
	quizHandler      *QuizHandler
	questionHandler  *QuestionHandler
	criterionHandler *CriterionHandler
	feedbackHandler  *FeedbackHandler
	attemptHandler   *AttemptHandler
	summaryHandler   *SummaryHandler
	auth             Authenticator
	health           func(ctx context.Context) error
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger, auth Authenticator) *HandlerManager {
	return &HandlerManager{
		quizHandler:      NewQuizHandler(serviceManager.Quiz(), logger),
		questionHandler:  NewQuestionHandler(serviceManager.Question(), logger),
		criterionHandler: NewCriterionHandler(serviceManager.Criterion(), logger),
		feedbackHandler:  NewFeedbackHandler(serviceManager.Feedback(), logger),
		attemptHandler:   NewAttemptHandler(serviceManager.Attempt(), logger),
		summaryHandler:   NewSummaryHandler(serviceManager.Summary(), logger),
		auth:             auth,
		health:           serviceManager.HealthCheck,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.HealthCheck)
	router.GET("/metrics", monitoring.PrometheusHandler())

	v1 := router.Group("/api/v1")
	v1.Use(hm.auth.AuthMiddleware())
	{
		quizzes := v1.Group("/quizzes")
		{
			quizzes.POST("", RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.quizHandler.CreateQuiz)
			quizzes.GET("", hm.quizHandler.ListQuizzes)
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)
			quizzes.PUT("/:id", hm.quizHandler.UpdateQuiz)
			quizzes.DELETE("/:id", hm.quizHandler.DeleteQuiz)

			// Questions
			quizzes.GET("/:id/questions", hm.questionHandler.ListQuestions)
			quizzes.POST("/:id/questions", hm.questionHandler.CreateQuestion)
			quizzes.GET("/:id/questions/:question_id", hm.questionHandler.GetQuestion)
			quizzes.PUT("/:id/questions/:question_id", hm.questionHandler.UpdateQuestion)
			quizzes.DELETE("/:id/questions/:question_id", hm.questionHandler.DeleteQuestion)
			quizzes.POST("/:id/questions/:question_id/options", hm.questionHandler.AddOption)
			quizzes.PUT("/:id/questions/:question_id/evaluation", hm.questionHandler.SetOptionEvaluation)

			// Criteria
			quizzes.GET("/:id/criteria", hm.criterionHandler.ListCriteria)
			quizzes.POST("/:id/criteria", hm.criterionHandler.CreateCriterion)
			quizzes.GET("/:id/criteria/:criterion_id", hm.criterionHandler.GetCriterion)
			quizzes.PUT("/:id/criteria/:criterion_id", hm.criterionHandler.UpdateCriterion)
			quizzes.DELETE("/:id/criteria/:criterion_id", hm.criterionHandler.DeleteCriterion)

			// Feedbacks
			quizzes.GET("/:id/feedbacks", hm.feedbackHandler.ListFeedbacks)
			quizzes.POST("/:id/feedbacks", hm.feedbackHandler.CreateFeedback)
			quizzes.POST("/:id/feedbacks/preview", hm.feedbackHandler.PreviewFeedback)
			quizzes.GET("/:id/feedbacks/:feedback_id", hm.feedbackHandler.GetFeedback)
			quizzes.PUT("/:id/feedbacks/:feedback_id", hm.feedbackHandler.UpdateFeedback)
			quizzes.DELETE("/:id/feedbacks/:feedback_id", hm.feedbackHandler.DeleteFeedback)

			// Summary
			quizzes.GET("/:id/summary", hm.summaryHandler.GetSummary)
			quizzes.GET("/:id/summary/export", hm.summaryHandler.ExportSummary)
			quizzes.DELETE("/:id/summary", hm.summaryHandler.ResetSummary)

			// Attempts of a quiz
			quizzes.GET("/:id/attempts", hm.attemptHandler.ListAttempts)
			quizzes.POST("/:id/attempts", hm.attemptHandler.StartAttempt)
			quizzes.GET("/:id/attempts/eligibility", hm.attemptHandler.GetEligibility)
			quizzes.GET("/:id/attempts/current", hm.attemptHandler.GetCurrentAttempt)
			quizzes.GET("/:id/attempts/history", hm.attemptHandler.GetHistory)
			quizzes.POST("/:id/attempts/reevaluate", hm.attemptHandler.ReevaluateAll)
		}

		attempts := v1.Group("/attempts")
		{
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.PUT("/:id/answers", hm.attemptHandler.SaveAnswers)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.POST("/:id/reevaluate", hm.attemptHandler.ReevaluateAttempt)
			attempts.GET("/:id/feedbacks", hm.attemptHandler.GetAttemptFeedbacks)
		}
	}
}

// HealthCheck reports whether the store is reachable
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	if err := hm.health(ctx); err != nil {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "instantquiz-service",
	})
}
