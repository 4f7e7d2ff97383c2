package services

import (
	"bytes"
	"context"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateQuizRequest = validator.QuizCreateRequest
type UpdateQuizRequest = validator.QuizUpdateRequest
type ListQuizzesRequest = validator.QuizListRequest

type CreateQuestionRequest = validator.QuestionCreateRequest
type UpdateQuestionRequest = validator.QuestionUpdateRequest
type AddOptionRequest = validator.AddOptionRequest
type OptionEvaluationRequest = validator.OptionEvaluationRequest

type CriterionRequest = validator.CriterionRequest
type FeedbackRequest = validator.FeedbackRequest
type FeedbackPreviewRequest = validator.FeedbackPreviewRequest

type AnswersRequest = validator.AnswersRequest

type QuizResponse struct {
	*models.Quiz
	CanManage      bool `json:"can_manage"`
	CanAttempt     bool `json:"can_attempt"`
	CanViewSummary bool `json:"can_view_summary"`
}

type QuizListResponse struct {
	Quizzes []*QuizResponse `json:"quizzes"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

type AttemptResponse struct {
	*models.Attempt
	Status models.AttemptStatus `json:"status"`

	// Errors holds validation messages of answers that were rejected, by question id
	Errors map[uint][]string `json:"errors,omitempty"`
	// Unanswered lists what is still missing, by question id
	Unanswered map[uint]string `json:"unanswered,omitempty"`

	FeedbackDetails []*models.Feedback `json:"feedback_details,omitempty"`
	TimeRemaining   *int               `json:"time_remaining,omitempty"` // seconds
}

type EligibilityResponse struct {
	CanStart      bool   `json:"can_start"`
	Reason        string `json:"reason,omitempty"`
	Message       string `json:"message,omitempty"`
	AttemptsUsed  int64  `json:"attempts_used"`
	AttemptsLimit int    `json:"attempts_limit"`
}

type FeedbackPreviewResponse struct {
	Applicable bool     `json:"applicable"`
	References []string `json:"references"`
}

type ReevaluateResponse struct {
	Evaluated int `json:"evaluated"`
	Changed   int `json:"changed"`
}

// ===== SERVICE INTERFACES =====

type QuizService interface {
	Create(ctx context.Context, req *CreateQuizRequest, userID string) (*QuizResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*QuizResponse, error)
	Update(ctx context.Context, id uint, req *UpdateQuizRequest, userID string) (*QuizResponse, error)
	Delete(ctx context.Context, id uint, userID string) error
	List(ctx context.Context, req *ListQuizzesRequest, userID string) (*QuizListResponse, error)
}

type QuestionService interface {
	Create(ctx context.Context, quizID uint, req *CreateQuestionRequest, userID string) (*models.Question, error)
	GetByID(ctx context.Context, quizID, id uint, userID string) (*models.Question, error)
	Update(ctx context.Context, quizID, id uint, req *UpdateQuestionRequest, userID string) (*models.Question, error)
	Delete(ctx context.Context, quizID, id uint, userID string) error
	List(ctx context.Context, quizID uint, userID string) ([]*models.Question, error)

	AddOption(ctx context.Context, quizID, id uint, req *AddOptionRequest, userID string) (*models.Question, error)
	SetOptionEvaluation(ctx context.Context, quizID, id uint, req *OptionEvaluationRequest, userID string) (*models.Question, error)
}

type CriterionService interface {
	Create(ctx context.Context, quizID uint, req *CriterionRequest, userID string) (*models.Criterion, error)
	GetByID(ctx context.Context, quizID, id uint, userID string) (*models.Criterion, error)
	Update(ctx context.Context, quizID, id uint, req *CriterionRequest, userID string) (*models.Criterion, error)
	Delete(ctx context.Context, quizID, id uint, userID string) error
	List(ctx context.Context, quizID uint, userID string) ([]*models.Criterion, error)
}

type FeedbackService interface {
	Create(ctx context.Context, quizID uint, req *FeedbackRequest, userID string) (*models.Feedback, error)
	GetByID(ctx context.Context, quizID, id uint, userID string) (*models.Feedback, error)
	Update(ctx context.Context, quizID, id uint, req *FeedbackRequest, userID string) (*models.Feedback, error)
	Delete(ctx context.Context, quizID, id uint, userID string) error
	List(ctx context.Context, quizID uint, userID string) ([]*models.Feedback, error)
	Preview(ctx context.Context, quizID uint, req *FeedbackPreviewRequest, userID string) (*FeedbackPreviewResponse, error)
}

type AttemptService interface {
	// Core lifecycle
	Start(ctx context.Context, quizID uint, userID string) (*AttemptResponse, error)
	SaveAnswers(ctx context.Context, attemptID uint, answers models.AnswerSet, userID string) (*AttemptResponse, error)
	Submit(ctx context.Context, attemptID uint, answers models.AnswerSet, userID string) (*AttemptResponse, error)
	Reevaluate(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error)
	ReevaluateAll(ctx context.Context, quizID uint, userID string) (*ReevaluateResponse, error)

	// Eligibility; the Check variants return the policy error, the Can variants report it as false
	CanStart(ctx context.Context, quizID uint, userID string) (bool, error)
	CheckStart(ctx context.Context, quizID uint, userID string) error
	Eligibility(ctx context.Context, quizID uint, userID string) (*EligibilityResponse, error)
	CanContinue(ctx context.Context, attemptID uint, userID string) (bool, error)
	CheckContinue(ctx context.Context, attemptID uint, userID string) error
	CanView(ctx context.Context, attempt *models.Attempt, userID string) (bool, error)

	// Queries
	GetCurrentAttempt(ctx context.Context, quizID uint, userID string) (*models.Attempt, error)
	GetHistory(ctx context.Context, quizID uint, userID string) ([]*models.Attempt, error)
	CountFinished(ctx context.Context, quizID uint, userID string) (int64, error)
	ListCurrent(ctx context.Context, quizID uint, userID string) ([]*models.Attempt, error)
	GetAttempt(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error)
	GetFeedbacks(ctx context.Context, attemptID uint, userID string) ([]*models.Feedback, error)
}

type SummaryService interface {
	Get(ctx context.Context, quizID uint) (*models.Summary, error)
	GetForUser(ctx context.Context, quizID uint, userID string) (*models.SummaryReport, error)
	Reset(ctx context.Context, quizID uint)
	ResetForUser(ctx context.Context, quizID uint, userID string) error
	// EntityUpdated invalidates the summary after a contributing entity changed
	EntityUpdated(ctx context.Context, quizID uint, entity string, entityID uint)
	ExportXLSX(ctx context.Context, quizID uint, userID string) (*bytes.Buffer, error)
}

// ServiceManager manages all services
type ServiceManager interface {
	Quiz() QuizService
	Question() QuestionService
	Criterion() CriterionService
	Feedback() FeedbackService
	Attempt() AttemptService
	Summary() SummaryService
	Templates() *TemplateRegistry

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
