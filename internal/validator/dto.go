package validator

import (
	"time"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
)

// QuizSettingsRequest carries the per-quiz attempt and result settings
type QuizSettingsRequest struct {
	AttemptsLimit     int        `json:"attempts_limit" validate:"min=0,max=1000"`
	AttemptDuration   int        `json:"attempt_duration" validate:"min=0"` // seconds
	ResultAfterAnswer bool       `json:"result_after_answer"`
	ResultMinDate     *time.Time `json:"result_min_date"`
	ResultMinAnswers  int        `json:"result_min_answers" validate:"min=0"`
}

func (r *QuizSettingsRequest) ToModel() models.QuizSettings {
	return models.QuizSettings{
		AttemptsLimit:     r.AttemptsLimit,
		AttemptDuration:   r.AttemptDuration,
		ResultAfterAnswer: r.ResultAfterAnswer,
		ResultMinDate:     r.ResultMinDate,
		ResultMinAnswers:  r.ResultMinAnswers,
	}
}

// QuizScheduleRequest replaces both ends of the open window; nil leaves an end open
type QuizScheduleRequest struct {
	TimeOpen  *time.Time `json:"time_open"`
	TimeClose *time.Time `json:"time_close"`
}

// QuizCreateRequest represents the request structure for creating quizzes
type QuizCreateRequest struct {
	Name      string               `json:"name" validate:"required,min=1,max=255"`
	Intro     string               `json:"intro" validate:"max=10000"`
	Template  string               `json:"template" validate:"omitempty,quiz_template"`
	TimeOpen  *time.Time           `json:"time_open"`
	TimeClose *time.Time           `json:"time_close"`
	Settings  *QuizSettingsRequest `json:"settings"`
}

// QuizUpdateRequest represents the request structure for updating quizzes.
// The template cannot be changed once the quiz exists.
type QuizUpdateRequest struct {
	Name     *string              `json:"name" validate:"omitempty,min=1,max=255"`
	Intro    *string              `json:"intro" validate:"omitempty,max=10000"`
	Template *string              `json:"template" validate:"omitempty,quiz_template"`
	Schedule *QuizScheduleRequest `json:"schedule"`
	Settings *QuizSettingsRequest `json:"settings"`
}

// QuizListRequest holds the query parameters of the quiz listing
type QuizListRequest struct {
	Search string `form:"search" validate:"max=255"`
	Mine   bool   `form:"mine"`
	Limit  int    `form:"limit" validate:"min=0,max=100"`
	Offset int    `form:"offset" validate:"min=0"`
}

// OptionRequest is one option of a question; Idx 0 asks for a fresh index
type OptionRequest struct {
	Idx    int              `json:"idx" validate:"min=0"`
	Value  string           `json:"value" validate:"required,max=1000"`
	Points map[uint]float64 `json:"points"`
}

func (r OptionRequest) ToModel() models.Option {
	option := models.Option{Idx: r.Idx, Value: r.Value}
	for criterionID, points := range r.Points {
		if points == 0 {
			continue
		}
		if option.Points == nil {
			option.Points = make(models.PointMap)
		}
		option.Points[criterionID] = points
	}
	return option
}

// QuestionCreateRequest represents the request structure for creating questions
type QuestionCreateRequest struct {
	Text       string          `json:"text" validate:"max=5000"`
	TextFormat string          `json:"text_format" validate:"omitempty,text_format"`
	SortOrder  *int            `json:"sort_order" validate:"omitempty,min=0"`
	Options    []OptionRequest `json:"options" validate:"omitempty,max=100,dive"`
	MinOptions int             `json:"min_options" validate:"min=0,max=100"`
	MaxOptions int             `json:"max_options" validate:"min=0,max=100"`
	Comment    string          `json:"comment" validate:"omitempty,comment_mode"`
}

// QuestionUpdateRequest represents a partial question update. A non-nil Options
// replaces the whole option list.
type QuestionUpdateRequest struct {
	Text       *string         `json:"text" validate:"omitempty,max=5000"`
	TextFormat *string         `json:"text_format" validate:"omitempty,text_format"`
	SortOrder  *int            `json:"sort_order" validate:"omitempty,min=0"`
	Options    []OptionRequest `json:"options" validate:"omitempty,max=100,dive"`
	MinOptions *int            `json:"min_options" validate:"omitempty,min=0,max=100"`
	MaxOptions *int            `json:"max_options" validate:"omitempty,min=0,max=100"`
	Comment    *string         `json:"comment" validate:"omitempty,comment_mode"`
}

// AddOptionRequest appends an option unless one with the same value exists
type AddOptionRequest struct {
	Value string `json:"value" validate:"required,max=1000"`
}

// OptionEvaluationRequest sets the points an option gives for one criterion
type OptionEvaluationRequest struct {
	Value       string  `json:"value" validate:"required,max=1000"`
	CriterionID uint    `json:"criterion_id" validate:"required"`
	Points      float64 `json:"points"`
}

// CriterionRequest creates or updates a criterion
type CriterionRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=255"`
	SortOrder *int    `json:"sort_order" validate:"omitempty,min=0"`
}

// FeedbackRequest creates or updates a feedback
type FeedbackRequest struct {
	Text       *string `json:"text" validate:"omitempty,max=10000"`
	TextFormat *string `json:"text_format" validate:"omitempty,text_format"`
	Formula    *string `json:"formula" validate:"omitempty,max=2000,formula"`
	SortOrder  *int    `json:"sort_order" validate:"omitempty,min=0"`
}

// FeedbackPreviewRequest evaluates a formula against ad-hoc criterion scores
type FeedbackPreviewRequest struct {
	Formula string             `json:"formula" validate:"max=2000,formula"`
	Scores  map[string]float64 `json:"scores"`
}

// AnswersRequest carries answers keyed by question id
type AnswersRequest struct {
	Answers models.AnswerSet `json:"answers"`
}
