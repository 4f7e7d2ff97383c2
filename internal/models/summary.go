package models

import "time"

// Summary aggregates every current (finished, not overridden) attempt of a quiz.
type Summary struct {
	TotalCount int `json:"totalcount"`

	// Feedbacks counts how many attempts received each feedback; every feedback is present.
	Feedbacks map[uint]int `json:"feedbacks"`

	Points    AttemptPoints `json:"points"`
	MaxPoints AttemptPoints `json:"maxpoints"`

	// Answers tallies selected option indexes per question.
	Answers  map[uint]map[int]int `json:"answers"`
	Comments map[uint]int         `json:"comments"`

	ComputedAt time.Time `json:"computed_at"`
}

func NewSummary() *Summary {
	return &Summary{
		Feedbacks: make(map[uint]int),
		Points:    NewAttemptPoints(),
		MaxPoints: NewAttemptPoints(),
		Answers:   make(map[uint]map[int]int),
		Comments:  make(map[uint]int),
	}
}

type CriterionSummary struct {
	CriterionID uint    `json:"criterion_id"`
	Name        string  `json:"name"`
	Points      float64 `json:"points"`
	MaxPoints   float64 `json:"max_points"`
	Average     float64 `json:"average"`
}

type FeedbackSummary struct {
	FeedbackID uint   `json:"feedback_id"`
	Text       string `json:"text"`
	Count      int    `json:"count"`
}

type OptionSummary struct {
	Idx   int    `json:"idx"`
	Value string `json:"value"`
	Count int    `json:"count"`
}

type QuestionSummary struct {
	QuestionID uint            `json:"question_id"`
	Text       string          `json:"text"`
	Options    []OptionSummary `json:"options"`
	Comments   int             `json:"comments"`
	Points     PointMap        `json:"points"`
	MaxPoints  PointMap        `json:"max_points"`
}

// SummaryReport is the rendered form of a summary, in sort order.
type SummaryReport struct {
	QuizID      uint               `json:"quiz_id"`
	TotalCount  int                `json:"total_count"`
	ByCriterion []CriterionSummary `json:"by_criterion"`
	ByFeedback  []FeedbackSummary  `json:"by_feedback"`
	ByQuestion  []QuestionSummary  `json:"by_question"`
	ComputedAt  time.Time          `json:"computed_at"`
}
