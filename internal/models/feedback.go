package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/instantquiz-service/internal/formula"
)

const DefaultFeedbackText = "Thank you"

type FeedbackAddInfo struct {
	Formula string `json:"formula,omitempty"`
}

type Feedback struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuizID     uint   `json:"quiz_id" gorm:"not null;index:idx_feedback_quiz_sort,priority:1"`
	Text       string `json:"text" gorm:"type:text"`
	TextFormat string `json:"text_format" gorm:"size:20;default:html"`
	SortOrder  int    `json:"sort_order" gorm:"not null;default:0;index:idx_feedback_quiz_sort,priority:2"`

	AddInfoData datatypes.JSON  `json:"-" gorm:"column:addinfo;type:jsonb"`
	AddInfo     FeedbackAddInfo `json:"addinfo" gorm:"-"`

	// IsDefault marks the synthetic feedback that is never persisted.
	IsDefault bool `json:"is_default,omitempty" gorm:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Feedback) TableName() string {
	return "instantquiz_feedbacks"
}

func (f *Feedback) GetID() uint            { return f.ID }
func (f *Feedback) SetID(id uint)          { f.ID = id }
func (f *Feedback) GetQuizID() uint        { return f.QuizID }
func (f *Feedback) GetSortOrder() int      { return f.SortOrder }
func (f *Feedback) SetSortOrder(order int) { f.SortOrder = order }

func (f *Feedback) EncodePayload() error {
	data, err := encodePayload(f.AddInfo)
	if err != nil {
		return fmt.Errorf("failed to encode addinfo: %w", err)
	}
	f.AddInfoData = data
	return nil
}

func (f *Feedback) DecodePayload() {
	f.AddInfo = decodePayload[FeedbackAddInfo]("feedback", "addinfo", f.AddInfoData)
}

func (f *Feedback) BeforeSave(tx *gorm.DB) error {
	return f.EncodePayload()
}

func (f *Feedback) AfterFind(tx *gorm.DB) error {
	f.DecodePayload()
	return nil
}

// IsApplicable evaluates the feedback formula against per-criterion totals.
// An empty formula always applies. ${Name} is matched case-insensitively against
// criterion names and unknown names evaluate to 0.
func (f *Feedback) IsApplicable(scores PointMap, criteria []*Criterion) (bool, error) {
	if strings.TrimSpace(f.AddInfo.Formula) == "" {
		return true, nil
	}

	vars := formula.Variables{}
	for _, criterion := range criteria {
		vars.Add(criterion.Name, scores[criterion.ID])
	}

	return formula.Evaluate(f.AddInfo.Formula, vars)
}

// DefaultFeedback is shown when no stored feedback applies.
func DefaultFeedback(quizID uint) *Feedback {
	return &Feedback{
		QuizID:     quizID,
		Text:       DefaultFeedbackText,
		TextFormat: "html",
		IsDefault:  true,
	}
}

func DefaultFeedbackName(sortOrder int) string {
	return fmt.Sprintf("Feedback %d", sortOrder+1)
}
