package models

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptFinished   AttemptStatus = "finished"
	AttemptOverridden AttemptStatus = "overridden"
)

// Answer is the response to one question: the selected option indexes and an optional comment.
type Answer struct {
	Options []int  `json:"options,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// UnmarshalJSON also accepts the legacy single "option" field and the
// {"idx": 1} object form of the selection.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var raw struct {
		Options json.RawMessage `json:"options"`
		Option  *int            `json:"option"`
		Comment string          `json:"comment"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.Comment = raw.Comment
	a.Options = nil

	if len(raw.Options) > 0 && string(raw.Options) != "null" {
		var list []int
		if err := json.Unmarshal(raw.Options, &list); err == nil {
			a.Options = list
		} else {
			var set map[string]any
			if err := json.Unmarshal(raw.Options, &set); err != nil {
				return fmt.Errorf("options must be a list or an object: %w", err)
			}
			for key, value := range set {
				idx, err := strconv.Atoi(key)
				if err != nil {
					return fmt.Errorf("invalid option index %q", key)
				}
				if isChecked(value) {
					a.Options = append(a.Options, idx)
				}
			}
			slices.Sort(a.Options)
		}
	}

	if raw.Option != nil && !slices.Contains(a.Options, *raw.Option) {
		a.Options = append(a.Options, *raw.Option)
	}
	return nil
}

func isChecked(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != "" && v != "0"
	default:
		return false
	}
}

func (a *Answer) Selected() []int {
	if a == nil {
		return nil
	}
	return a.Options
}

func (a Answer) Equal(other Answer) bool {
	return a.Comment == other.Comment && slices.Equal(a.Options, other.Options)
}

// AnswerSet maps a question id to its answer.
type AnswerSet map[uint]Answer

func (s AnswerSet) Get(questionID uint) *Answer {
	answer, ok := s[questionID]
	if !ok {
		return nil
	}
	return &answer
}

func (s AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(s))
	maps.Copy(out, s)
	return out
}

func (s AnswerSet) Equal(other AnswerSet) bool {
	return maps.EqualFunc(s, other, Answer.Equal)
}

type Attempt struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	QuizID       uint       `json:"quiz_id" gorm:"not null;index:idx_attempt_quiz_user,priority:1"`
	UserID       string     `json:"user_id" gorm:"not null;size:255;index:idx_attempt_quiz_user,priority:2"`
	TimeStarted  time.Time  `json:"time_started" gorm:"not null"`
	TimeFinished *time.Time `json:"time_finished" gorm:"index"`
	Overridden   bool       `json:"overridden" gorm:"not null;default:false;index"`

	AnswersData   datatypes.JSON `json:"-" gorm:"column:answers;type:jsonb"`
	PointsData    datatypes.JSON `json:"-" gorm:"column:points;type:jsonb"`
	FeedbacksData datatypes.JSON `json:"-" gorm:"column:feedbacks;type:jsonb"`

	Answers   AnswerSet     `json:"answers" gorm:"-"`
	Points    AttemptPoints `json:"points" gorm:"-"`
	Feedbacks []uint        `json:"feedbacks" gorm:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Attempt) TableName() string {
	return "instantquiz_attempts"
}

func (a *Attempt) EncodePayload() error {
	answers, err := encodePayload(a.Answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}
	points, err := encodePayload(a.Points)
	if err != nil {
		return fmt.Errorf("failed to encode points: %w", err)
	}
	feedbacks, err := encodePayload(a.Feedbacks)
	if err != nil {
		return fmt.Errorf("failed to encode feedbacks: %w", err)
	}

	a.AnswersData = answers
	a.PointsData = points
	a.FeedbacksData = feedbacks
	return nil
}

func (a *Attempt) DecodePayload() {
	a.Answers = decodePayload[AnswerSet]("attempt", "answers", a.AnswersData)
	a.Points = decodePayload[AttemptPoints]("attempt", "points", a.PointsData)
	a.Feedbacks = decodePayload[[]uint]("attempt", "feedbacks", a.FeedbacksData)

	if a.Answers == nil {
		a.Answers = AnswerSet{}
	}
	if a.Points.Q == nil {
		a.Points.Q = make(map[uint]PointMap)
	}
	if a.Points.C == nil {
		a.Points.C = make(PointMap)
	}
}

func (a *Attempt) BeforeSave(tx *gorm.DB) error {
	return a.EncodePayload()
}

func (a *Attempt) AfterFind(tx *gorm.DB) error {
	a.DecodePayload()
	return nil
}

func (a *Attempt) IsFinished() bool {
	return a.TimeFinished != nil
}

func (a *Attempt) Status() AttemptStatus {
	switch {
	case !a.IsFinished():
		return AttemptInProgress
	case a.Overridden:
		return AttemptOverridden
	default:
		return AttemptFinished
	}
}
