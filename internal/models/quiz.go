package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TemplateBasic = "basic"
	TemplateOpen  = "open"
)

// QuizSettings is stored as the quiz "addinfo" blob.
type QuizSettings struct {
	AttemptsLimit     int        `json:"attemptslimit"`             // 0 = unlimited
	AttemptDuration   int        `json:"attemptduration"`           // seconds, 0 = unlimited
	ResultAfterAnswer bool       `json:"resultafteranswer"`         // summary visible to users that have a result
	ResultMinDate     *time.Time `json:"resultmindate,omitempty"`   // summary hidden from users before this date
	ResultMinAnswers  int        `json:"resultminanswers,omitempty"` // summary hidden from users until this many results exist
}

type Quiz struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	Name      string     `json:"name" gorm:"not null;size:255"`
	Intro     string     `json:"intro" gorm:"type:text"`
	Template  string     `json:"template" gorm:"not null;size:50;default:basic"`
	CreatedBy string     `json:"created_by" gorm:"not null;index;size:255"`
	TimeOpen  *time.Time `json:"time_open"`
	TimeClose *time.Time `json:"time_close"`

	SettingsData datatypes.JSON `json:"-" gorm:"column:addinfo;type:jsonb"`
	Settings     QuizSettings   `json:"settings" gorm:"-"`

	// Summary is the persisted summary cache; NULL means "not computed".
	Summary datatypes.JSON `json:"-" gorm:"type:jsonb"`
	// SummaryVersion moves on every invalidation. A summary is only stored against
	// the version it was computed from.
	SummaryVersion int64 `json:"-" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Quiz) TableName() string {
	return "instantquiz"
}

func (q *Quiz) EncodePayload() error {
	data, err := encodePayload(q.Settings)
	if err != nil {
		return err
	}
	q.SettingsData = data
	return nil
}

func (q *Quiz) DecodePayload() {
	q.Settings = decodePayload[QuizSettings]("quiz", "addinfo", q.SettingsData)
}

func (q *Quiz) BeforeSave(tx *gorm.DB) error {
	return q.EncodePayload()
}

func (q *Quiz) AfterFind(tx *gorm.DB) error {
	q.DecodePayload()
	return nil
}

// IsOpenAt reports whether t falls inside the configured open/close window.
func (q *Quiz) IsOpenAt(t time.Time) bool {
	if q.TimeOpen != nil && t.Before(*q.TimeOpen) {
		return false
	}
	if q.TimeClose != nil && t.After(*q.TimeClose) {
		return false
	}
	return true
}

// HasSummary reports whether a computed summary is persisted on the quiz.
func (q *Quiz) HasSummary() bool {
	return len(q.Summary) > 0 && string(q.Summary) != "null"
}

type QuizFilters struct {
	CreatedBy string
	Search    string
	Limit     int
	Offset    int
}
