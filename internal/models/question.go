package models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CommentMode int

const (
	CommentDisabled CommentMode = iota
	CommentOptional
	CommentRequired
)

// Option is one selectable choice. Idx is stable for the lifetime of the question.
type Option struct {
	Idx    int      `json:"idx"`
	Value  string   `json:"value"`
	Points PointMap `json:"points,omitempty"`
}

type QuestionAddInfo struct {
	MinOptions    int         `json:"minoptions,omitempty"`
	MaxOptions    int         `json:"maxoptions,omitempty"`
	Comment       CommentMode `json:"comment,omitempty"`
	LastOptionIdx int         `json:"lastoptionidx,omitempty"`
}

type Question struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuizID     uint   `json:"quiz_id" gorm:"not null;index:idx_question_quiz_sort,priority:1"`
	Text       string `json:"text" gorm:"type:text"`
	TextFormat string `json:"text_format" gorm:"size:20;default:html"`
	SortOrder  int    `json:"sort_order" gorm:"not null;default:0;index:idx_question_quiz_sort,priority:2"`

	OptionsData datatypes.JSON  `json:"-" gorm:"column:options;type:jsonb"`
	AddInfoData datatypes.JSON  `json:"-" gorm:"column:addinfo;type:jsonb"`
	Options     []Option        `json:"options" gorm:"-"`
	AddInfo     QuestionAddInfo `json:"addinfo" gorm:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "instantquiz_questions"
}

func (q *Question) GetID() uint            { return q.ID }
func (q *Question) SetID(id uint)          { q.ID = id }
func (q *Question) GetQuizID() uint        { return q.QuizID }
func (q *Question) GetSortOrder() int      { return q.SortOrder }
func (q *Question) SetSortOrder(order int) { q.SortOrder = order }

func (q *Question) EncodePayload() error {
	q.AssignOptionIndexes()

	options, err := encodePayload(q.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	addInfo, err := encodePayload(q.AddInfo)
	if err != nil {
		return fmt.Errorf("failed to encode addinfo: %w", err)
	}

	q.OptionsData = options
	q.AddInfoData = addInfo
	return nil
}

func (q *Question) DecodePayload() {
	q.Options = decodePayload[[]Option]("question", "options", q.OptionsData)
	q.AddInfo = decodePayload[QuestionAddInfo]("question", "addinfo", q.AddInfoData)
	q.AddInfo.LastOptionIdx = max(q.AddInfo.LastOptionIdx, q.maxOptionIdx())
}

func (q *Question) BeforeSave(tx *gorm.DB) error {
	return q.EncodePayload()
}

func (q *Question) AfterFind(tx *gorm.DB) error {
	q.DecodePayload()
	return nil
}

func (q *Question) maxOptionIdx() int {
	highest := 0
	for _, option := range q.Options {
		highest = max(highest, option.Idx)
	}
	return highest
}

// ReplaceOptions swaps in a new options list. Options keep their idx only when it
// belongs to one of the current options; anything else gets a fresh index.
func (q *Question) ReplaceOptions(options []Option) {
	current := make(map[int]bool, len(q.Options))
	for _, option := range q.Options {
		current[option.Idx] = true
	}
	q.AddInfo.LastOptionIdx = max(q.AddInfo.LastOptionIdx, q.maxOptionIdx())

	replaced := slices.Clone(options)
	for i := range replaced {
		if !current[replaced[i].Idx] {
			replaced[i].Idx = 0
		}
	}
	q.Options = replaced
	q.AssignOptionIndexes()
}

// AssignOptionIndexes gives every option without an idx a fresh one.
// Indexes are never reused, even for options that were removed earlier.
func (q *Question) AssignOptionIndexes() {
	q.AddInfo.LastOptionIdx = max(q.AddInfo.LastOptionIdx, q.maxOptionIdx())
	for i := range q.Options {
		if q.Options[i].Idx <= 0 {
			q.AddInfo.LastOptionIdx++
			q.Options[i].Idx = q.AddInfo.LastOptionIdx
		}
	}
}

func (q *Question) OptionByIdx(idx int) *Option {
	for i := range q.Options {
		if q.Options[i].Idx == idx {
			return &q.Options[i]
		}
	}
	return nil
}

func (q *Question) OptionByValue(value string) *Option {
	for i := range q.Options {
		if q.Options[i].Value == value {
			return &q.Options[i]
		}
	}
	return nil
}

// AddOption returns the option with the given display value, appending it if needed.
func (q *Question) AddOption(value string) *Option {
	if option := q.OptionByValue(value); option != nil {
		return option
	}

	q.AddInfo.LastOptionIdx = max(q.AddInfo.LastOptionIdx, q.maxOptionIdx()) + 1
	q.Options = append(q.Options, Option{
		Idx:   q.AddInfo.LastOptionIdx,
		Value: value,
	})
	return &q.Options[len(q.Options)-1]
}

// SetOptionEvaluation sets the points an option gives for a criterion; zero removes the entry.
func (q *Question) SetOptionEvaluation(value string, criterionID uint, points float64) *Option {
	option := q.AddOption(value)
	if points == 0 {
		delete(option.Points, criterionID)
		return option
	}

	if option.Points == nil {
		option.Points = make(PointMap)
	}
	option.Points[criterionID] = points
	return option
}

// EarnedPoints sums the points of all selected options per criterion.
func (q *Question) EarnedPoints(answer *Answer) PointMap {
	earned := make(PointMap)
	for _, idx := range answer.Selected() {
		option := q.OptionByIdx(idx)
		if option == nil {
			continue
		}
		for criterionID, points := range option.Points {
			earned[criterionID] += points
		}
	}
	return earned
}

// MaxPossiblePoints returns, per criterion, the largest value a single option offers.
// For multi-select questions this is lower than the true maximum.
func (q *Question) MaxPossiblePoints() PointMap {
	maxPoints := make(PointMap)
	for _, option := range q.Options {
		for criterionID, points := range option.Points {
			if current, ok := maxPoints[criterionID]; !ok || points > current {
				maxPoints[criterionID] = points
			}
		}
	}
	return maxPoints
}

// Cardinality returns the effective selection bounds. Unset bounds mean single-select.
func (q *Question) Cardinality() (minOptions, maxOptions int) {
	minOptions, maxOptions = q.AddInfo.MinOptions, q.AddInfo.MaxOptions
	if minOptions <= 0 && maxOptions <= 0 {
		return 1, 1
	}
	if maxOptions <= 0 {
		maxOptions = len(q.Options)
	}
	return max(minOptions, 0), max(maxOptions, minOptions)
}

// IsMultiSelect reports whether the bounds allow anything other than exactly one option.
func (q *Question) IsMultiSelect() bool {
	minOptions, maxOptions := q.Cardinality()
	return minOptions != 1 || maxOptions != 1
}

// MissingAnswer describes what still has to be provided, or returns "" when answered.
func (q *Question) MissingAnswer(answer *Answer) string {
	if len(q.Options) > 0 && len(answer.Selected()) == 0 {
		return "an option must be selected"
	}
	if q.AddInfo.Comment == CommentRequired && (answer == nil || strings.TrimSpace(answer.Comment) == "") {
		return "a comment is required"
	}
	return ""
}

func (q *Question) IsAnswered(answer *Answer) bool {
	return q.MissingAnswer(answer) == ""
}

// ValidateAnswer checks the selection against the question's options and cardinality.
func (q *Question) ValidateAnswer(answer *Answer) []string {
	var problems []string
	selected := answer.Selected()

	seen := make(map[int]bool, len(selected))
	for _, idx := range selected {
		if seen[idx] {
			problems = append(problems, fmt.Sprintf("option %d selected more than once", idx))
			continue
		}
		seen[idx] = true
		if q.OptionByIdx(idx) == nil {
			problems = append(problems, fmt.Sprintf("unknown option %d", idx))
		}
	}

	if len(selected) == 0 {
		return problems
	}

	minOptions, maxOptions := q.Cardinality()
	if !q.IsMultiSelect() {
		if len(selected) > 1 {
			problems = append(problems, "only one option can be selected")
		}
		return problems
	}
	if len(selected) < minOptions {
		problems = append(problems, fmt.Sprintf("at least %d options must be selected", minOptions))
	}
	if len(selected) > maxOptions {
		problems = append(problems, fmt.Sprintf("at most %d options can be selected", maxOptions))
	}
	return problems
}

// NormalizeAnswer drops a comment the question does not accept and sorts the selection.
func (q *Question) NormalizeAnswer(answer Answer) Answer {
	if q.AddInfo.Comment == CommentDisabled {
		answer.Comment = ""
	}
	answer.Options = slices.Clone(answer.Options)
	slices.Sort(answer.Options)
	return answer
}

// DefaultQuestionText is the text given to questions created without one.
func DefaultQuestionText(sortOrder int) string {
	return fmt.Sprintf("Question %d", sortOrder+1)
}
