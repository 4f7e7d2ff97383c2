package models

import (
	"fmt"
	"time"
)

// Criterion is a named scoring axis. Its name is referenced from feedback formulas as ${Name}.
type Criterion struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	QuizID    uint   `json:"quiz_id" gorm:"not null;index:idx_criterion_quiz_sort,priority:1"`
	Name      string `json:"name" gorm:"not null;size:255"`
	SortOrder int    `json:"sort_order" gorm:"not null;default:0;index:idx_criterion_quiz_sort,priority:2"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Criterion) TableName() string {
	return "instantquiz_criteria"
}

func (c *Criterion) GetID() uint            { return c.ID }
func (c *Criterion) SetID(id uint)          { c.ID = id }
func (c *Criterion) GetQuizID() uint        { return c.QuizID }
func (c *Criterion) GetSortOrder() int      { return c.SortOrder }
func (c *Criterion) SetSortOrder(order int) { c.SortOrder = order }
func (c *Criterion) EncodePayload() error   { return nil }
func (c *Criterion) DecodePayload()         {}

// TotalPoints sums this criterion's entry over every question of the attempt.
func (c *Criterion) TotalPoints(points AttemptPoints) float64 {
	var total float64
	for _, perCriterion := range points.Q {
		total += perCriterion[c.ID]
	}
	return total
}

func DefaultCriterionName(sortOrder int) string {
	return fmt.Sprintf("Criterion %d", sortOrder+1)
}
