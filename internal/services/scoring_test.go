package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
)

func TestScore(t *testing.T) {
	activist := &models.Criterion{ID: 1, Name: "Activist"}
	theorist := &models.Criterion{ID: 2, Name: "Theorist"}
	criteria := []*models.Criterion{activist, theorist}

	single := &models.Question{ID: 10, Options: []models.Option{
		{Idx: 1, Value: "Try it", Points: models.PointMap{1: 2}},
		{Idx: 2, Value: "Read about it", Points: models.PointMap{2: 3, 99: 7}},
	}}
	multi := &models.Question{ID: 11, AddInfo: models.QuestionAddInfo{MinOptions: 1, MaxOptions: 2}, Options: []models.Option{
		{Idx: 1, Value: "Alone", Points: models.PointMap{1: 1}},
		{Idx: 2, Value: "In a group", Points: models.PointMap{1: 1, 2: 1}},
	}}
	questions := []*models.Question{single, multi}

	feedbacks := []*models.Feedback{
		{ID: 7, SortOrder: 2, AddInfo: models.FeedbackAddInfo{Formula: "${Theorist} > ${Activist}"}},
		{ID: 5, SortOrder: 0, AddInfo: models.FeedbackAddInfo{Formula: "${Activist} >= 2"}},
		{ID: 6, SortOrder: 1},
		{ID: 8, SortOrder: 3, AddInfo: models.FeedbackAddInfo{Formula: "${Activist} / 0 > 1"}},
		{ID: 9, SortOrder: 4, AddInfo: models.FeedbackAddInfo{Formula: "${Activist} < 0"}},
	}

	tests := []struct {
		name      string
		answers   models.AnswerSet
		points    map[uint]models.PointMap
		totals    models.PointMap
		feedbacks []uint
	}{
		{
			name:      "no answers",
			answers:   models.AnswerSet{},
			points:    map[uint]models.PointMap{10: {1: 0, 2: 0}, 11: {1: 0, 2: 0}},
			totals:    models.PointMap{1: 0, 2: 0},
			feedbacks: []uint{6},
		},
		{
			name:      "activist",
			answers:   models.AnswerSet{10: {Options: []int{1}}, 11: {Options: []int{1, 2}}},
			points:    map[uint]models.PointMap{10: {1: 2, 2: 0}, 11: {1: 2, 2: 1}},
			totals:    models.PointMap{1: 4, 2: 1},
			feedbacks: []uint{5, 6},
		},
		{
			name:      "theorist ignores unknown criteria",
			answers:   models.AnswerSet{10: {Options: []int{2}}, 11: {Options: []int{2}}},
			points:    map[uint]models.PointMap{10: {1: 0, 2: 3}, 11: {1: 1, 2: 1}},
			totals:    models.PointMap{1: 1, 2: 4},
			feedbacks: []uint{6, 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Score(tt.answers, questions, criteria, feedbacks)

			assert.Equal(t, tt.points, result.Points.Q)
			assert.Equal(t, tt.totals, result.Points.C)
			assert.Equal(t, tt.feedbacks, result.Feedbacks)

			require.Len(t, result.Skipped, 1, "division by zero is reported")
			assert.Equal(t, uint(8), result.Skipped[0].FeedbackID)

			again := Score(tt.answers, questions, criteria, feedbacks)
			assert.Equal(t, result, again)
		})
	}

	assert.Equal(t, uint(7), feedbacks[0].ID, "input order is left alone")
}
