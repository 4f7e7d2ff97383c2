package services

import (
	"cmp"
	"slices"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
)

// ScoreResult is the outcome of evaluating one set of answers
type ScoreResult struct {
	Points    models.AttemptPoints
	Feedbacks []uint
	// Skipped lists feedbacks whose formula could not be evaluated
	Skipped []FormulaFailure
}

type FormulaFailure struct {
	FeedbackID uint
	Err        error
}

// Score computes points and applicable feedbacks. It does not touch the store and
// gives the same result for the same input.
func Score(answers models.AnswerSet, questions []*models.Question, criteria []*models.Criterion, feedbacks []*models.Feedback) ScoreResult {
	result := ScoreResult{
		Points:    models.NewAttemptPoints(),
		Feedbacks: []uint{},
	}

	for _, question := range questions {
		earned := question.EarnedPoints(answers.Get(question.ID))

		perCriterion := make(models.PointMap, len(criteria))
		for _, criterion := range criteria {
			perCriterion[criterion.ID] = earned[criterion.ID]
		}
		result.Points.Q[question.ID] = perCriterion
	}

	for _, criterion := range criteria {
		result.Points.C[criterion.ID] = criterion.TotalPoints(result.Points)
	}

	for _, feedback := range sortedEntities(feedbacks) {
		applicable, err := feedback.IsApplicable(result.Points.C, criteria)
		if err != nil {
			result.Skipped = append(result.Skipped, FormulaFailure{FeedbackID: feedback.ID, Err: err})
			continue
		}
		if applicable {
			result.Feedbacks = append(result.Feedbacks, feedback.ID)
		}
	}

	return result
}

// sortedEntities orders by (sort_order, id) without modifying the input
func sortedEntities[T models.Entity](entities []T) []T {
	sorted := slices.Clone(entities)
	slices.SortStableFunc(sorted, func(a, b T) int {
		if c := cmp.Compare(a.GetSortOrder(), b.GetSortOrder()); c != 0 {
			return c
		}
		return cmp.Compare(a.GetID(), b.GetID())
	})
	return sorted
}
