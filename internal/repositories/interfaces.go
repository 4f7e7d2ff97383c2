package repositories

import (
	"context"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
)

// EntityRepository is the store contract shared by questions, criteria and feedbacks.
// Records are always scoped to a quiz and listed by (sort_order, id).
type EntityRepository[T any] interface {
	// Create inserts the entity. A SortOrder of models.SortOrderAuto is replaced by the
	// current number of entities in the quiz.
	Create(ctx context.Context, entity *T) error
	Update(ctx context.Context, entity *T) error
	Delete(ctx context.Context, quizID, id uint) error
	GetByID(ctx context.Context, quizID, id uint) (*T, error)
	ListByQuiz(ctx context.Context, quizID uint) ([]*T, error)
	CountByQuiz(ctx context.Context, quizID uint) (int64, error)
}

type QuestionRepository = EntityRepository[models.Question]
type CriterionRepository = EntityRepository[models.Criterion]
type FeedbackRepository = EntityRepository[models.Feedback]

type QuizRepository interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	GetByID(ctx context.Context, id uint) (*models.Quiz, error)
	Update(ctx context.Context, quiz *models.Quiz) error
	// Delete removes the quiz together with its questions, criteria, feedbacks and attempts.
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters models.QuizFilters) ([]*models.Quiz, int64, error)
	// SaveSummary stores the blob when the summary version still equals version and
	// reports whether it did.
	SaveSummary(ctx context.Context, id uint, summary []byte, version int64) (bool, error)
	// ResetSummary stores NULL and moves the summary version forward.
	ResetSummary(ctx context.Context, id uint) error
}

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.Attempt) error
	Update(ctx context.Context, attempt *models.Attempt) error
	GetByID(ctx context.Context, id uint) (*models.Attempt, error)

	// GetCurrent returns the finished, non-overridden attempt of the user or ErrNotFound.
	GetCurrent(ctx context.Context, quizID uint, userID string) (*models.Attempt, error)
	// ListByUser orders by overridden ascending, then start time descending.
	ListByUser(ctx context.Context, quizID uint, userID string) ([]*models.Attempt, error)
	// CountFinished counts finished attempts of the user, ignoring excludeID (0 = none).
	CountFinished(ctx context.Context, quizID uint, userID string, excludeID uint) (int64, error)
	HasUnfinished(ctx context.Context, quizID uint, userID string) (bool, error)
	// ListCurrent returns finished, non-overridden attempts, most recently finished first.
	ListCurrent(ctx context.Context, quizID uint) ([]*models.Attempt, error)
	// MarkOverridden flags the user's finished, non-overridden attempts except exceptID.
	MarkOverridden(ctx context.Context, quizID uint, userID string, exceptID uint) (int64, error)

	// LockUser serializes attempt changes of one user in one quiz until the
	// surrounding transaction ends.
	LockUser(ctx context.Context, quizID uint, userID string) error
}
