package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/instantquiz-service/internal/cache"
	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories"
)

type entityPtr[T any] interface {
	*T
	models.Entity
}

// EntityPostgreSQL stores one kind of quiz-scoped, ordered entity. Ordered lists are
// served cache-aside from redis outside of transactions.
type EntityPostgreSQL[T any, P entityPtr[T]] struct {
	db      *gorm.DB
	kind    string
	helpers *SharedHelpers
}

func newEntityPostgreSQL[T any, P entityPtr[T]](db *gorm.DB, kind string, helpers *SharedHelpers) *EntityPostgreSQL[T, P] {
	return &EntityPostgreSQL[T, P]{db: db, kind: kind, helpers: helpers}
}

func NewQuestionPostgreSQL(db *gorm.DB, helpers *SharedHelpers) repositories.QuestionRepository {
	return newEntityPostgreSQL[models.Question](db, "question", helpers)
}

func NewCriterionPostgreSQL(db *gorm.DB, helpers *SharedHelpers) repositories.CriterionRepository {
	return newEntityPostgreSQL[models.Criterion](db, "criterion", helpers)
}

func NewFeedbackPostgreSQL(db *gorm.DB, helpers *SharedHelpers) repositories.FeedbackRepository {
	return newEntityPostgreSQL[models.Feedback](db, "feedback", helpers)
}

func (r *EntityPostgreSQL[T, P]) Create(ctx context.Context, entity *T) error {
	p := P(entity)
	if err := r.helpers.QuizExists(ctx, p.GetQuizID()); err != nil {
		return err
	}

	if p.GetSortOrder() == models.SortOrderAuto {
		count, err := r.CountByQuiz(ctx, p.GetQuizID())
		if err != nil {
			return err
		}
		p.SetSortOrder(int(count))
	}

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("failed to create %s: %w", r.kind, err)
	}

	r.helpers.InvalidateQuiz(ctx, p.GetQuizID())
	return nil
}

func (r *EntityPostgreSQL[T, P]) Update(ctx context.Context, entity *T) error {
	p := P(entity)
	result := r.db.WithContext(ctx).
		Model(entity).
		Where("quiz_id = ?", p.GetQuizID()).
		Select("*").
		Omit("id", "quiz_id", "created_at").
		Updates(entity)
	if result.Error != nil {
		return fmt.Errorf("failed to update %s: %w", r.kind, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", r.kind, p.GetID(), repositories.ErrNotFound)
	}

	r.helpers.InvalidateQuiz(ctx, p.GetQuizID())
	return nil
}

func (r *EntityPostgreSQL[T, P]) Delete(ctx context.Context, quizID, id uint) error {
	result := r.db.WithContext(ctx).
		Where("quiz_id = ? AND id = ?", quizID, id).
		Delete(new(T))
	if result.Error != nil {
		return fmt.Errorf("failed to delete %s: %w", r.kind, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", r.kind, id, repositories.ErrNotFound)
	}

	r.helpers.InvalidateQuiz(ctx, quizID)
	return nil
}

func (r *EntityPostgreSQL[T, P]) GetByID(ctx context.Context, quizID, id uint) (*T, error) {
	entity := new(T)
	err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND id = ?", quizID, id).
		First(entity).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", r.kind, notFound(err))
	}
	return entity, nil
}

func (r *EntityPostgreSQL[T, P]) ListByQuiz(ctx context.Context, quizID uint) ([]*T, error) {
	if r.helpers.InTransaction() {
		return r.listFromDB(ctx, quizID)
	}

	var entities []*T
	err := r.helpers.cacheManager.Entity.CacheOrExecute(ctx, cache.EntityListKey(r.kind, quizID), &entities, cache.EntityCacheConfig.TTL, func() (interface{}, error) {
		return r.listFromDB(ctx, quizID)
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *EntityPostgreSQL[T, P]) listFromDB(ctx context.Context, quizID uint) ([]*T, error) {
	var entities []*T
	err := r.db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("sort_order ASC, id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.kind, err)
	}
	return entities, nil
}

func (r *EntityPostgreSQL[T, P]) CountByQuiz(ctx context.Context, quizID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(new(T)).
		Where("quiz_id = ?", quizID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", r.kind, err)
	}
	return count, nil
}
