package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories"
)

type QuizPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewQuizPostgreSQL(db *gorm.DB, helpers *SharedHelpers) repositories.QuizRepository {
	return &QuizPostgreSQL{db: db, helpers: helpers}
}

func (q *QuizPostgreSQL) Create(ctx context.Context, quiz *models.Quiz) error {
	if err := q.db.WithContext(ctx).Omit("summary").Create(quiz).Error; err != nil {
		return fmt.Errorf("failed to create quiz: %w", err)
	}
	return nil
}

func (q *QuizPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := q.db.WithContext(ctx).First(&quiz, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", notFound(err))
	}
	return &quiz, nil
}

// Update writes the editable columns; the summary columns are owned by SaveSummary
// and ResetSummary.
func (q *QuizPostgreSQL) Update(ctx context.Context, quiz *models.Quiz) error {
	result := q.db.WithContext(ctx).
		Model(quiz).
		Select("*").
		Omit("id", "summary", "summary_version", "created_by", "created_at").
		Updates(quiz)
	if result.Error != nil {
		return fmt.Errorf("failed to update quiz: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("quiz %d: %w", quiz.ID, repositories.ErrNotFound)
	}
	return nil
}

func (q *QuizPostgreSQL) Delete(ctx context.Context, id uint) error {
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		children := []any{&models.Attempt{}, &models.Question{}, &models.Criterion{}, &models.Feedback{}}
		for _, model := range children {
			if err := tx.Where("quiz_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete quiz children: %w", err)
			}
		}

		result := tx.Delete(&models.Quiz{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete quiz: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("quiz %d: %w", id, repositories.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	q.helpers.InvalidateQuiz(ctx, id)
	return nil
}

func (q *QuizPostgreSQL) List(ctx context.Context, filters models.QuizFilters) ([]*models.Quiz, int64, error) {
	var quizzes []*models.Quiz
	var total int64

	query := q.db.WithContext(ctx).Model(&models.Quiz{})
	if filters.CreatedBy != "" {
		query = query.Where("created_by = ?", filters.CreatedBy)
	}
	if filters.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filters.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count quizzes: %w", err)
	}

	query = q.helpers.ApplyPaginationAndSort(query.Omit("summary"), "id", "desc", filters.Limit, filters.Offset)
	if err := query.Find(&quizzes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list quizzes: %w", err)
	}

	return quizzes, total, nil
}

func (q *QuizPostgreSQL) SaveSummary(ctx context.Context, id uint, summary []byte, version int64) (bool, error) {
	result := q.db.WithContext(ctx).
		Model(&models.Quiz{}).
		Where("id = ? AND summary_version = ?", id, version).
		UpdateColumn("summary", string(summary))
	if result.Error != nil {
		return false, fmt.Errorf("failed to save quiz summary: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// Either the quiz is gone or the summary was invalidated meanwhile.
	if err := q.helpers.QuizExists(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (q *QuizPostgreSQL) ResetSummary(ctx context.Context, id uint) error {
	result := q.db.WithContext(ctx).
		Model(&models.Quiz{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"summary":         gorm.Expr("NULL"),
			"summary_version": gorm.Expr("summary_version + 1"),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to reset quiz summary: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("quiz %d: %w", id, repositories.ErrNotFound)
	}
	return nil
}
