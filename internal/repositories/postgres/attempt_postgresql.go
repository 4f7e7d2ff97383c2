package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAttemptPostgreSQL(db *gorm.DB, helpers *SharedHelpers) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db, helpers: helpers}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.Attempt) error {
	if err := a.helpers.QuizExists(ctx, attempt.QuizID); err != nil {
		return err
	}
	if err := a.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) Update(ctx context.Context, attempt *models.Attempt) error {
	result := a.db.WithContext(ctx).
		Model(attempt).
		Select("*").
		Omit("id", "quiz_id", "user_id", "created_at").
		Updates(attempt)
	if result.Error != nil {
		return fmt.Errorf("failed to update attempt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("attempt %d: %w", attempt.ID, repositories.ErrNotFound)
	}
	return nil
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", notFound(err))
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) current(ctx context.Context, quizID uint) *gorm.DB {
	return a.db.WithContext(ctx).
		Where("quiz_id = ? AND time_finished IS NOT NULL AND overridden = ?", quizID, false).
		Order("time_finished DESC, id DESC")
}

func (a *AttemptPostgreSQL) GetCurrent(ctx context.Context, quizID uint, userID string) (*models.Attempt, error) {
	var attempt models.Attempt
	err := a.current(ctx, quizID).
		Where("user_id = ?", userID).
		First(&attempt).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get current attempt: %w", notFound(err))
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) ListByUser(ctx context.Context, quizID uint, userID string) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	err := a.db.WithContext(ctx).
		Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Order("overridden ASC, time_started DESC, id DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user attempts: %w", err)
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) CountFinished(ctx context.Context, quizID uint, userID string, excludeID uint) (int64, error) {
	var count int64
	query := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("quiz_id = ? AND user_id = ? AND time_finished IS NOT NULL", quizID, userID)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count finished attempts: %w", err)
	}
	return count, nil
}

func (a *AttemptPostgreSQL) HasUnfinished(ctx context.Context, quizID uint, userID string) (bool, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("quiz_id = ? AND user_id = ? AND time_finished IS NULL", quizID, userID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check unfinished attempts: %w", err)
	}
	return count > 0, nil
}

func (a *AttemptPostgreSQL) ListCurrent(ctx context.Context, quizID uint) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	if err := a.current(ctx, quizID).Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list current attempts: %w", err)
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) MarkOverridden(ctx context.Context, quizID uint, userID string, exceptID uint) (int64, error) {
	result := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("quiz_id = ? AND user_id = ? AND id <> ? AND time_finished IS NOT NULL AND overridden = ?", quizID, userID, exceptID, false).
		Update("overridden", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark attempts overridden: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// LockUser takes a transaction-scoped advisory lock keyed by quiz and user.
func (a *AttemptPostgreSQL) LockUser(ctx context.Context, quizID uint, userID string) error {
	key := fmt.Sprintf("instantquiz:%d:%s", quizID, userID)
	if err := a.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", key).Error; err != nil {
		return fmt.Errorf("failed to lock attempts: %w", err)
	}
	return nil
}
