package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
)

type criterionService struct {
	serviceBase
	summary SummaryService
}

func NewCriterionService(deps Dependencies, summary SummaryService) CriterionService {
	return &criterionService{
		serviceBase: newServiceBase(deps),
		summary:     summary,
	}
}

func (s *criterionService) Create(ctx context.Context, quizID uint, req *CriterionRequest, userID string) (*models.Criterion, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if _, err := s.manage(ctx, quizID, userID, "add criterion"); err != nil {
		return nil, err
	}

	criterion := &models.Criterion{
		QuizID:    quizID,
		SortOrder: models.SortOrderAuto,
	}
	if req.Name != nil {
		criterion.Name = strings.TrimSpace(*req.Name)
	}
	if req.SortOrder != nil {
		criterion.SortOrder = *req.SortOrder
	}

	if err := s.Repo.Criterion().Create(ctx, criterion); err != nil {
		return nil, fmt.Errorf("failed to create criterion: %w", err)
	}
	if criterion.Name == "" {
		criterion.Name = models.DefaultCriterionName(criterion.SortOrder)
		if err := s.Repo.Criterion().Update(ctx, criterion); err != nil {
			return nil, fmt.Errorf("failed to name criterion: %w", err)
		}
	}

	s.summary.EntityUpdated(ctx, quizID, "criterion", criterion.ID)

	s.Logger.Info("Criterion created successfully",
		"quiz_id", quizID,
		"criterion_id", criterion.ID)
	return criterion, nil
}

func (s *criterionService) GetByID(ctx context.Context, quizID, id uint, userID string) (*models.Criterion, error) {
	if _, err := s.manage(ctx, quizID, userID, "view criterion"); err != nil {
		return nil, err
	}

	criterion, err := s.Repo.Criterion().GetByID(ctx, quizID, id)
	if err != nil {
		return nil, notFoundAs(err, ErrCriterionNotFound, "get criterion")
	}
	return criterion, nil
}

func (s *criterionService) Update(ctx context.Context, quizID, id uint, req *CriterionRequest, userID string) (*models.Criterion, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if _, err := s.manage(ctx, quizID, userID, "update criterion"); err != nil {
		return nil, err
	}

	criterion, err := s.Repo.Criterion().GetByID(ctx, quizID, id)
	if err != nil {
		return nil, notFoundAs(err, ErrCriterionNotFound, "get criterion")
	}

	if req.SortOrder != nil {
		criterion.SortOrder = *req.SortOrder
	}
	if req.Name != nil {
		criterion.Name = strings.TrimSpace(*req.Name)
		if criterion.Name == "" {
			criterion.Name = models.DefaultCriterionName(criterion.SortOrder)
		}
	}

	if err := s.Repo.Criterion().Update(ctx, criterion); err != nil {
		return nil, notFoundAs(err, ErrCriterionNotFound, "update criterion")
	}

	s.summary.EntityUpdated(ctx, quizID, "criterion", id)
	return criterion, nil
}

func (s *criterionService) Delete(ctx context.Context, quizID, id uint, userID string) error {
	if _, err := s.manage(ctx, quizID, userID, "delete criterion"); err != nil {
		return err
	}

	if err := s.Repo.Criterion().Delete(ctx, quizID, id); err != nil {
		return notFoundAs(err, ErrCriterionNotFound, "delete criterion")
	}

	s.summary.EntityUpdated(ctx, quizID, "criterion", id)

	s.Logger.Info("Criterion deleted successfully",
		"quiz_id", quizID,
		"criterion_id", id)
	return nil
}

func (s *criterionService) List(ctx context.Context, quizID uint, userID string) ([]*models.Criterion, error) {
	if _, err := s.manage(ctx, quizID, userID, "list criteria"); err != nil {
		return nil, err
	}

	criteria, err := s.Repo.Criterion().ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to list criteria: %w", err)
	}
	return criteria, nil
}
