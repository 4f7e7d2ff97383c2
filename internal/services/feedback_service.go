package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/instantquiz-service/internal/formula"
	"github.com/SAP-F-2025/instantquiz-service/internal/models"
)

type feedbackService struct {
	serviceBase
	summary SummaryService
}

func NewFeedbackService(deps Dependencies, summary SummaryService) FeedbackService {
	return &feedbackService{
		serviceBase: newServiceBase(deps),
		summary:     summary,
	}
}

func (s *feedbackService) Create(ctx context.Context, quizID uint, req *FeedbackRequest, userID string) (*models.Feedback, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if _, err := s.manage(ctx, quizID, userID, "add feedback"); err != nil {
		return nil, err
	}

	feedback := &models.Feedback{
		QuizID:     quizID,
		TextFormat: "html",
		SortOrder:  models.SortOrderAuto,
	}
	applyFeedbackRequest(feedback, req)

	if err := s.Repo.Feedback().Create(ctx, feedback); err != nil {
		return nil, fmt.Errorf("failed to create feedback: %w", err)
	}
	if strings.TrimSpace(feedback.Text) == "" {
		feedback.Text = models.DefaultFeedbackName(feedback.SortOrder)
		if err := s.Repo.Feedback().Update(ctx, feedback); err != nil {
			return nil, fmt.Errorf("failed to name feedback: %w", err)
		}
	}

	s.summary.EntityUpdated(ctx, quizID, "feedback", feedback.ID)

	s.Logger.Info("Feedback created successfully",
		"quiz_id", quizID,
		"feedback_id", feedback.ID)
	return feedback, nil
}

func (s *feedbackService) GetByID(ctx context.Context, quizID, id uint, userID string) (*models.Feedback, error) {
	if _, err := s.manage(ctx, quizID, userID, "view feedback"); err != nil {
		return nil, err
	}

	feedback, err := s.Repo.Feedback().GetByID(ctx, quizID, id)
	if err != nil {
		return nil, notFoundAs(err, ErrFeedbackNotFound, "get feedback")
	}
	return feedback, nil
}

func (s *feedbackService) Update(ctx context.Context, quizID, id uint, req *FeedbackRequest, userID string) (*models.Feedback, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if _, err := s.manage(ctx, quizID, userID, "update feedback"); err != nil {
		return nil, err
	}

	feedback, err := s.Repo.Feedback().GetByID(ctx, quizID, id)
	if err != nil {
		return nil, notFoundAs(err, ErrFeedbackNotFound, "get feedback")
	}

	applyFeedbackRequest(feedback, req)
	if strings.TrimSpace(feedback.Text) == "" {
		feedback.Text = models.DefaultFeedbackName(feedback.SortOrder)
	}

	if err := s.Repo.Feedback().Update(ctx, feedback); err != nil {
		return nil, notFoundAs(err, ErrFeedbackNotFound, "update feedback")
	}

	s.summary.EntityUpdated(ctx, quizID, "feedback", id)
	return feedback, nil
}

func (s *feedbackService) Delete(ctx context.Context, quizID, id uint, userID string) error {
	if _, err := s.manage(ctx, quizID, userID, "delete feedback"); err != nil {
		return err
	}

	if err := s.Repo.Feedback().Delete(ctx, quizID, id); err != nil {
		return notFoundAs(err, ErrFeedbackNotFound, "delete feedback")
	}

	s.summary.EntityUpdated(ctx, quizID, "feedback", id)

	s.Logger.Info("Feedback deleted successfully",
		"quiz_id", quizID,
		"feedback_id", id)
	return nil
}

func (s *feedbackService) List(ctx context.Context, quizID uint, userID string) ([]*models.Feedback, error) {
	if _, err := s.manage(ctx, quizID, userID, "list feedbacks"); err != nil {
		return nil, err
	}

	feedbacks, err := s.Repo.Feedback().ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedbacks: %w", err)
	}
	return feedbacks, nil
}

// Preview evaluates a formula against the given scores, keyed by criterion name
func (s *feedbackService) Preview(ctx context.Context, quizID uint, req *FeedbackPreviewRequest, userID string) (*FeedbackPreviewResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if _, err := s.manage(ctx, quizID, userID, "preview feedback"); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Formula) == "" {
		return &FeedbackPreviewResponse{Applicable: true, References: []string{}}, nil
	}

	expr, err := formula.Parse(req.Formula)
	if err != nil {
		return nil, NewValidationError("formula", err.Error(), req.Formula)
	}

	vars := formula.Variables{}
	for name, score := range req.Scores {
		vars.Add(name, score)
	}

	applicable, err := expr.Eval(vars)
	if err != nil {
		return nil, NewValidationError("formula", err.Error(), req.Formula)
	}

	return &FeedbackPreviewResponse{
		Applicable: applicable,
		References: expr.References(),
	}, nil
}

func applyFeedbackRequest(feedback *models.Feedback, req *FeedbackRequest) {
	if req.Text != nil {
		feedback.Text = *req.Text
	}
	if req.TextFormat != nil {
		feedback.TextFormat = *req.TextFormat
	}
	if req.Formula != nil {
		feedback.AddInfo.Formula = strings.TrimSpace(*req.Formula)
	}
	if req.SortOrder != nil {
		feedback.SortOrder = *req.SortOrder
	}
}
