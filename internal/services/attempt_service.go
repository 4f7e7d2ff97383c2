package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/instantquiz-service/internal/events"
	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories"
	"github.com/SAP-F-2025/instantquiz-service/pkg/monitoring"
)

type attemptService struct {
	serviceBase
	summary SummaryService
}

func NewAttemptService(deps Dependencies, summary SummaryService) AttemptService {
	return &attemptService{
		serviceBase: newServiceBase(deps),
		summary:     summary,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, quizID uint, userID string) (*AttemptResponse, error) {
	s.Logger.Info("Starting quiz attempt",
		"quiz_id", quizID,
		"user_id", userID)

	qc, err := s.loadQuiz(ctx, s.Repo, quizID)
	if err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var attempt *models.Attempt
	err = s.Repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Attempt().LockUser(ctx, quizID, userID); err != nil {
			return fmt.Errorf("failed to lock attempts: %w", err)
		}
		if err := s.checkStart(ctx, tx, qc, user); err != nil {
			return err
		}

		attempt = &models.Attempt{
			QuizID:      quizID,
			UserID:      userID,
			TimeStarted: s.now(),
			Answers:     models.AnswerSet{},
			Points:      models.NewAttemptPoints(),
			Feedbacks:   []uint{},
		}
		if err := tx.Attempt().Create(ctx, attempt); err != nil {
			return fmt.Errorf("failed to create attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.AttemptsStarted.Inc()
	s.publish(ctx, events.TopicAttemptStarted, events.AttemptStartedData{
		QuizID:    quizID,
		AttemptID: attempt.ID,
		UserID:    userID,
	})

	s.Logger.Info("Quiz attempt started successfully",
		"attempt_id", attempt.ID,
		"quiz_id", quizID,
		"user_id", userID)

	return s.buildResponse(qc, attempt), nil
}

// SaveAnswers merges valid answers into an unfinished attempt without finishing it
func (s *attemptService) SaveAnswers(ctx context.Context, attemptID uint, answers models.AnswerSet, userID string) (*AttemptResponse, error) {
	s.Logger.Info("Saving attempt answers",
		"attempt_id", attemptID,
		"user_id", userID,
		"answers", len(answers))

	var (
		qc       *quizContext
		attempt  *models.Attempt
		problems map[uint][]string
	)
	err := s.lockedAttempt(ctx, attemptID, func(tx repositories.Repository, lockedQC *quizContext, locked *models.Attempt) error {
		qc, attempt = lockedQC, locked
		if err := s.checkContinue(ctx, tx, qc, attempt, userID); err != nil {
			return err
		}

		questions, err := tx.Question().ListByQuiz(ctx, qc.Quiz.ID)
		if err != nil {
			return fmt.Errorf("failed to list questions: %w", err)
		}

		var merged models.AnswerSet
		merged, problems = mergeAnswers(attempt.Answers, answers, questions)
		if merged.Equal(attempt.Answers) {
			return nil
		}

		attempt.Answers = merged
		if err := tx.Attempt().Update(ctx, attempt); err != nil {
			return fmt.Errorf("failed to save answers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	response := s.buildResponse(qc, attempt)
	response.Errors = problems
	return response, nil
}

// Submit merges the answers and finishes the attempt once every question is answered
func (s *attemptService) Submit(ctx context.Context, attemptID uint, answers models.AnswerSet, userID string) (*AttemptResponse, error) {
	s.Logger.Info("Submitting quiz attempt",
		"attempt_id", attemptID,
		"user_id", userID)

	var (
		qc         *quizContext
		attempt    *models.Attempt
		problems   map[uint][]string
		unanswered map[uint]string
		outcome    finishOutcome
	)
	err := s.lockedAttempt(ctx, attemptID, func(tx repositories.Repository, lockedQC *quizContext, locked *models.Attempt) error {
		qc, attempt = lockedQC, locked
		if err := s.checkContinue(ctx, tx, qc, attempt, userID); err != nil {
			return err
		}

		questions, err := tx.Question().ListByQuiz(ctx, qc.Quiz.ID)
		if err != nil {
			return fmt.Errorf("failed to list questions: %w", err)
		}

		var merged models.AnswerSet
		merged, problems = mergeAnswers(attempt.Answers, answers, questions)
		answersChanged := !merged.Equal(attempt.Answers)
		attempt.Answers = merged

		unanswered = missingAnswers(merged, questions)
		if len(unanswered) > 0 || len(problems) > 0 {
			if !answersChanged {
				return nil
			}
			if err := tx.Attempt().Update(ctx, attempt); err != nil {
				return fmt.Errorf("failed to save answers: %w", err)
			}
			return nil
		}

		outcome, err = s.evaluateAndFinish(ctx, tx, qc, attempt, questions, answersChanged)
		return err
	})
	if err != nil {
		return nil, err
	}

	if outcome.finished {
		s.afterFinish(ctx, attempt, outcome)
	}

	response := s.buildResponse(qc, attempt)
	response.Errors = problems
	response.Unanswered = unanswered
	if attempt.IsFinished() {
		if response.FeedbackDetails, err = s.feedbacksFor(ctx, s.Repo, attempt); err != nil {
			return nil, err
		}
	}
	return response, nil
}

// Reevaluate scores a finished attempt again after the quiz was edited
func (s *attemptService) Reevaluate(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error) {
	var (
		qc      *quizContext
		attempt *models.Attempt
		outcome finishOutcome
	)

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.lockedAttempt(ctx, attemptID, func(tx repositories.Repository, lockedQC *quizContext, locked *models.Attempt) error {
		qc, attempt = lockedQC, locked
		if err := qc.require(user, CapManage, "reevaluate"); err != nil {
			return err
		}
		if !attempt.IsFinished() {
			return NewValidationError("attempt", "is not finished", attempt.ID)
		}

		questions, err := tx.Question().ListByQuiz(ctx, qc.Quiz.ID)
		if err != nil {
			return fmt.Errorf("failed to list questions: %w", err)
		}
		outcome, err = s.evaluateAndFinish(ctx, tx, qc, attempt, questions, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	if outcome.changed {
		s.afterFinish(ctx, attempt, outcome)
	}

	response := s.buildResponse(qc, attempt)
	if response.FeedbackDetails, err = s.feedbacksFor(ctx, s.Repo, attempt); err != nil {
		return nil, err
	}
	return response, nil
}

func (s *attemptService) ReevaluateAll(ctx context.Context, quizID uint, userID string) (*ReevaluateResponse, error) {
	qc, _, err := s.loadForUser(ctx, quizID, userID, CapManage, "reevaluate")
	if err != nil {
		return nil, err
	}

	result := &ReevaluateResponse{}
	err = s.Repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		current, err := tx.Attempt().ListCurrent(ctx, quizID)
		if err != nil {
			return fmt.Errorf("failed to list attempts: %w", err)
		}
		questions, err := tx.Question().ListByQuiz(ctx, quizID)
		if err != nil {
			return fmt.Errorf("failed to list questions: %w", err)
		}

		for _, attempt := range current {
			if err := tx.Attempt().LockUser(ctx, quizID, attempt.UserID); err != nil {
				return fmt.Errorf("failed to lock attempts: %w", err)
			}
			outcome, err := s.evaluateAndFinish(ctx, tx, qc, attempt, questions, false)
			if err != nil {
				return err
			}
			result.Evaluated++
			if outcome.changed {
				result.Changed++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Changed > 0 {
		s.summary.EntityUpdated(ctx, quizID, "attempt", 0)
	}

	s.Logger.Info("Attempts reevaluated",
		"quiz_id", quizID,
		"evaluated", result.Evaluated,
		"changed", result.Changed)

	return result, nil
}

// ===== ELIGIBILITY =====

func (s *attemptService) CheckStart(ctx context.Context, quizID uint, userID string) error {
	qc, err := s.loadQuiz(ctx, s.Repo, quizID)
	if err != nil {
		return err
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.checkStart(ctx, s.Repo, qc, user)
}

func (s *attemptService) CanStart(ctx context.Context, quizID uint, userID string) (bool, error) {
	return asDecision(s.CheckStart(ctx, quizID, userID))
}

func (s *attemptService) Eligibility(ctx context.Context, quizID uint, userID string) (*EligibilityResponse, error) {
	qc, err := s.loadQuiz(ctx, s.Repo, quizID)
	if err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	used, err := s.Repo.Attempt().CountFinished(ctx, quizID, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}

	response := &EligibilityResponse{
		CanStart:      true,
		AttemptsUsed:  used,
		AttemptsLimit: qc.Quiz.Settings.AttemptsLimit,
	}

	err = s.checkStart(ctx, s.Repo, qc, user)
	if err == nil {
		return response, nil
	}
	if !isDenial(err) {
		return nil, err
	}

	response.CanStart = false
	response.Message = err.Error()
	var policyErr *PolicyError
	if errors.As(err, &policyErr) {
		response.Reason = policyErr.Code
	} else {
		response.Reason = "permission_denied"
	}
	return response, nil
}

func (s *attemptService) CheckContinue(ctx context.Context, attemptID uint, userID string) error {
	attempt, err := s.Repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		return notFoundAs(err, ErrAttemptNotFound, "get attempt")
	}
	qc, err := s.loadQuiz(ctx, s.Repo, attempt.QuizID)
	if err != nil {
		return err
	}
	return s.checkContinue(ctx, s.Repo, qc, attempt, userID)
}

func (s *attemptService) CanContinue(ctx context.Context, attemptID uint, userID string) (bool, error) {
	return asDecision(s.CheckContinue(ctx, attemptID, userID))
}

func (s *attemptService) CanView(ctx context.Context, attempt *models.Attempt, userID string) (bool, error) {
	qc, err := s.loadQuiz(ctx, s.Repo, attempt.QuizID)
	if err != nil {
		return false, err
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return canViewAttempt(qc, attempt, user), nil
}

// ===== QUERIES =====

func (s *attemptService) GetCurrentAttempt(ctx context.Context, quizID uint, userID string) (*models.Attempt, error) {
	if _, err := s.loadQuiz(ctx, s.Repo, quizID); err != nil {
		return nil, err
	}

	attempt, err := s.Repo.Attempt().GetCurrent(ctx, quizID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get current attempt: %w", err)
	}
	return attempt, nil
}

func (s *attemptService) GetHistory(ctx context.Context, quizID uint, userID string) ([]*models.Attempt, error) {
	if _, err := s.loadQuiz(ctx, s.Repo, quizID); err != nil {
		return nil, err
	}

	attempts, err := s.Repo.Attempt().ListByUser(ctx, quizID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

func (s *attemptService) CountFinished(ctx context.Context, quizID uint, userID string) (int64, error) {
	count, err := s.Repo.Attempt().CountFinished(ctx, quizID, userID, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}

func (s *attemptService) ListCurrent(ctx context.Context, quizID uint, userID string) ([]*models.Attempt, error) {
	if _, _, err := s.loadForUser(ctx, quizID, userID, CapViewAnyAttempt, "list attempts"); err != nil {
		return nil, err
	}

	attempts, err := s.Repo.Attempt().ListCurrent(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

func (s *attemptService) GetAttempt(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error) {
	attempt, qc, err := s.viewableAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}

	response := s.buildResponse(qc, attempt)
	if attempt.IsFinished() {
		if response.FeedbackDetails, err = s.feedbacksFor(ctx, s.Repo, attempt); err != nil {
			return nil, err
		}
	}
	return response, nil
}

func (s *attemptService) GetFeedbacks(ctx context.Context, attemptID uint, userID string) ([]*models.Feedback, error) {
	attempt, _, err := s.viewableAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	return s.feedbacksFor(ctx, s.Repo, attempt)
}
