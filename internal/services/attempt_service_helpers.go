package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/SAP-F-2025/instantquiz-service/internal/events"
	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories"
	"github.com/SAP-F-2025/instantquiz-service/pkg/monitoring"
)

// ===== ATTEMPT SERVICE HELPERS =====

// checkStart decides whether the user may start a new attempt
func (s *attemptService) checkStart(ctx context.Context, repo repositories.Repository, qc *quizContext, user *models.User) error {
	if !qc.can(user, CapAttempt) {
		return NewPermissionError(user.ID, qc.Quiz.ID, "quiz", "attempt", "missing capability attempt")
	}

	if err := s.checkWindow(qc.Quiz); err != nil {
		return err
	}

	limit := qc.Quiz.Settings.AttemptsLimit
	if limit <= 0 {
		return nil
	}

	finished, err := repo.Attempt().CountFinished(ctx, qc.Quiz.ID, user.ID, 0)
	if err != nil {
		return fmt.Errorf("failed to count attempts: %w", err)
	}
	if finished >= int64(limit) {
		return ErrAttemptsLimitReached
	}

	// A single allowed attempt is used up as soon as it is started
	if limit == 1 {
		unfinished, err := repo.Attempt().HasUnfinished(ctx, qc.Quiz.ID, user.ID)
		if err != nil {
			return fmt.Errorf("failed to check unfinished attempts: %w", err)
		}
		if unfinished {
			return ErrAttemptsLimitReached
		}
	}

	return nil
}

// checkContinue decides whether answers may still be added to the attempt
func (s *attemptService) checkContinue(ctx context.Context, repo repositories.Repository, qc *quizContext, attempt *models.Attempt, userID string) error {
	if attempt.UserID != userID {
		return ErrAttemptNotOwned
	}
	if attempt.Overridden {
		return ErrAttemptOverridden
	}
	if attempt.IsFinished() {
		return ErrAttemptFinished
	}

	if err := s.checkWindow(qc.Quiz); err != nil {
		return err
	}

	settings := qc.Quiz.Settings
	if settings.AttemptDuration > 0 && s.now().Sub(attempt.TimeStarted).Seconds() > float64(settings.AttemptDuration) {
		return ErrAttemptTimedOut
	}

	if settings.AttemptsLimit > 0 {
		finished, err := repo.Attempt().CountFinished(ctx, qc.Quiz.ID, userID, attempt.ID)
		if err != nil {
			return fmt.Errorf("failed to count attempts: %w", err)
		}
		if finished >= int64(settings.AttemptsLimit) {
			return ErrAttemptsLimitReached
		}
	}

	return nil
}

func (s *attemptService) checkWindow(quiz *models.Quiz) error {
	now := s.now()
	if quiz.TimeOpen != nil && now.Before(*quiz.TimeOpen) {
		return ErrQuizNotOpen
	}
	if quiz.TimeClose != nil && now.After(*quiz.TimeClose) {
		return ErrQuizClosed
	}
	return nil
}

// asDecision turns a check error into the boolean form
func asDecision(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if isDenial(err) {
		return false, nil
	}
	return false, err
}

// lockedAttempt runs fn in a transaction holding the lock of the attempt's user.
// The attempt is read again once the lock is held.
func (s *attemptService) lockedAttempt(ctx context.Context, attemptID uint, fn func(tx repositories.Repository, qc *quizContext, attempt *models.Attempt) error) error {
	return s.Repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		attempt, err := tx.Attempt().GetByID(ctx, attemptID)
		if err != nil {
			return notFoundAs(err, ErrAttemptNotFound, "get attempt")
		}

		qc, err := s.loadQuiz(ctx, tx, attempt.QuizID)
		if err != nil {
			return err
		}

		if err := tx.Attempt().LockUser(ctx, attempt.QuizID, attempt.UserID); err != nil {
			return fmt.Errorf("failed to lock attempts: %w", err)
		}

		attempt, err = tx.Attempt().GetByID(ctx, attemptID)
		if err != nil {
			return notFoundAs(err, ErrAttemptNotFound, "get attempt")
		}

		return fn(tx, qc, attempt)
	})
}

// mergeAnswers applies the valid incoming answers on top of the current ones and
// reports the rejected ones by question id
func mergeAnswers(current, incoming models.AnswerSet, questions []*models.Question) (models.AnswerSet, map[uint][]string) {
	byID := make(map[uint]*models.Question, len(questions))
	for _, question := range questions {
		byID[question.ID] = question
	}

	merged := current.Clone()
	problems := make(map[uint][]string)

	for questionID, answer := range incoming {
		question, ok := byID[questionID]
		if !ok {
			problems[questionID] = []string{"unknown question"}
			continue
		}
		if issues := question.ValidateAnswer(&answer); len(issues) > 0 {
			problems[questionID] = issues
			continue
		}
		merged[questionID] = question.NormalizeAnswer(answer)
	}

	if len(problems) == 0 {
		return merged, nil
	}
	return merged, problems
}

func missingAnswers(answers models.AnswerSet, questions []*models.Question) map[uint]string {
	missing := make(map[uint]string)
	for _, question := range questions {
		if reason := question.MissingAnswer(answers.Get(question.ID)); reason != "" {
			missing[question.ID] = reason
		}
	}

	if len(missing) == 0 {
		return nil
	}
	return missing
}

type finishOutcome struct {
	finished   bool
	changed    bool
	refinished bool
	superseded int64
}

// evaluateAndFinish scores the attempt and finishes it. A first finish supersedes the
// user's other finished attempts; a repeated one only writes when the result differs.
func (s *attemptService) evaluateAndFinish(ctx context.Context, tx repositories.Repository, qc *quizContext, attempt *models.Attempt, questions []*models.Question, answersChanged bool) (finishOutcome, error) {
	criteria, err := tx.Criterion().ListByQuiz(ctx, qc.Quiz.ID)
	if err != nil {
		return finishOutcome{}, fmt.Errorf("failed to list criteria: %w", err)
	}
	feedbacks, err := tx.Feedback().ListByQuiz(ctx, qc.Quiz.ID)
	if err != nil {
		return finishOutcome{}, fmt.Errorf("failed to list feedbacks: %w", err)
	}

	result := Score(attempt.Answers, questions, criteria, feedbacks)
	for _, failure := range result.Skipped {
		s.Logger.Warn("Feedback formula could not be evaluated",
			"quiz_id", qc.Quiz.ID,
			"feedback_id", failure.FeedbackID,
			"error", failure.Err)
	}

	outcome := finishOutcome{
		finished:   true,
		changed:    answersChanged,
		refinished: attempt.IsFinished(),
	}

	if !attempt.IsFinished() {
		superseded, err := tx.Attempt().MarkOverridden(ctx, qc.Quiz.ID, attempt.UserID, attempt.ID)
		if err != nil {
			return finishOutcome{}, fmt.Errorf("failed to supersede attempts: %w", err)
		}
		now := s.now()
		attempt.TimeFinished = &now
		attempt.Overridden = false
		outcome.superseded = superseded
		outcome.changed = true
	} else if !attempt.Points.Equal(result.Points) || !slices.Equal(attempt.Feedbacks, result.Feedbacks) {
		outcome.changed = true
	}

	attempt.Points = result.Points
	attempt.Feedbacks = result.Feedbacks

	if !outcome.changed {
		return outcome, nil
	}
	if err := tx.Attempt().Update(ctx, attempt); err != nil {
		return finishOutcome{}, fmt.Errorf("failed to update attempt: %w", err)
	}
	return outcome, nil
}

// afterFinish runs once the finishing transaction is committed
func (s *attemptService) afterFinish(ctx context.Context, attempt *models.Attempt, outcome finishOutcome) {
	if !outcome.changed {
		return
	}
	if !outcome.refinished {
		monitoring.AttemptsFinished.Inc()
	}

	s.publish(ctx, events.TopicAttemptFinished, events.AttemptFinishedData{
		QuizID:     attempt.QuizID,
		AttemptID:  attempt.ID,
		UserID:     attempt.UserID,
		Points:     attempt.Points.C,
		Feedbacks:  attempt.Feedbacks,
		Superseded: outcome.superseded,
		Refinished: outcome.refinished,
	})

	s.summary.EntityUpdated(ctx, attempt.QuizID, "attempt", attempt.ID)

	s.Logger.Info("Quiz attempt finished",
		"attempt_id", attempt.ID,
		"quiz_id", attempt.QuizID,
		"user_id", attempt.UserID,
		"superseded", outcome.superseded,
		"refinished", outcome.refinished)
}

func (s *attemptService) buildResponse(qc *quizContext, attempt *models.Attempt) *AttemptResponse {
	response := &AttemptResponse{
		Attempt: attempt,
		Status:  attempt.Status(),
	}

	duration := qc.Quiz.Settings.AttemptDuration
	if duration > 0 && !attempt.IsFinished() {
		remaining := duration - int(s.now().Sub(attempt.TimeStarted).Seconds())
		remaining = max(remaining, 0)
		response.TimeRemaining = &remaining
	}
	return response
}

// feedbacksFor returns the attempt's feedbacks that still exist, or the default feedback
func (s *attemptService) feedbacksFor(ctx context.Context, repo repositories.Repository, attempt *models.Attempt) ([]*models.Feedback, error) {
	feedbacks, err := repo.Feedback().ListByQuiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedbacks: %w", err)
	}

	byID := make(map[uint]*models.Feedback, len(feedbacks))
	for _, feedback := range feedbacks {
		byID[feedback.ID] = feedback
	}

	var out []*models.Feedback
	for _, id := range attempt.Feedbacks {
		if feedback, ok := byID[id]; ok {
			out = append(out, feedback)
		}
	}

	if len(out) == 0 {
		return []*models.Feedback{models.DefaultFeedback(attempt.QuizID)}, nil
	}
	return out, nil
}

func canViewAttempt(qc *quizContext, attempt *models.Attempt, user *models.User) bool {
	if attempt.UserID == user.ID {
		return qc.can(user, CapViewOwnAttempt)
	}
	return qc.can(user, CapViewAnyAttempt)
}

func (s *attemptService) viewableAttempt(ctx context.Context, attemptID uint, userID string) (*models.Attempt, *quizContext, error) {
	attempt, err := s.Repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		return nil, nil, notFoundAs(err, ErrAttemptNotFound, "get attempt")
	}
	qc, err := s.loadQuiz(ctx, s.Repo, attempt.QuizID)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	if !canViewAttempt(qc, attempt, user) {
		return nil, nil, NewPermissionError(userID, attemptID, "attempt", "view", "not allowed to view this attempt")
	}
	return attempt, qc, nil
}
