package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/instantquiz-service/internal/cache"
	"github.com/SAP-F-2025/instantquiz-service/internal/events"
	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories"
	"github.com/SAP-F-2025/instantquiz-service/pkg/monitoring"
)

type summaryService struct {
	serviceBase
}

func NewSummaryService(deps Dependencies) SummaryService {
	return &summaryService{serviceBase: newServiceBase(deps)}
}

// Get returns the summary from redis, then from the quiz row, and computes it otherwise
func (s *summaryService) Get(ctx context.Context, quizID uint) (*models.Summary, error) {
	key := cache.SummaryKey(quizID)

	if raw, err := s.Cache.Summary.GetRaw(ctx, key); err == nil {
		summary := models.NewSummary()
		if err := json.Unmarshal(raw, summary); err == nil {
			return summary, nil
		}
		cache.SafeDelete(ctx, s.Cache.Summary, key)
	} else if !errors.Is(err, cache.ErrCacheNotFound) && !errors.Is(err, cache.ErrCacheNotAvailable) {
		s.Logger.Warn("Failed to read cached summary", "quiz_id", quizID, "error", err)
	}

	quiz, err := s.Repo.Quiz().GetByID(ctx, quizID)
	if err != nil {
		return nil, notFoundAs(err, ErrQuizNotFound, "get quiz")
	}

	if quiz.HasSummary() {
		summary := models.NewSummary()
		if err := json.Unmarshal(quiz.Summary, summary); err == nil {
			s.mirror(ctx, quizID, quiz.Summary, quiz.SummaryVersion)
			return summary, nil
		}
		s.Logger.Warn("Malformed stored payload", "entity", "quiz", "field", "summary", "quiz_id", quizID)
		monitoring.MalformedPayloads.WithLabelValues("quiz", "summary").Inc()
	}

	summary, err := s.compute(ctx, quizID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	// An invalidation that committed while computing moved the version; the result
	// is still returned to this caller but not cached.
	saved, err := s.Repo.Quiz().SaveSummary(ctx, quizID, data, quiz.SummaryVersion)
	if err != nil {
		s.Logger.Error("Failed to persist summary", "quiz_id", quizID, "error", err)
	}
	if saved {
		s.mirror(ctx, quizID, data, quiz.SummaryVersion)
	} else if err == nil {
		s.Logger.Debug("Summary went stale while computing", "quiz_id", quizID)
	}

	return summary, nil
}

// mirror copies the stored summary to redis. Reset moves the version before it drops
// the key, so re-reading the version afterwards catches a reset that raced the write.
func (s *summaryService) mirror(ctx context.Context, quizID uint, data []byte, version int64) {
	key := cache.SummaryKey(quizID)
	if err := s.Cache.Summary.SetRaw(ctx, key, data, s.SummaryTTL); err != nil {
		if !errors.Is(err, cache.ErrCacheNotAvailable) {
			s.Logger.Warn("Failed to cache summary", "quiz_id", quizID, "error", err)
		}
		return
	}

	quiz, err := s.Repo.Quiz().GetByID(ctx, quizID)
	if err != nil || quiz.SummaryVersion != version {
		cache.SafeDelete(ctx, s.Cache.Summary, key)
	}
}

func (s *summaryService) compute(ctx context.Context, quizID uint) (*models.Summary, error) {
	attempts, err := s.Repo.Attempt().ListCurrent(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	questions, err := s.Repo.Question().ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	criteria, err := s.Repo.Criterion().ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to list criteria: %w", err)
	}
	feedbacks, err := s.Repo.Feedback().ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedbacks: %w", err)
	}

	summary := calculateSummary(attempts, questions, criteria, feedbacks)
	summary.ComputedAt = s.now().UTC()

	monitoring.SummaryComputations.Inc()
	s.Logger.Info("Summary computed",
		"quiz_id", quizID,
		"attempts", summary.TotalCount)

	return summary, nil
}

// calculateSummary aggregates current attempts. Entries for questions, criteria and
// feedbacks that no longer exist are left out.
func calculateSummary(attempts []*models.Attempt, questions []*models.Question, criteria []*models.Criterion, feedbacks []*models.Feedback) *models.Summary {
	summary := models.NewSummary()
	summary.TotalCount = len(attempts)

	for _, feedback := range feedbacks {
		summary.Feedbacks[feedback.ID] = 0
	}

	for _, criterion := range criteria {
		summary.Points.C[criterion.ID] = 0
		summary.MaxPoints.C[criterion.ID] = 0
	}

	for _, question := range questions {
		maxPoints := question.MaxPossiblePoints()
		perQuestionMax := make(models.PointMap, len(criteria))
		perQuestion := make(models.PointMap, len(criteria))
		for _, criterion := range criteria {
			perQuestionMax[criterion.ID] = maxPoints[criterion.ID]
			perQuestion[criterion.ID] = 0
			summary.MaxPoints.C[criterion.ID] += maxPoints[criterion.ID]
		}
		summary.MaxPoints.Q[question.ID] = perQuestionMax
		summary.Points.Q[question.ID] = perQuestion

		tally := make(map[int]int, len(question.Options))
		for _, option := range question.Options {
			tally[option.Idx] = 0
		}
		summary.Answers[question.ID] = tally
		summary.Comments[question.ID] = 0
	}

	for _, attempt := range attempts {
		for _, feedbackID := range attempt.Feedbacks {
			if _, ok := summary.Feedbacks[feedbackID]; ok {
				summary.Feedbacks[feedbackID]++
			}
		}

		for criterionID := range summary.Points.C {
			summary.Points.C[criterionID] += attempt.Points.C[criterionID]
		}

		for _, question := range questions {
			perQuestion := summary.Points.Q[question.ID]
			earned := attempt.Points.Q[question.ID]
			for criterionID := range perQuestion {
				perQuestion[criterionID] += earned[criterionID]
			}

			answer := attempt.Answers.Get(question.ID)
			if answer == nil {
				continue
			}
			tally := summary.Answers[question.ID]
			for _, idx := range answer.Selected() {
				if _, ok := tally[idx]; ok {
					tally[idx]++
				}
			}
			if strings.TrimSpace(answer.Comment) != "" {
				summary.Comments[question.ID]++
			}
		}
	}

	return summary
}

// Reset drops the cached summary. The redis key is dropped even when the row write
// fails; failures are logged only.
func (s *summaryService) Reset(ctx context.Context, quizID uint) {
	s.resetStored(ctx, quizID)
	cache.SafeDelete(ctx, s.Cache.Summary, cache.SummaryKey(quizID))
}

func (s *summaryService) resetStored(ctx context.Context, quizID uint) {
	if err := s.Repo.Quiz().ResetSummary(ctx, quizID); err != nil && !repositories.IsNotFoundError(err) {
		s.Logger.Error("Failed to reset summary", "quiz_id", quizID, "error", err)
	}
}

func (s *summaryService) ResetForUser(ctx context.Context, quizID uint, userID string) error {
	if _, _, err := s.loadForUser(ctx, quizID, userID, CapManage, "reset summary"); err != nil {
		return err
	}

	s.Reset(ctx, quizID)
	s.invalidated(ctx, quizID, "summary", 0)
	return nil
}

// EntityUpdated is called after anything that contributes to the summary changed.
// With nothing cached only the version moves, so a computation still in flight is
// not stored.
func (s *summaryService) EntityUpdated(ctx context.Context, quizID uint, entity string, entityID uint) {
	if !s.isCached(ctx, quizID) {
		s.resetStored(ctx, quizID)
		return
	}

	s.Reset(ctx, quizID)
	s.invalidated(ctx, quizID, entity, entityID)
}

func (s *summaryService) invalidated(ctx context.Context, quizID uint, entity string, entityID uint) {
	monitoring.SummaryInvalidations.Inc()
	s.Logger.Debug("Summary invalidated",
		"quiz_id", quizID,
		"entity", entity,
		"entity_id", entityID)

	s.publish(ctx, events.TopicSummaryInvalidated, events.SummaryInvalidatedData{
		QuizID:   quizID,
		Entity:   entity,
		EntityID: entityID,
	})
}

func (s *summaryService) isCached(ctx context.Context, quizID uint) bool {
	if exists, err := s.Cache.Summary.Exists(ctx, cache.SummaryKey(quizID)); err == nil && exists {
		return true
	}

	quiz, err := s.Repo.Quiz().GetByID(ctx, quizID)
	if err != nil {
		return false
	}
	return quiz.HasSummary()
}

// GetForUser applies the quiz result visibility settings before returning the report
func (s *summaryService) GetForUser(ctx context.Context, quizID uint, userID string) (*models.SummaryReport, error) {
	qc, err := s.loadQuiz(ctx, s.Repo, quizID)
	if err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary, err := s.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}

	if !qc.can(user, CapViewSummary) {
		if reason := s.hiddenReason(ctx, qc.Quiz, summary, userID); reason != "" {
			return nil, NewPermissionError(userID, quizID, "summary", "view", reason)
		}
	}

	return s.buildReport(ctx, qc.Quiz, summary)
}

func (s *summaryService) hiddenReason(ctx context.Context, quiz *models.Quiz, summary *models.Summary, userID string) string {
	settings := quiz.Settings
	if !settings.ResultAfterAnswer {
		return "results are not shown to participants"
	}

	if _, err := s.Repo.Attempt().GetCurrent(ctx, quiz.ID, userID); err != nil {
		return "results are shown after answering"
	}
	if settings.ResultMinDate != nil && s.now().Before(*settings.ResultMinDate) {
		return "results are not available yet"
	}
	if summary.TotalCount < settings.ResultMinAnswers {
		return "not enough answers yet"
	}
	return ""
}

func (s *summaryService) buildReport(ctx context.Context, quiz *models.Quiz, summary *models.Summary) (*models.SummaryReport, error) {
	questions, err := s.Repo.Question().ListByQuiz(ctx, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	criteria, err := s.Repo.Criterion().ListByQuiz(ctx, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list criteria: %w", err)
	}
	feedbacks, err := s.Repo.Feedback().ListByQuiz(ctx, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedbacks: %w", err)
	}

	return &models.SummaryReport{
		QuizID:      quiz.ID,
		TotalCount:  summary.TotalCount,
		ByCriterion: ByCriterion(summary, criteria),
		ByFeedback:  ByFeedback(summary, feedbacks),
		ByQuestion:  ByQuestion(summary, questions),
		ComputedAt:  summary.ComputedAt,
	}, nil
}

func ByCriterion(summary *models.Summary, criteria []*models.Criterion) []models.CriterionSummary {
	out := make([]models.CriterionSummary, 0, len(criteria))
	for _, criterion := range criteria {
		row := models.CriterionSummary{
			CriterionID: criterion.ID,
			Name:        criterion.Name,
			Points:      summary.Points.C[criterion.ID],
			MaxPoints:   summary.MaxPoints.C[criterion.ID],
		}
		if summary.TotalCount > 0 {
			row.Average = row.Points / float64(summary.TotalCount)
		}
		out = append(out, row)
	}
	return out
}

func ByFeedback(summary *models.Summary, feedbacks []*models.Feedback) []models.FeedbackSummary {
	out := make([]models.FeedbackSummary, 0, len(feedbacks))
	for _, feedback := range feedbacks {
		out = append(out, models.FeedbackSummary{
			FeedbackID: feedback.ID,
			Text:       feedback.Text,
			Count:      summary.Feedbacks[feedback.ID],
		})
	}
	return out
}

func ByQuestion(summary *models.Summary, questions []*models.Question) []models.QuestionSummary {
	out := make([]models.QuestionSummary, 0, len(questions))
	for _, question := range questions {
		row := models.QuestionSummary{
			QuestionID: question.ID,
			Text:       question.Text,
			Options:    make([]models.OptionSummary, 0, len(question.Options)),
			Comments:   summary.Comments[question.ID],
			Points:     summary.Points.Q[question.ID],
			MaxPoints:  summary.MaxPoints.Q[question.ID],
		}
		for _, option := range question.Options {
			row.Options = append(row.Options, models.OptionSummary{
				Idx:   option.Idx,
				Value: option.Value,
				Count: summary.Answers[question.ID][option.Idx],
			})
		}
		out = append(out, row)
	}
	return out
}

const (
	sheetCriteria  = "Criteria"
	sheetFeedbacks = "Feedbacks"
	sheetQuestions = "Questions"
)

// ExportXLSX renders the summary report as a workbook
func (s *summaryService) ExportXLSX(ctx context.Context, quizID uint, userID string) (*bytes.Buffer, error) {
	report, err := s.GetForUser(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.Logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", sheetCriteria); err != nil {
		return nil, fmt.Errorf("failed to prepare workbook: %w", err)
	}
	for _, sheet := range []string{sheetFeedbacks, sheetQuestions} {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to add sheet %s: %w", sheet, err)
		}
	}

	rows := map[string][][]interface{}{
		sheetCriteria:  {{"Criterion", "Points", "Max points", "Average"}},
		sheetFeedbacks: {{"Feedback", "Count"}},
		sheetQuestions: {{"Question", "Option", "Count"}},
	}
	for _, c := range report.ByCriterion {
		rows[sheetCriteria] = append(rows[sheetCriteria], []interface{}{c.Name, c.Points, c.MaxPoints, c.Average})
	}
	for _, fb := range report.ByFeedback {
		rows[sheetFeedbacks] = append(rows[sheetFeedbacks], []interface{}{fb.Text, fb.Count})
	}
	for _, q := range report.ByQuestion {
		for _, option := range q.Options {
			rows[sheetQuestions] = append(rows[sheetQuestions], []interface{}{q.Text, option.Value, option.Count})
		}
		if q.Comments > 0 {
			rows[sheetQuestions] = append(rows[sheetQuestions], []interface{}{q.Text, "(comments)", q.Comments})
		}
	}

	for sheet, sheetRows := range rows {
		for i, row := range sheetRows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return nil, fmt.Errorf("failed to write %s: %w", sheet, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	s.Logger.Info("Summary exported", "quiz_id", quizID, "user_id", userID)
	return buf, nil
}
