package services

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/instantquiz-service/internal/cache"
	"github.com/SAP-F-2025/instantquiz-service/internal/events"
	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories/memory"
	"github.com/SAP-F-2025/instantquiz-service/internal/validator"
	"github.com/SAP-F-2025/instantquiz-service/pkg/monitoring"
)

func computations() float64 {
	return testutil.ToFloat64(monitoring.SummaryComputations)
}

func TestSummaryService_Calculate(t *testing.T) {
	env := newTestEnv(t)
	ls := env.learningStyles(t, validator.QuizSettingsRequest{})
	env.finish(t, ls, studentID, 2)
	env.finish(t, ls, otherStudentID, 2)
	env.finish(t, ls, adminID, 1)
	// superseded attempts are not counted
	env.finish(t, ls, studentID, 2)

	summary, err := env.manager.Summary().Get(env.ctx, ls.quiz.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalCount)
	assert.Equal(t, map[uint]int{ls.feedback.ID: 2}, summary.Feedbacks)
	assert.Equal(t, models.PointMap{ls.intro.ID: 1, ls.pragmatist.ID: 2}, summary.Points.C)
	assert.Equal(t, models.PointMap{ls.intro.ID: 1, ls.pragmatist.ID: 2}, summary.Points.Q[ls.question.ID])
	assert.Equal(t, models.PointMap{ls.intro.ID: 1, ls.pragmatist.ID: 1}, summary.MaxPoints.C)
	assert.Equal(t, models.PointMap{ls.intro.ID: 1, ls.pragmatist.ID: 1}, summary.MaxPoints.Q[ls.question.ID])
	assert.Equal(t, map[int]int{1: 1, 2: 2}, summary.Answers[ls.question.ID])
	assert.Equal(t, env.now, summary.ComputedAt)
}

func TestSummaryService_EmptyQuiz(t *testing.T) {
	env := newTestEnv(t)
	ls := env.learningStyles(t, validator.QuizSettingsRequest{})

	summary, err := env.manager.Summary().Get(env.ctx, ls.quiz.ID)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalCount)
	assert.Equal(t, map[uint]int{ls.feedback.ID: 0}, summary.Feedbacks, "every feedback is listed")

	_, err = env.manager.Summary().Get(env.ctx, 999)
	assert.ErrorIs(t, err, ErrQuizNotFound)
}

func TestSummaryService_Invalidation(t *testing.T) {
	env := newTestEnv(t)
	ls := env.learningStyles(t, validator.QuizSettingsRequest{})
	env.finish(t, ls, studentID, 2)
	summaries := env.manager.Summary()

	before := computations()
	first, err := summaries.Get(env.ctx, ls.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, before+1, computations())

	quiz, err := env.store.Quiz().GetByID(env.ctx, ls.quiz.ID)
	require.NoError(t, err)
	assert.True(t, quiz.HasSummary(), "the computed summary is persisted")

	cached, err := summaries.Get(env.ctx, ls.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, before+1, computations(), "a cached summary is not recomputed")
	assert.Equal(t, first.Points, cached.Points)

	changes := []struct {
		name   string
		change func(t *testing.T)
	}{
		{"question", func(t *testing.T) {
			_, err := env.manager.Question().AddOption(env.ctx, ls.quiz.ID, ls.question.ID, &AddOptionRequest{Value: "C"}, teacherID)
			require.NoError(t, err)
		}},
		{"criterion", func(t *testing.T) {
			_, err := env.manager.Criterion().Update(env.ctx, ls.quiz.ID, ls.intro.ID, &CriterionRequest{Name: ptr("Introvert")}, teacherID)
			require.NoError(t, err)
		}},
		{"feedback", func(t *testing.T) {
			_, err := env.manager.Feedback().Create(env.ctx, ls.quiz.ID, &FeedbackRequest{Formula: ptr("${Introvert} >= 1")}, teacherID)
			require.NoError(t, err)
		}},
		{"attempt", func(t *testing.T) {
			env.finish(t, ls, otherStudentID, 1)
		}},
	}

	for _, tc := range changes {
		t.Run(tc.name, func(t *testing.T) {
			_, err := summaries.Get(env.ctx, ls.quiz.ID)
			require.NoError(t, err)
			env.events.ClearEvents()

			tc.change(t)
			assert.Len(t, env.events.EventsOnTopic(events.TopicSummaryInvalidated), 1)

			count := computations()
			_, err = summaries.Get(env.ctx, ls.quiz.ID)
			require.NoError(t, err)
			assert.Equal(t, count+1, computations(), "the next read recomputes")
		})
	}

	summary, err := summaries.Get(env.ctx, ls.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalCount)
	assert.Len(t, summary.Feedbacks, 2)
	assert.Contains(t, summary.Answers[ls.question.ID], 3, "the added option is tallied")
}

// racingRepo runs afterListCurrent once, after the attempts of a summary were read
type racingRepo struct {
	repositories.Repository
	attempts *racingAttempts
}

func (r *racingRepo) Attempt() repositories.AttemptRepository { return r.attempts }

type racingAttempts struct {
	repositories.AttemptRepository
	afterListCurrent func()
}

func (a *racingAttempts) ListCurrent(ctx context.Context, quizID uint) ([]*models.Attempt, error) {
	attempts, err := a.AttemptRepository.ListCurrent(ctx, quizID)
	if hook := a.afterListCurrent; hook != nil {
		a.afterListCurrent = nil
		hook()
	}
	return attempts, err
}

func TestSummaryService_FinishDuringComputeIsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	attempts := &racingAttempts{}
	env := newTestEnvWithRepo(t, cache.NewCacheManager(client), func(store *memory.Store) repositories.Repository {
		attempts.AttemptRepository = store.Attempt()
		return &racingRepo{Repository: store, attempts: attempts}
	})
	ls := env.learningStyles(t, validator.QuizSettingsRequest{})
	env.finish(t, ls, studentID, 2)
	summaries := env.manager.Summary()
	key := cache.SummaryCacheConfig.Prefix + cache.SummaryKey(ls.quiz.ID)

	attempts.afterListCurrent = func() {
		env.finish(t, ls, otherStudentID, 1)
	}
	summary, err := summaries.Get(env.ctx, ls.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalCount)

	quiz, err := env.store.Quiz().GetByID(env.ctx, ls.quiz.ID)
	require.NoError(t, err)
	assert.False(t, quiz.HasSummary(), "a summary computed before the finish is not stored")
	assert.False(t, mr.Exists(key))

	summary, err = summaries.Get(env.ctx, ls.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalCount)
	assert.True(t, mr.Exists(key))
}

func TestSummaryService_EntityUpdatedWithoutCache(t *testing.T) {
	env := newTestEnv(t)
	ls := env.learningStyles(t, validator.QuizSettingsRequest{})

	env.manager.Summary().EntityUpdated(env.ctx, ls.quiz.ID, "question", ls.question.ID)
	assert.Empty(t, env.events.EventsOnTopic(events.TopicSummaryInvalidated), "nothing to reset")
}

func TestSummaryService_RedisMirror(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	env := newTestEnvWithCache(t, cache.NewCacheManager(client))
	ls := env.learningStyles(t, validator.QuizSettingsRequest{})
	env.finish(t, ls, studentID, 2)
	summaries := env.manager.Summary()
	key := cache.SummaryCacheConfig.Prefix + cache.SummaryKey(ls.quiz.ID)

	_, err := summaries.Get(env.ctx, ls.quiz.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))

	// the redis copy is served even when the row was cleared behind our back
	require.NoError(t, env.store.Quiz().ResetSummary(env.ctx, ls.quiz.ID))
	count := computations()
	summary, err := summaries.Get(env.ctx, ls.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalCount)
	assert.Equal(t, count, computations())

	summaries.Reset(env.ctx, ls.quiz.ID)
	assert.False(t, mr.Exists(key))

	_, err = summaries.Get(env.ctx, ls.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, count+1, computations())
	assert.True(t, mr.Exists(key))

	// an invalidation with only the redis copy present still resets
	require.NoError(t, env.store.Quiz().ResetSummary(env.ctx, ls.quiz.ID))
	summaries.EntityUpdated(env.ctx, ls.quiz.ID, "criterion", ls.intro.ID)
	assert.False(t, mr.Exists(key))
}

func TestSummaryService_GetForUser(t *testing.T) {
	t.Run("hidden from participants", func(t *testing.T) {
		env := newTestEnv(t)
		ls := env.learningStyles(t, validator.QuizSettingsRequest{})
		env.finish(t, ls, studentID, 2)

		_, err := env.manager.Summary().GetForUser(env.ctx, ls.quiz.ID, studentID)
		assert.True(t, IsPermissionError(err))

		report, err := env.manager.Summary().GetForUser(env.ctx, ls.quiz.ID, teacherID)
		require.NoError(t, err)
		assert.Equal(t, 1, report.TotalCount)
	})

	t.Run("shown after answering", func(t *testing.T) {
		env := newTestEnv(t)
		ls := env.learningStyles(t, validator.QuizSettingsRequest{ResultAfterAnswer: true, ResultMinAnswers: 2})

		_, err := env.manager.Summary().GetForUser(env.ctx, ls.quiz.ID, studentID)
		assert.True(t, IsPermissionError(err), "no own result yet")

		env.finish(t, ls, studentID, 2)
		_, err = env.manager.Summary().GetForUser(env.ctx, ls.quiz.ID, studentID)
		assert.True(t, IsPermissionError(err), "not enough answers")

		env.finish(t, ls, otherStudentID, 1)
		report, err := env.manager.Summary().GetForUser(env.ctx, ls.quiz.ID, studentID)
		require.NoError(t, err)

		require.Len(t, report.ByCriterion, 2)
		assert.Equal(t, "Intro", report.ByCriterion[0].Name)
		assert.Equal(t, 1.0, report.ByCriterion[0].Points)
		assert.Equal(t, 0.5, report.ByCriterion[0].Average)
		require.Len(t, report.ByFeedback, 1)
		assert.Equal(t, 1, report.ByFeedback[0].Count)
		require.Len(t, report.ByQuestion, 1)
		assert.Equal(t, []models.OptionSummary{
			{Idx: 1, Value: "A", Count: 1},
			{Idx: 2, Value: "B", Count: 1},
		}, report.ByQuestion[0].Options)
	})
}

func TestSummaryService_ResetForUser(t *testing.T) {
	env := newTestEnv(t)
	ls := env.learningStyles(t, validator.QuizSettingsRequest{})
	_, err := env.manager.Summary().Get(env.ctx, ls.quiz.ID)
	require.NoError(t, err)

	err = env.manager.Summary().ResetForUser(env.ctx, ls.quiz.ID, studentID)
	assert.True(t, IsPermissionError(err))

	require.NoError(t, env.manager.Summary().ResetForUser(env.ctx, ls.quiz.ID, teacherID))
	quiz, err := env.store.Quiz().GetByID(env.ctx, ls.quiz.ID)
	require.NoError(t, err)
	assert.False(t, quiz.HasSummary())
}

func TestSummaryService_ExportXLSX(t *testing.T) {
	env := newTestEnv(t)
	ls := env.learningStyles(t, validator.QuizSettingsRequest{})
	env.finish(t, ls, studentID, 2)

	buf, err := env.manager.Summary().ExportXLSX(env.ctx, ls.quiz.ID, teacherID)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Criteria", "Feedbacks", "Questions"}, f.GetSheetList())

	rows, err := f.GetRows("Criteria")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Criterion", "Points", "Max points", "Average"}, rows[0])
	assert.Equal(t, "Pragmatist", rows[2][0])

	rows, err = f.GetRows("Questions")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "B", rows[2][1])
	assert.Equal(t, "1", rows[2][2])

	_, err = env.manager.Summary().ExportXLSX(env.ctx, ls.quiz.ID, studentID)
	assert.True(t, IsPermissionError(err))
}

func TestCalculateSummary_IgnoresDeletedEntities(t *testing.T) {
	question := &models.Question{ID: 1, Options: []models.Option{{Idx: 1, Value: "A", Points: models.PointMap{10: 2}}}}
	criterion := &models.Criterion{ID: 10, Name: "Kept"}
	feedback := &models.Feedback{ID: 100}

	attempt := &models.Attempt{
		Answers: models.AnswerSet{1: {Options: []int{1, 7}}, 2: {Options: []int{1}}},
		Points: models.AttemptPoints{
			Q: map[uint]models.PointMap{1: {10: 2, 11: 5}, 2: {10: 4}},
			C: models.PointMap{10: 6, 11: 5},
		},
		Feedbacks: []uint{100, 101},
	}

	summary := calculateSummary([]*models.Attempt{attempt}, []*models.Question{question}, []*models.Criterion{criterion}, []*models.Feedback{feedback})

	assert.Equal(t, 1, summary.TotalCount)
	assert.Equal(t, map[uint]int{100: 1}, summary.Feedbacks)
	assert.Equal(t, models.PointMap{10: 6}, summary.Points.C)
	assert.Equal(t, map[uint]models.PointMap{1: {10: 2}}, summary.Points.Q)
	assert.Equal(t, map[uint]map[int]int{1: {1: 1}}, summary.Answers)
	assert.Equal(t, models.PointMap{10: 2}, summary.MaxPoints.Q[1])
	assert.Equal(t, models.PointMap{10: 2}, summary.MaxPoints.C)
}
