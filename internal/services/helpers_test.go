package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/instantquiz-service/internal/cache"
	"github.com/SAP-F-2025/instantquiz-service/internal/events"
	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories/memory"
	"github.com/SAP-F-2025/instantquiz-service/internal/validator"
)

const (
	teacherID      = "teacher-1"
	otherTeacherID = "teacher-2"
	adminID        = "admin-1"
	studentID      = "student-1"
	otherStudentID = "student-2"
)

type testEnv struct {
	ctx     context.Context
	store   *memory.Store
	events  *events.MockEventPublisher
	now     time.Time
	manager ServiceManager
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithCache(t, nil)
}

func newTestEnvWithCache(t *testing.T, cm *cache.CacheManager) *testEnv {
	return newTestEnvWithRepo(t, cm, nil)
}

// newTestEnvWithRepo lets wrap decorate the store the services see
func newTestEnvWithRepo(t *testing.T, cm *cache.CacheManager, wrap func(*memory.Store) repositories.Repository) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := memory.NewDirectory(
		&models.User{ID: teacherID, FullName: "Tess Teacher", Role: models.RoleTeacher},
		&models.User{ID: otherTeacherID, FullName: "Theo Teacher", Role: models.RoleTeacher},
		&models.User{ID: adminID, FullName: "Ada Admin", Role: models.RoleAdmin},
		&models.User{ID: studentID, FullName: "Sam Student", Role: models.RoleStudent},
		&models.User{ID: otherStudentID, FullName: "Sue Student", Role: models.RoleStudent},
	)

	env := &testEnv{
		ctx:    context.Background(),
		store:  memory.NewStore(users),
		events: events.NewMockEventPublisher(logger),
		now:    time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	var repo repositories.Repository = env.store
	if wrap != nil {
		repo = wrap(env.store)
	}
	env.manager = NewServiceManager(Dependencies{
		Repo:      repo,
		Cache:     cm,
		Logger:    logger,
		Validator: validator.New(),
		Events:    env.events,
		Clock:     func() time.Time { return env.now },
	})
	require.NoError(t, env.manager.Initialize(env.ctx))
	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func ptr[T any](v T) *T {
	return &v
}

// learningStyles is a quiz with criteria Intro and Pragmatist, one single-select
// question (A gives Intro 1, B gives Pragmatist 1) and one feedback for pragmatists.
type learningStyles struct {
	quiz       *models.Quiz
	intro      *models.Criterion
	pragmatist *models.Criterion
	question   *models.Question
	feedback   *models.Feedback
}

func (e *testEnv) createQuiz(t *testing.T, settings validator.QuizSettingsRequest) *models.Quiz {
	t.Helper()

	resp, err := e.manager.Quiz().Create(e.ctx, &CreateQuizRequest{
		Name:     "Learning styles",
		Settings: &settings,
	}, teacherID)
	require.NoError(t, err)
	return resp.Quiz
}

func (e *testEnv) learningStyles(t *testing.T, settings validator.QuizSettingsRequest) *learningStyles {
	t.Helper()

	ls := &learningStyles{quiz: e.createQuiz(t, settings)}
	quizID := ls.quiz.ID

	var err error
	ls.intro, err = e.manager.Criterion().Create(e.ctx, quizID, &CriterionRequest{Name: ptr("Intro")}, teacherID)
	require.NoError(t, err)
	ls.pragmatist, err = e.manager.Criterion().Create(e.ctx, quizID, &CriterionRequest{Name: ptr("Pragmatist")}, teacherID)
	require.NoError(t, err)

	created, err := e.manager.Question().Create(e.ctx, quizID, &CreateQuestionRequest{
		Text: "When you learn something new you...",
		Options: []validator.OptionRequest{
			{Value: "A", Points: map[uint]float64{ls.intro.ID: 1}},
			{Value: "B", Points: map[uint]float64{ls.pragmatist.ID: 1}},
		},
	}, teacherID)
	require.NoError(t, err)
	ls.question, err = e.store.Question().GetByID(e.ctx, quizID, created.ID)
	require.NoError(t, err)
	require.Equal(t, 1, ls.question.OptionByValue("A").Idx)
	require.Equal(t, 2, ls.question.OptionByValue("B").Idx)

	ls.feedback, err = e.manager.Feedback().Create(e.ctx, quizID, &FeedbackRequest{
		Text:    ptr("You learn by doing"),
		Formula: ptr("${Pragmatist} >= 1"),
	}, teacherID)
	require.NoError(t, err)

	return ls
}

func (ls *learningStyles) choose(idx int) models.AnswerSet {
	return models.AnswerSet{ls.question.ID: {Options: []int{idx}}}
}

// finish starts an attempt and submits the given option
func (e *testEnv) finish(t *testing.T, ls *learningStyles, userID string, idx int) *AttemptResponse {
	t.Helper()

	started, err := e.manager.Attempt().Start(e.ctx, ls.quiz.ID, userID)
	require.NoError(t, err)

	e.advance(time.Second)
	resp, err := e.manager.Attempt().Submit(e.ctx, started.ID, ls.choose(idx), userID)
	require.NoError(t, err)
	require.Equal(t, models.AttemptFinished, resp.Status)
	return resp
}
