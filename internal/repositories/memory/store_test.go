package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories"
)

func newQuiz(t *testing.T, store *Store) *models.Quiz {
	t.Helper()
	quiz := &models.Quiz{Name: "Learning styles", Template: models.TemplateBasic, CreatedBy: "teacher"}
	require.NoError(t, store.Quiz().Create(context.Background(), quiz))
	return quiz
}

func TestEntityRepo_CreateAssignsSortOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	quiz := newQuiz(t, store)

	for i := 0; i < 3; i++ {
		c := &models.Criterion{QuizID: quiz.ID, Name: models.DefaultCriterionName(i), SortOrder: models.SortOrderAuto}
		require.NoError(t, store.Criterion().Create(ctx, c))
		assert.Equal(t, i, c.SortOrder)
		assert.NotZero(t, c.ID)
	}

	explicit := &models.Criterion{QuizID: quiz.ID, Name: "First", SortOrder: 0}
	require.NoError(t, store.Criterion().Create(ctx, explicit))

	list, err := store.Criterion().ListByQuiz(ctx, quiz.ID)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, "Criterion 1", list[0].Name)
	assert.Equal(t, "First", list[1].Name, "equal sort order falls back to id")
	assert.Equal(t, "Criterion 3", list[3].Name)

	count, err := store.Criterion().CountByQuiz(ctx, quiz.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)
}

func TestEntityRepo_ScopedToQuiz(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	quizA := newQuiz(t, store)
	quizB := newQuiz(t, store)

	q := &models.Question{QuizID: quizA.ID, Text: "Q", SortOrder: models.SortOrderAuto}
	require.NoError(t, store.Question().Create(ctx, q))

	_, err := store.Question().GetByID(ctx, quizB.ID, q.ID)
	assert.True(t, repositories.IsNotFoundError(err))

	err = store.Question().Delete(ctx, quizB.ID, q.ID)
	assert.True(t, repositories.IsNotFoundError(err))

	err = store.Question().Create(ctx, &models.Question{QuizID: 999})
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestEntityRepo_PayloadRoundTripIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	quiz := newQuiz(t, store)

	q := &models.Question{QuizID: quiz.ID, SortOrder: models.SortOrderAuto}
	q.SetOptionEvaluation("A", 1, 2)
	require.NoError(t, store.Question().Create(ctx, q))

	// Mutating the caller's copy must not leak into the store.
	q.Options[0].Points[1] = 99

	loaded, err := store.Question().GetByID(ctx, quiz.ID, q.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Options, 1)
	assert.Equal(t, 2.0, loaded.Options[0].Points[1])
	assert.Equal(t, 1, loaded.AddInfo.LastOptionIdx)
}

func TestQuizRepo_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	quiz := newQuiz(t, store)

	require.NoError(t, store.Question().Create(ctx, &models.Question{QuizID: quiz.ID}))
	require.NoError(t, store.Criterion().Create(ctx, &models.Criterion{QuizID: quiz.ID}))
	require.NoError(t, store.Feedback().Create(ctx, &models.Feedback{QuizID: quiz.ID}))
	require.NoError(t, store.Attempt().Create(ctx, &models.Attempt{QuizID: quiz.ID, UserID: "u1", TimeStarted: time.Now()}))

	require.NoError(t, store.Quiz().Delete(ctx, quiz.ID))

	_, err := store.Quiz().GetByID(ctx, quiz.ID)
	assert.True(t, repositories.IsNotFoundError(err))
	questions, _ := store.Question().ListByQuiz(ctx, quiz.ID)
	assert.Empty(t, questions)
	history, _ := store.Attempt().ListByUser(ctx, quiz.ID, "u1")
	assert.Empty(t, history)
}

func TestQuizRepo_UpdateKeepsSummary(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	quiz := newQuiz(t, store)

	saved, err := store.Quiz().SaveSummary(ctx, quiz.ID, []byte(`{"totalcount":1}`), 0)
	require.NoError(t, err)
	require.True(t, saved)

	quiz.Name = "Renamed"
	quiz.Summary = nil
	quiz.SummaryVersion = 7
	require.NoError(t, store.Quiz().Update(ctx, quiz))

	loaded, err := store.Quiz().GetByID(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Name)
	assert.True(t, loaded.HasSummary())
	assert.Zero(t, loaded.SummaryVersion)

	require.NoError(t, store.Quiz().ResetSummary(ctx, quiz.ID))
	loaded, _ = store.Quiz().GetByID(ctx, quiz.ID)
	assert.False(t, loaded.HasSummary())
	assert.Equal(t, int64(1), loaded.SummaryVersion)
}

func TestQuizRepo_SaveSummaryChecksVersion(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	quiz := newQuiz(t, store)

	require.NoError(t, store.Quiz().ResetSummary(ctx, quiz.ID))

	saved, err := store.Quiz().SaveSummary(ctx, quiz.ID, []byte(`{"totalcount":1}`), 0)
	require.NoError(t, err)
	assert.False(t, saved, "the version moved after the summary was computed")
	loaded, _ := store.Quiz().GetByID(ctx, quiz.ID)
	assert.False(t, loaded.HasSummary())

	saved, err = store.Quiz().SaveSummary(ctx, quiz.ID, []byte(`{"totalcount":1}`), 1)
	require.NoError(t, err)
	assert.True(t, saved)

	_, err = store.Quiz().SaveSummary(ctx, 999, []byte(`{}`), 0)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, store.Quiz().ResetSummary(ctx, 999), repositories.ErrNotFound)
}

func TestAttemptRepo_Queries(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	quiz := newQuiz(t, store)
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	at := func(minutes int) *time.Time {
		ts := base.Add(time.Duration(minutes) * time.Minute)
		return &ts
	}

	old := &models.Attempt{QuizID: quiz.ID, UserID: "u1", TimeStarted: *at(0), TimeFinished: at(5), Overridden: true}
	current := &models.Attempt{QuizID: quiz.ID, UserID: "u1", TimeStarted: *at(10), TimeFinished: at(15)}
	open := &models.Attempt{QuizID: quiz.ID, UserID: "u1", TimeStarted: *at(20)}
	other := &models.Attempt{QuizID: quiz.ID, UserID: "u2", TimeStarted: *at(1), TimeFinished: at(30)}
	for _, a := range []*models.Attempt{old, current, open, other} {
		require.NoError(t, store.Attempt().Create(ctx, a))
	}

	got, err := store.Attempt().GetCurrent(ctx, quiz.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, current.ID, got.ID)

	history, err := store.Attempt().ListByUser(ctx, quiz.ID, "u1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []uint{open.ID, current.ID, old.ID}, []uint{history[0].ID, history[1].ID, history[2].ID})

	finished, err := store.Attempt().CountFinished(ctx, quiz.ID, "u1", 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, finished)

	finished, err = store.Attempt().CountFinished(ctx, quiz.ID, "u1", current.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, finished)

	unfinished, err := store.Attempt().HasUnfinished(ctx, quiz.ID, "u1")
	require.NoError(t, err)
	assert.True(t, unfinished)

	all, err := store.Attempt().ListCurrent(ctx, quiz.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, other.ID, all[0].ID)
	assert.Equal(t, current.ID, all[1].ID)

	affected, err := store.Attempt().MarkOverridden(ctx, quiz.ID, "u1", 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	_, err = store.Attempt().GetCurrent(ctx, quiz.ID, "u1")
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestStore_WithTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	quiz := newQuiz(t, store)
	boom := errors.New("boom")

	err := store.WithTransaction(ctx, func(tx repositories.Repository) error {
		require.NoError(t, tx.Criterion().Create(ctx, &models.Criterion{QuizID: quiz.ID, Name: "A"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	count, err := store.Criterion().CountByQuiz(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	err = store.WithTransaction(ctx, func(tx repositories.Repository) error {
		return tx.Criterion().Create(ctx, &models.Criterion{QuizID: quiz.ID, Name: "B"})
	})
	require.NoError(t, err)

	count, _ = store.Criterion().CountByQuiz(ctx, quiz.ID)
	assert.EqualValues(t, 1, count)
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory(&models.User{ID: "t1", Role: models.RoleTeacher})

	ok, err := dir.HasRole(ctx, "t1", models.RoleTeacher)
	require.NoError(t, err)
	assert.True(t, ok)

	exists, _ := dir.ExistsByID(ctx, "nobody")
	assert.False(t, exists)

	_, err = dir.GetByID(ctx, "nobody")
	assert.True(t, repositories.IsNotFoundError(err))
}
