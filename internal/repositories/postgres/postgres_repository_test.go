package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/instantquiz-service/internal/cache"
	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories"
)

const quizID = 7

var criteriaKey = cache.EntityCacheConfig.Prefix + cache.EntityListKey("criterion", quizID)

type mockDB struct {
	repo repositories.Repository
	mock sqlmock.Sqlmock
	mr   *miniredis.Miniredis
}

func newMockDB(t *testing.T) *mockDB {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &mockDB{
		repo: NewPostgreSQLRepository(RepositoryConfig{DB: db, RedisClient: client}),
		mock: mock,
		mr:   mr,
	}
}

func (m *mockDB) expectCriteriaList() {
	m.mock.ExpectQuery(`SELECT (.+) FROM "instantquiz_criteria" WHERE quiz_id = (.+) ORDER BY sort_order ASC, id ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "quiz_id", "name", "sort_order"}).
			AddRow(1, quizID, "Intro", 0).
			AddRow(2, quizID, "Pragmatist", 1))
}

// cacheList fills the redis copy of the criteria list
func (m *mockDB) cacheList(t *testing.T) {
	t.Helper()

	m.expectCriteriaList()
	_, err := m.repo.Criterion().ListByQuiz(context.Background(), quizID)
	require.NoError(t, err)
	require.True(t, m.mr.Exists(criteriaKey))
}

func TestEntityPostgreSQL_ListByQuizIsCached(t *testing.T) {
	ctx := context.Background()
	m := newMockDB(t)

	m.expectCriteriaList()
	first, err := m.repo.Criterion().ListByQuiz(ctx, quizID)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.True(t, m.mr.Exists(criteriaKey))

	// no query is expected for the second read
	second, err := m.repo.Criterion().ListByQuiz(ctx, quizID)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, "Intro", second[0].Name)
	assert.Equal(t, "Pragmatist", second[1].Name)

	require.NoError(t, m.mock.ExpectationsWereMet())
}

func TestPostgreSQLRepository_InvalidatesAfterCommit(t *testing.T) {
	ctx := context.Background()
	m := newMockDB(t)
	m.cacheList(t)

	m.mock.ExpectBegin()
	m.mock.ExpectExec(`UPDATE "instantquiz_criteria" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	m.mock.ExpectCommit()

	err := m.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Criterion().Update(ctx, &models.Criterion{ID: 1, QuizID: quizID, Name: "Introvert"}); err != nil {
			return err
		}
		assert.False(t, m.mr.Exists(criteriaKey), "dropped right away")

		// a reader outside the transaction still sees the old rows and caches them again
		require.NoError(t, m.mr.Set(criteriaKey, `[{"id":1,"quiz_id":7,"name":"Intro"}]`))
		return nil
	})
	require.NoError(t, err)

	assert.False(t, m.mr.Exists(criteriaKey), "the list cached during the transaction is dropped after commit")
	require.NoError(t, m.mock.ExpectationsWereMet())
}

func TestPostgreSQLRepository_RollbackKeepsCache(t *testing.T) {
	ctx := context.Background()
	m := newMockDB(t)

	m.mock.ExpectBegin()
	m.mock.ExpectExec(`UPDATE "instantquiz_criteria" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	m.mock.ExpectRollback()

	errAborted := errors.New("aborted")
	err := m.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Criterion().Update(ctx, &models.Criterion{ID: 1, QuizID: quizID, Name: "Introvert"}); err != nil {
			return err
		}
		require.NoError(t, m.mr.Set(criteriaKey, `[{"id":1,"quiz_id":7,"name":"Intro"}]`))
		return errAborted
	})
	assert.ErrorIs(t, err, errAborted)

	assert.True(t, m.mr.Exists(criteriaKey), "the committed rows did not change")
	require.NoError(t, m.mock.ExpectationsWereMet())
}

func TestEntityPostgreSQL_UpdateMissingRow(t *testing.T) {
	ctx := context.Background()
	m := newMockDB(t)
	m.cacheList(t)

	m.mock.ExpectBegin()
	m.mock.ExpectExec(`UPDATE "instantquiz_criteria" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	m.mock.ExpectCommit()

	err := m.repo.Criterion().Update(ctx, &models.Criterion{ID: 9, QuizID: quizID, Name: "Other quiz"})
	assert.True(t, repositories.IsNotFoundError(err))
	assert.True(t, m.mr.Exists(criteriaKey), "nothing changed, nothing dropped")
	require.NoError(t, m.mock.ExpectationsWereMet())
}

func TestQuizPostgreSQL_SummaryVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("stored when the version matches", func(t *testing.T) {
		m := newMockDB(t)
		m.mock.ExpectBegin()
		m.mock.ExpectExec(`UPDATE "instantquiz" SET "summary"=(.+) WHERE id = (.+) AND summary_version = (.+)`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		m.mock.ExpectCommit()

		saved, err := m.repo.Quiz().SaveSummary(ctx, quizID, []byte(`{"totalcount":1}`), 3)
		require.NoError(t, err)
		assert.True(t, saved)
		require.NoError(t, m.mock.ExpectationsWereMet())
	})

	t.Run("skipped when the version moved", func(t *testing.T) {
		m := newMockDB(t)
		m.mock.ExpectBegin()
		m.mock.ExpectExec(`UPDATE "instantquiz" SET "summary"`).WillReturnResult(sqlmock.NewResult(0, 0))
		m.mock.ExpectCommit()
		m.mock.ExpectQuery(`SELECT count\(\*\) FROM "instantquiz"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		saved, err := m.repo.Quiz().SaveSummary(ctx, quizID, []byte(`{"totalcount":1}`), 3)
		require.NoError(t, err)
		assert.False(t, saved)
		require.NoError(t, m.mock.ExpectationsWereMet())
	})

	t.Run("missing quiz", func(t *testing.T) {
		m := newMockDB(t)
		m.mock.ExpectBegin()
		m.mock.ExpectExec(`UPDATE "instantquiz" SET "summary"`).WillReturnResult(sqlmock.NewResult(0, 0))
		m.mock.ExpectCommit()
		m.mock.ExpectQuery(`SELECT count\(\*\) FROM "instantquiz"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		_, err := m.repo.Quiz().SaveSummary(ctx, quizID, []byte(`{}`), 3)
		assert.True(t, repositories.IsNotFoundError(err))
		require.NoError(t, m.mock.ExpectationsWereMet())
	})

	t.Run("reset moves the version", func(t *testing.T) {
		m := newMockDB(t)
		m.mock.ExpectBegin()
		m.mock.ExpectExec(`UPDATE "instantquiz" SET "summary"=NULL,"summary_version"=summary_version \+ 1`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		m.mock.ExpectCommit()

		require.NoError(t, m.repo.Quiz().ResetSummary(ctx, quizID))
		require.NoError(t, m.mock.ExpectationsWereMet())
	})
}
