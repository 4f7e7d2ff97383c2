// Package memory is an in-process implementation of the quiz store. It backs the
// "memory" store driver and the service tests.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories"
)

type state struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	lastID map[string]uint

	quizzes   map[uint]*models.Quiz
	questions map[uint]*models.Question
	criteria  map[uint]*models.Criterion
	feedbacks map[uint]*models.Feedback
	attempts  map[uint]*models.Attempt
}

func (s *state) nextID(kind string) uint {
	s.lastID[kind]++
	return s.lastID[kind]
}

type snapshot struct {
	lastID    map[string]uint
	quizzes   map[uint]*models.Quiz
	questions map[uint]*models.Question
	criteria  map[uint]*models.Criterion
	feedbacks map[uint]*models.Feedback
	attempts  map[uint]*models.Attempt
}

// Stored rows are never mutated in place, so copying the maps is enough to roll back.
func (s *state) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return snapshot{
		lastID:    maps.Clone(s.lastID),
		quizzes:   maps.Clone(s.quizzes),
		questions: maps.Clone(s.questions),
		criteria:  maps.Clone(s.criteria),
		feedbacks: maps.Clone(s.feedbacks),
		attempts:  maps.Clone(s.attempts),
	}
}

func (s *state) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID = snap.lastID
	s.quizzes = snap.quizzes
	s.questions = snap.questions
	s.criteria = snap.criteria
	s.feedbacks = snap.feedbacks
	s.attempts = snap.attempts
}

// Store implements repositories.Repository on top of maps guarded by a mutex.
// Transactions are serialized and rolled back from a snapshot on error.
type Store struct {
	state *state
	inTx  bool

	quiz      *quizRepo
	question  *entityRepo[models.Question, *models.Question]
	criterion *entityRepo[models.Criterion, *models.Criterion]
	feedback  *entityRepo[models.Feedback, *models.Feedback]
	attempt   *attemptRepo
	users     repositories.UserRepository
}

// NewStore creates an empty store. When users is nil an in-memory Directory is used.
func NewStore(users repositories.UserRepository) *Store {
	st := &state{
		lastID:    make(map[string]uint),
		quizzes:   make(map[uint]*models.Quiz),
		questions: make(map[uint]*models.Question),
		criteria:  make(map[uint]*models.Criterion),
		feedbacks: make(map[uint]*models.Feedback),
		attempts:  make(map[uint]*models.Attempt),
	}
	if users == nil {
		users = NewDirectory()
	}
	return newStore(st, users, false)
}

func newStore(st *state, users repositories.UserRepository, inTx bool) *Store {
	return &Store{
		state: st,
		inTx:  inTx,
		quiz:  &quizRepo{state: st},
		question: &entityRepo[models.Question, *models.Question]{
			state: st, kind: "question", rows: func(s *state) map[uint]*models.Question { return s.questions },
		},
		criterion: &entityRepo[models.Criterion, *models.Criterion]{
			state: st, kind: "criterion", rows: func(s *state) map[uint]*models.Criterion { return s.criteria },
		},
		feedback: &entityRepo[models.Feedback, *models.Feedback]{
			state: st, kind: "feedback", rows: func(s *state) map[uint]*models.Feedback { return s.feedbacks },
		},
		attempt: &attemptRepo{state: st},
		users:   users,
	}
}

func (s *Store) Quiz() repositories.QuizRepository           { return s.quiz }
func (s *Store) Question() repositories.QuestionRepository   { return s.question }
func (s *Store) Criterion() repositories.CriterionRepository { return s.criterion }
func (s *Store) Feedback() repositories.FeedbackRepository   { return s.feedback }
func (s *Store) Attempt() repositories.AttemptRepository     { return s.attempt }
func (s *Store) User() repositories.UserRepository           { return s.users }

func (s *Store) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	if s.inTx {
		return fn(s)
	}

	s.state.txMu.Lock()
	defer s.state.txMu.Unlock()

	snap := s.state.snapshot()
	if err := fn(newStore(s.state, s.users, true)); err != nil {
		s.state.restore(snap)
		return err
	}
	if err := ctx.Err(); err != nil {
		s.state.restore(snap)
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

// Manager adapts Store to repositories.RepositoryManager.
type Manager struct {
	users repositories.UserRepository
	store *Store
}

func NewRepositoryManager(users repositories.UserRepository) repositories.RepositoryManager {
	return &Manager{users: users}
}

func (m *Manager) Initialize() error {
	m.store = NewStore(m.users)
	return nil
}

func (m *Manager) GetRepository() repositories.Repository {
	return m.store
}

func (m *Manager) HealthCheck(ctx context.Context) error {
	return m.store.Ping(ctx)
}

func (m *Manager) Shutdown(ctx context.Context) error {
	return m.store.Close()
}
