package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories"
)

type attemptRepo struct {
	state *state
}

func (r *attemptRepo) load(row *models.Attempt) *models.Attempt {
	cp := *row
	cp.DecodePayload()
	return &cp
}

func (r *attemptRepo) store(attempt *models.Attempt) error {
	if err := attempt.EncodePayload(); err != nil {
		return fmt.Errorf("failed to encode attempt: %w", err)
	}
	cp := *attempt
	r.state.attempts[attempt.ID] = &cp
	return nil
}

func (r *attemptRepo) Create(ctx context.Context, attempt *models.Attempt) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if _, ok := r.state.quizzes[attempt.QuizID]; !ok {
		return fmt.Errorf("quiz %d: %w", attempt.QuizID, repositories.ErrNotFound)
	}

	now := time.Now()
	attempt.ID = r.state.nextID("attempt")
	attempt.CreatedAt = now
	attempt.UpdatedAt = now
	return r.store(attempt)
}

func (r *attemptRepo) Update(ctx context.Context, attempt *models.Attempt) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if _, ok := r.state.attempts[attempt.ID]; !ok {
		return repositories.ErrNotFound
	}
	attempt.UpdatedAt = time.Now()
	return r.store(attempt)
}

func (r *attemptRepo) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	row, ok := r.state.attempts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r.load(row), nil
}

func (r *attemptRepo) filter(keep func(*models.Attempt) bool) []*models.Attempt {
	var out []*models.Attempt
	for _, row := range r.state.attempts {
		if keep(row) {
			out = append(out, row)
		}
	}
	return out
}

func (r *attemptRepo) GetCurrent(ctx context.Context, quizID uint, userID string) (*models.Attempt, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	current := r.filter(func(a *models.Attempt) bool {
		return a.QuizID == quizID && a.UserID == userID && a.IsFinished() && !a.Overridden
	})
	if len(current) == 0 {
		return nil, repositories.ErrNotFound
	}
	sortByFinishedDesc(current)
	return r.load(current[0]), nil
}

func (r *attemptRepo) ListByUser(ctx context.Context, quizID uint, userID string) ([]*models.Attempt, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	rows := r.filter(func(a *models.Attempt) bool {
		return a.QuizID == quizID && a.UserID == userID
	})
	slices.SortFunc(rows, func(a, b *models.Attempt) int {
		return cmp.Or(
			compareBool(a.Overridden, b.Overridden),
			b.TimeStarted.Compare(a.TimeStarted),
			cmp.Compare(b.ID, a.ID),
		)
	})

	out := make([]*models.Attempt, 0, len(rows))
	for _, row := range rows {
		out = append(out, r.load(row))
	}
	return out, nil
}

func (r *attemptRepo) CountFinished(ctx context.Context, quizID uint, userID string, excludeID uint) (int64, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	rows := r.filter(func(a *models.Attempt) bool {
		return a.QuizID == quizID && a.UserID == userID && a.IsFinished() && a.ID != excludeID
	})
	return int64(len(rows)), nil
}

func (r *attemptRepo) HasUnfinished(ctx context.Context, quizID uint, userID string) (bool, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	rows := r.filter(func(a *models.Attempt) bool {
		return a.QuizID == quizID && a.UserID == userID && !a.IsFinished()
	})
	return len(rows) > 0, nil
}

func (r *attemptRepo) ListCurrent(ctx context.Context, quizID uint) ([]*models.Attempt, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	rows := r.filter(func(a *models.Attempt) bool {
		return a.QuizID == quizID && a.IsFinished() && !a.Overridden
	})
	sortByFinishedDesc(rows)

	out := make([]*models.Attempt, 0, len(rows))
	for _, row := range rows {
		out = append(out, r.load(row))
	}
	return out, nil
}

func (r *attemptRepo) MarkOverridden(ctx context.Context, quizID uint, userID string, exceptID uint) (int64, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	var affected int64
	for id, row := range r.state.attempts {
		if row.QuizID != quizID || row.UserID != userID || id == exceptID || !row.IsFinished() || row.Overridden {
			continue
		}
		cp := *row
		cp.Overridden = true
		cp.UpdatedAt = time.Now()
		r.state.attempts[id] = &cp
		affected++
	}
	return affected, nil
}

// LockUser is a no-op: transactions on the memory store are already serialized.
func (r *attemptRepo) LockUser(ctx context.Context, quizID uint, userID string) error {
	return nil
}

func sortByFinishedDesc(rows []*models.Attempt) {
	slices.SortFunc(rows, func(a, b *models.Attempt) int {
		return cmp.Or(
			b.TimeFinished.Compare(*a.TimeFinished),
			cmp.Compare(b.ID, a.ID),
		)
	})
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
