package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories"
)

type entityPtr[T any] interface {
	*T
	models.Entity
}

type entityRepo[T any, P entityPtr[T]] struct {
	state *state
	kind  string
	rows  func(*state) map[uint]*T
}

// load returns a private copy with nested payloads decoded from the stored JSON.
func (r *entityRepo[T, P]) load(row *T) *T {
	cp := *row
	P(&cp).DecodePayload()
	return &cp
}

func (r *entityRepo[T, P]) store(entity *T) error {
	if err := P(entity).EncodePayload(); err != nil {
		return fmt.Errorf("failed to encode %s: %w", r.kind, err)
	}
	cp := *entity
	r.rows(r.state)[P(entity).GetID()] = &cp
	return nil
}

func (r *entityRepo[T, P]) countLocked(quizID uint) int {
	count := 0
	for _, row := range r.rows(r.state) {
		if P(row).GetQuizID() == quizID {
			count++
		}
	}
	return count
}

func (r *entityRepo[T, P]) Create(ctx context.Context, entity *T) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	p := P(entity)
	if _, ok := r.state.quizzes[p.GetQuizID()]; !ok {
		return fmt.Errorf("quiz %d: %w", p.GetQuizID(), repositories.ErrNotFound)
	}
	if p.GetSortOrder() == models.SortOrderAuto {
		p.SetSortOrder(r.countLocked(p.GetQuizID()))
	}
	p.SetID(r.state.nextID(r.kind))

	return r.store(entity)
}

func (r *entityRepo[T, P]) Update(ctx context.Context, entity *T) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	p := P(entity)
	existing, ok := r.rows(r.state)[p.GetID()]
	if !ok || P(existing).GetQuizID() != p.GetQuizID() {
		return repositories.ErrNotFound
	}

	return r.store(entity)
}

func (r *entityRepo[T, P]) Delete(ctx context.Context, quizID, id uint) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	rows := r.rows(r.state)
	existing, ok := rows[id]
	if !ok || P(existing).GetQuizID() != quizID {
		return repositories.ErrNotFound
	}
	delete(rows, id)
	return nil
}

func (r *entityRepo[T, P]) GetByID(ctx context.Context, quizID, id uint) (*T, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	row, ok := r.rows(r.state)[id]
	if !ok || P(row).GetQuizID() != quizID {
		return nil, repositories.ErrNotFound
	}
	return r.load(row), nil
}

func (r *entityRepo[T, P]) ListByQuiz(ctx context.Context, quizID uint) ([]*T, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	var out []*T
	for _, row := range r.rows(r.state) {
		if P(row).GetQuizID() == quizID {
			out = append(out, r.load(row))
		}
	}

	slices.SortFunc(out, func(a, b *T) int {
		return cmp.Or(
			cmp.Compare(P(a).GetSortOrder(), P(b).GetSortOrder()),
			cmp.Compare(P(a).GetID(), P(b).GetID()),
		)
	})
	return out, nil
}

func (r *entityRepo[T, P]) CountByQuiz(ctx context.Context, quizID uint) (int64, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	return int64(r.countLocked(quizID)), nil
}
