package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories"
)

type quizRepo struct {
	state *state
}

func (r *quizRepo) load(row *models.Quiz) *models.Quiz {
	cp := *row
	cp.Summary = slices.Clone(row.Summary)
	cp.DecodePayload()
	return &cp
}

func (r *quizRepo) store(quiz *models.Quiz) error {
	if err := quiz.EncodePayload(); err != nil {
		return fmt.Errorf("failed to encode quiz: %w", err)
	}
	cp := *quiz
	cp.Summary = slices.Clone(quiz.Summary)
	r.state.quizzes[quiz.ID] = &cp
	return nil
}

func (r *quizRepo) Create(ctx context.Context, quiz *models.Quiz) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	now := time.Now()
	quiz.ID = r.state.nextID("quiz")
	quiz.CreatedAt = now
	quiz.UpdatedAt = now
	return r.store(quiz)
}

func (r *quizRepo) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	row, ok := r.state.quizzes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r.load(row), nil
}

func (r *quizRepo) Update(ctx context.Context, quiz *models.Quiz) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	existing, ok := r.state.quizzes[quiz.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	// The summary columns are only written through SaveSummary and ResetSummary.
	quiz.Summary = slices.Clone(existing.Summary)
	quiz.SummaryVersion = existing.SummaryVersion
	quiz.UpdatedAt = time.Now()
	return r.store(quiz)
}

func (r *quizRepo) Delete(ctx context.Context, id uint) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if _, ok := r.state.quizzes[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.state.quizzes, id)

	for key, row := range r.state.questions {
		if row.QuizID == id {
			delete(r.state.questions, key)
		}
	}
	for key, row := range r.state.criteria {
		if row.QuizID == id {
			delete(r.state.criteria, key)
		}
	}
	for key, row := range r.state.feedbacks {
		if row.QuizID == id {
			delete(r.state.feedbacks, key)
		}
	}
	for key, row := range r.state.attempts {
		if row.QuizID == id {
			delete(r.state.attempts, key)
		}
	}
	return nil
}

func (r *quizRepo) List(ctx context.Context, filters models.QuizFilters) ([]*models.Quiz, int64, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filters.Search))
	var matched []*models.Quiz
	for _, row := range r.state.quizzes {
		if filters.CreatedBy != "" && row.CreatedBy != filters.CreatedBy {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(row.Name), search) {
			continue
		}
		matched = append(matched, row)
	}
	slices.SortFunc(matched, func(a, b *models.Quiz) int {
		return cmp.Compare(b.ID, a.ID)
	})

	total := int64(len(matched))
	start := min(max(filters.Offset, 0), len(matched))
	end := len(matched)
	if filters.Limit > 0 {
		end = min(start+filters.Limit, len(matched))
	}

	out := make([]*models.Quiz, 0, end-start)
	for _, row := range matched[start:end] {
		out = append(out, r.load(row))
	}
	return out, total, nil
}

func (r *quizRepo) SaveSummary(ctx context.Context, id uint, summary []byte, version int64) (bool, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	row, ok := r.state.quizzes[id]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if row.SummaryVersion != version {
		return false, nil
	}
	cp := *row
	cp.Summary = slices.Clone(summary)
	r.state.quizzes[id] = &cp
	return true, nil
}

func (r *quizRepo) ResetSummary(ctx context.Context, id uint) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	row, ok := r.state.quizzes[id]
	if !ok {
		return repositories.ErrNotFound
	}
	cp := *row
	cp.Summary = nil
	cp.SummaryVersion++
	r.state.quizzes[id] = &cp
	return nil
}
