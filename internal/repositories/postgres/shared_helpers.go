package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/instantquiz-service/internal/cache"
	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories"
)

// SharedHelpers contains common database operations
type SharedHelpers struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager

	// pending collects quizzes touched inside a transaction; their caches are
	// dropped again once the transaction has committed.
	pending *pendingInvalidations
}

func NewSharedHelpers(db *gorm.DB, cacheManager *cache.CacheManager, pending *pendingInvalidations) *SharedHelpers {
	return &SharedHelpers{db: db, cacheManager: cacheManager, pending: pending}
}

// InTransaction reports whether cached reads must be bypassed.
func (h *SharedHelpers) InTransaction() bool {
	return h.pending != nil
}

// InvalidateQuiz drops the cached lists and summary of a quiz.
func (h *SharedHelpers) InvalidateQuiz(ctx context.Context, quizID uint) {
	cache.InvalidateQuizCache(ctx, h.cacheManager, quizID)
	if h.pending != nil {
		h.pending.add(quizID)
	}
}

// QuizExists checks that the parent quiz of an entity is present
func (h *SharedHelpers) QuizExists(ctx context.Context, quizID uint) error {
	var count int64
	if err := h.db.WithContext(ctx).Model(&models.Quiz{}).Where("id = ?", quizID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check quiz: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("quiz %d: %w", quizID, repositories.ErrNotFound)
	}
	return nil
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	allowedSortColumns := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"id":         true,
		"name":       true,
	}

	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "id"
	}

	if !strings.EqualFold(sortOrder, "asc") {
		sortOrder = "DESC"
	} else {
		sortOrder = "ASC"
	}

	query = query.Order(fmt.Sprintf("%s %s", sortBy, sortOrder))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

// notFound maps gorm's sentinel to the repository one
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.ErrNotFound
	}
	return err
}

type pendingInvalidations struct {
	mu      sync.Mutex
	quizIDs map[uint]struct{}
}

func newPendingInvalidations() *pendingInvalidations {
	return &pendingInvalidations{quizIDs: make(map[uint]struct{})}
}

func (p *pendingInvalidations) add(quizID uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quizIDs[quizID] = struct{}{}
}

func (p *pendingInvalidations) flush(ctx context.Context, cm *cache.CacheManager) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for quizID := range p.quizIDs {
		cache.InvalidateQuizCache(ctx, cm, quizID)
	}
	clear(p.quizIDs)
}
