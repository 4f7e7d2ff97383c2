package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// EntityListKey is the key of the cached, ordered entity list of a quiz.
func EntityListKey(kind string, quizID uint) string {
	return fmt.Sprintf("quiz:%d:%s", quizID, kind)
}

// SummaryKey is the key of the cached summary blob of a quiz.
func SummaryKey(quizID uint) string {
	return fmt.Sprintf("quiz:%d", quizID)
}

// InvalidateQuizCache drops every cached list of the quiz.
func InvalidateQuizCache(ctx context.Context, cm *CacheManager, quizID uint) {
	SafeInvalidatePattern(ctx, cm.Entity, fmt.Sprintf("quiz:%d:*", quizID))
	SafeDelete(ctx, cm.Summary, SummaryKey(quizID))
}
