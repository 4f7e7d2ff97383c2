package repositories

import "context"

// Repository aggregates the stores used by the quiz services.
type Repository interface {
	Quiz() QuizRepository
	Question() QuestionRepository
	Criterion() CriterionRepository
	Feedback() FeedbackRepository
	Attempt() AttemptRepository

	// User directory (read-only, owned by the identity provider)
	User() UserRepository

	// WithTransaction runs fn against a repository bound to a single transaction.
	// Returning an error from fn rolls everything back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
