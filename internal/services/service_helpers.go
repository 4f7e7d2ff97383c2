package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/instantquiz-service/internal/cache"
	"github.com/SAP-F-2025/instantquiz-service/internal/events"
	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories"
	"github.com/SAP-F-2025/instantquiz-service/internal/validator"
)

// Dependencies are shared by every service
type Dependencies struct {
	Repo      repositories.Repository
	Cache     *cache.CacheManager
	Logger    *slog.Logger
	Validator *validator.Validator
	Events    events.EventPublisher
	Templates *TemplateRegistry

	// SummaryTTL is the lifetime of the redis copy of a summary
	SummaryTTL time.Duration
	Clock      func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Cache == nil {
		d.Cache = cache.NewCacheManager(nil)
	}
	if d.Validator == nil {
		d.Validator = validator.New()
	}
	if d.Events == nil {
		d.Events = events.NoopEventPublisher{}
	}
	if d.Templates == nil {
		d.Templates = NewTemplateRegistry(d.Logger)
	}
	if d.SummaryTTL <= 0 {
		d.SummaryTTL = cache.SummaryCacheConfig.TTL
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return d
}

// quizContext is a quiz together with its resolved template
type quizContext struct {
	Quiz     *models.Quiz
	Template Template
}

type serviceBase struct {
	Dependencies
}

func newServiceBase(deps Dependencies) serviceBase {
	return serviceBase{Dependencies: deps.withDefaults()}
}

func (s *serviceBase) now() time.Time {
	return s.Clock()
}

func (s *serviceBase) loadQuiz(ctx context.Context, repo repositories.Repository, quizID uint) (*quizContext, error) {
	quiz, err := repo.Quiz().GetByID(ctx, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return &quizContext{Quiz: quiz, Template: s.Templates.Resolve(quiz.Template)}, nil
}

func (s *serviceBase) loadUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.Repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// can applies the template policy; manage additionally requires ownership unless admin
func (qc *quizContext) can(user *models.User, capability Capability) bool {
	if !qc.Template.Can(user, capability) {
		return false
	}
	if capability == CapManage {
		return user.Role == models.RoleAdmin || qc.Quiz.CreatedBy == user.ID
	}
	return true
}

func (qc *quizContext) require(user *models.User, capability Capability, action string) error {
	if qc.can(user, capability) {
		return nil
	}
	return NewPermissionError(user.ID, qc.Quiz.ID, "quiz", action, fmt.Sprintf("missing capability %s", capability))
}

// loadForUser loads the quiz and the user and checks the capability in one go
func (s *serviceBase) loadForUser(ctx context.Context, quizID uint, userID string, capability Capability, action string) (*quizContext, *models.User, error) {
	qc, err := s.loadQuiz(ctx, s.Repo, quizID)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if err := qc.require(user, capability, action); err != nil {
		return nil, nil, err
	}
	return qc, user, nil
}

func (s *serviceBase) publish(ctx context.Context, topic string, data any) {
	event := events.NewEvent(topic, data)
	if err := s.Events.Publish(ctx, topic, event); err != nil {
		s.Logger.Error("Failed to publish event",
			"topic", topic,
			"event_id", event.ID,
			"error", err)
	}
}

func (s *serviceBase) validate(req interface{}) error {
	if err := s.Validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func notFoundAs(err error, target error, action string) error {
	if repositories.IsNotFoundError(err) {
		return target
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func (s *serviceBase) manage(ctx context.Context, quizID uint, userID, action string) (*quizContext, error) {
	qc, _, err := s.loadForUser(ctx, quizID, userID, CapManage, action)
	return qc, err
}
