package services

import (
	"context"
	"fmt"
	"sync"
)

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps Dependencies

	// Service instances
	quizService      QuizService
	questionService  QuestionService
	criterionService CriterionService
	feedbackService  FeedbackService
	attemptService   AttemptService
	summaryService   SummaryService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps Dependencies) ServiceManager {
	return &serviceManager{deps: deps.withDefaults()}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}
	if sm.deps.Repo == nil {
		return fmt.Errorf("failed to initialize services: repository is required")
	}

	sm.deps.Logger.Info("Initializing service manager")

	// The summary service is shared: every mutation reports to it
	sm.summaryService = NewSummaryService(sm.deps)
	sm.quizService = NewQuizService(sm.deps, sm.summaryService)
	sm.questionService = NewQuestionService(sm.deps, sm.summaryService)
	sm.criterionService = NewCriterionService(sm.deps, sm.summaryService)
	sm.feedbackService = NewFeedbackService(sm.deps, sm.summaryService)
	sm.attemptService = NewAttemptService(sm.deps, sm.summaryService)

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully",
		"templates", sm.deps.Templates.Names())

	return nil
}

func (sm *serviceManager) get(name string, service any) any {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	if service == nil {
		panic(name + " service not initialized")
	}
	return service
}

// Service getters
func (sm *serviceManager) Quiz() QuizService {
	return sm.get("quiz", sm.quizService).(QuizService)
}

func (sm *serviceManager) Question() QuestionService {
	return sm.get("question", sm.questionService).(QuestionService)
}

func (sm *serviceManager) Criterion() CriterionService {
	return sm.get("criterion", sm.criterionService).(CriterionService)
}

func (sm *serviceManager) Feedback() FeedbackService {
	return sm.get("feedback", sm.feedbackService).(FeedbackService)
}

func (sm *serviceManager) Attempt() AttemptService {
	return sm.get("attempt", sm.attemptService).(AttemptService)
}

func (sm *serviceManager) Summary() SummaryService {
	return sm.get("summary", sm.summaryService).(SummaryService)
}

func (sm *serviceManager) Templates() *TemplateRegistry {
	return sm.deps.Templates
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}
	sm.deps.Logger.Info("Shutting down service manager")

	if err := sm.deps.Events.Close(); err != nil {
		sm.deps.Logger.Error("Failed to close event publisher", "error", err)
	}

	sm.shutdown = true
	return nil
}
