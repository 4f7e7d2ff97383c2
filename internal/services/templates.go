package services

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
)

type Capability string

const (
	CapAttempt        Capability = "attempt"
	CapViewOwnAttempt Capability = "viewownattempt"
	CapViewAnyAttempt Capability = "viewanyattempt"
	CapViewSummary    Capability = "viewsummary"
	CapManage         Capability = "manage"
)

var allCapabilities = []Capability{CapAttempt, CapViewOwnAttempt, CapViewAnyAttempt, CapViewSummary, CapManage}

// QuestionDefaults is applied to questions created without explicit settings
type QuestionDefaults struct {
	MinOptions int
	MaxOptions int
	Comment    models.CommentMode
}

// Template bundles the behaviour that varies between quiz templates
type Template interface {
	Name() string
	Can(user *models.User, capability Capability) bool
	QuestionDefaults() QuestionDefaults
}

type basicTemplate struct{}

func (basicTemplate) Name() string { return models.TemplateBasic }

func (basicTemplate) Can(user *models.User, capability Capability) bool {
	if user == nil {
		return false
	}
	if user.IsManager() {
		return true
	}
	return capability == CapAttempt || capability == CapViewOwnAttempt
}

func (basicTemplate) QuestionDefaults() QuestionDefaults {
	return QuestionDefaults{Comment: models.CommentDisabled}
}

// openTemplate lets every authenticated user see results and other attempts
type openTemplate struct{}

func (openTemplate) Name() string { return models.TemplateOpen }

func (openTemplate) Can(user *models.User, capability Capability) bool {
	return user != nil && slices.Contains(allCapabilities, capability)
}

func (openTemplate) QuestionDefaults() QuestionDefaults {
	return QuestionDefaults{Comment: models.CommentOptional}
}

// TemplateRegistry resolves template ids; unknown ids fall back to the basic template
type TemplateRegistry struct {
	mu        sync.RWMutex
	templates map[string]Template
	fallback  Template
	logger    *slog.Logger
}

func NewTemplateRegistry(logger *slog.Logger) *TemplateRegistry {
	r := &TemplateRegistry{
		templates: make(map[string]Template),
		fallback:  basicTemplate{},
		logger:    logger,
	}
	r.Register(basicTemplate{})
	r.Register(openTemplate{})
	return r
}

func (r *TemplateRegistry) Register(t Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.Name()] = t
}

func (r *TemplateRegistry) Resolve(name string) Template {
	r.mu.RLock()
	t, ok := r.templates[name]
	r.mu.RUnlock()

	if !ok {
		r.logger.Warn("Unknown quiz template, using basic", "template", name)
		return r.fallback
	}
	return t
}

func (r *TemplateRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
