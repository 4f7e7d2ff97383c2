package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "instantquiz-service"
	EventVersion = "1.0"

	TopicAttemptStarted     = "instantquiz.attempt.started"
	TopicAttemptFinished    = "instantquiz.attempt.finished"
	TopicSummaryInvalidated = "instantquiz.summary.invalidated"
)

// Event is the envelope published for every domain event
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

func NewEvent(eventType string, data any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher delivers events to a topic. Publishing is best effort for callers:
// they log failures instead of failing the request.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *Event) error
	Close() error
}

type AttemptStartedData struct {
	QuizID    uint   `json:"quiz_id"`
	AttemptID uint   `json:"attempt_id"`
	UserID    string `json:"user_id"`
}

type AttemptFinishedData struct {
	QuizID     uint             `json:"quiz_id"`
	AttemptID  uint             `json:"attempt_id"`
	UserID     string           `json:"user_id"`
	Points     map[uint]float64 `json:"points"`
	Feedbacks  []uint           `json:"feedbacks"`
	Superseded int64            `json:"superseded"`
	Refinished bool             `json:"refinished"`
}

type SummaryInvalidatedData struct {
	QuizID   uint   `json:"quiz_id"`
	Entity   string `json:"entity"`
	EntityID uint   `json:"entity_id,omitempty"`
}
