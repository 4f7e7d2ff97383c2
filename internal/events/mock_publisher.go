package events

import (
	"context"
	"log/slog"
	"sync"
)

// PublishedEvent is an event captured by MockEventPublisher
type PublishedEvent struct {
	Topic string
	*Event
}

// MockEventPublisher records published events for tests
type MockEventPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
	logger *slog.Logger
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

func (m *MockEventPublisher) Publish(ctx context.Context, topic string, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, PublishedEvent{Topic: topic, Event: event})
	m.logger.DebugContext(ctx, "Mock event published", "topic", topic, "event_type", event.Type)
	return nil
}

func (m *MockEventPublisher) Close() error {
	return nil
}

func (m *MockEventPublisher) GetPublishedEvents() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]PublishedEvent, len(m.events))
	copy(out, m.events)
	return out
}

// EventsOnTopic returns the captured events of one topic
func (m *MockEventPublisher) EventsOnTopic(topic string) []PublishedEvent {
	var out []PublishedEvent
	for _, event := range m.GetPublishedEvents() {
		if event.Topic == topic {
			out = append(out, event)
		}
	}
	return out
}

func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
