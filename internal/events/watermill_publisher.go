package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	DriverKafka     = "kafka"
	DriverGoChannel = "gochannel"
	DriverNone      = "none"
)

// WatermillEventPublisher publishes events as JSON watermill messages
type WatermillEventPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewWatermillEventPublisher(publisher message.Publisher, logger *slog.Logger) *WatermillEventPublisher {
	return &WatermillEventPublisher{publisher: publisher, logger: logger}
}

// NewKafkaEventPublisher connects a kafka publisher to the given brokers
func NewKafkaEventPublisher(brokers []string, logger *slog.Logger) (*WatermillEventPublisher, error) {
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	return NewWatermillEventPublisher(publisher, logger), nil
}

// NewGoChannelEventPublisher publishes in process; the returned pub/sub can be
// used to subscribe to the same topics.
func NewGoChannelEventPublisher(logger *slog.Logger) (*WatermillEventPublisher, *gochannel.GoChannel) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NewSlogLogger(logger))
	return NewWatermillEventPublisher(pubSub, logger), pubSub
}

// NewEventPublisher selects the publisher for the configured driver
func NewEventPublisher(driver string, brokers []string, logger *slog.Logger) (EventPublisher, error) {
	switch strings.ToLower(driver) {
	case DriverKafka:
		if len(brokers) == 0 {
			return nil, fmt.Errorf("kafka event driver requires at least one broker")
		}
		return NewKafkaEventPublisher(brokers, logger)
	case DriverGoChannel:
		publisher, _ := NewGoChannelEventPublisher(logger)
		return publisher, nil
	case DriverNone, "":
		return NoopEventPublisher{}, nil
	default:
		return nil, fmt.Errorf("unknown event driver %q", driver)
	}
}

func (p *WatermillEventPublisher) Publish(ctx context.Context, topic string, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", event.Type)
	msg.Metadata.Set("source", event.Source)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.DebugContext(ctx, "Event published",
		"topic", topic,
		"event_id", event.ID,
		"event_type", event.Type)
	return nil
}

func (p *WatermillEventPublisher) Close() error {
	return p.publisher.Close()
}

// NoopEventPublisher drops every event
type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(context.Context, string, *Event) error { return nil }
func (NoopEventPublisher) Close() error                                  { return nil }
