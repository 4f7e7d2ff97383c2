package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatermillEventPublisher_GoChannel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	publisher, pubSub := NewGoChannelEventPublisher(testLogger())
	defer publisher.Close()

	messages, err := pubSub.Subscribe(ctx, TopicAttemptFinished)
	require.NoError(t, err)

	event := NewEvent("attempt.finished", AttemptFinishedData{QuizID: 7, AttemptID: 3, UserID: "u1"})
	require.NoError(t, publisher.Publish(ctx, TopicAttemptFinished, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, "attempt.finished", msg.Metadata.Get("event_type"))

		var decoded struct {
			Type   string              `json:"type"`
			Source string              `json:"source"`
			Data   AttemptFinishedData `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, EventSource, decoded.Source)
		assert.Equal(t, uint(7), decoded.Data.QuizID)
		assert.Equal(t, "u1", decoded.Data.UserID)
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestNewEventPublisher(t *testing.T) {
	publisher, err := NewEventPublisher("none", nil, testLogger())
	require.NoError(t, err)
	assert.NoError(t, publisher.Publish(context.Background(), TopicSummaryInvalidated, NewEvent("summary.invalidated", nil)))

	_, err = NewEventPublisher("kafka", nil, testLogger())
	assert.Error(t, err)

	_, err = NewEventPublisher("carrier-pigeon", nil, testLogger())
	assert.Error(t, err)

	publisher, err = NewEventPublisher("gochannel", nil, testLogger())
	require.NoError(t, err)
	assert.NoError(t, publisher.Close())
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(testLogger())
	ctx := context.Background()

	require.NoError(t, mock.Publish(ctx, TopicAttemptStarted, NewEvent("attempt.started", nil)))
	require.NoError(t, mock.Publish(ctx, TopicAttemptFinished, NewEvent("attempt.finished", nil)))

	assert.Len(t, mock.GetPublishedEvents(), 2)
	assert.Len(t, mock.EventsOnTopic(TopicAttemptFinished), 1)

	mock.ClearEvents()
	assert.Empty(t, mock.GetPublishedEvents())
}
