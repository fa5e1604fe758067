// Package eventbus carries domain events between components of one process.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"genius-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const TopicDomainEvents = "domain_events"

type Bus struct {
	pubSub *gochannel.GoChannel
}

func New(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Bus{
		pubSub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger),
	}
}

// Publish implements events.Publisher.
func (b *Bus) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(events.BaseEvent{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_type", event.EventType())
	msg.SetContext(ctx)

	return b.pubSub.Publish(TopicDomainEvents, msg)
}

func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubSub.Subscribe(ctx, TopicDomainEvents)
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}

// Decode turns a bus message back into an event.
func Decode(msg *message.Message) (events.BaseEvent, error) {
	var event events.BaseEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return events.BaseEvent{}, fmt.Errorf("decode event %s: %w", msg.UUID, err)
	}
	return event, nil
}
