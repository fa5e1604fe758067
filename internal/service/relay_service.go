package service

import (
	"context"

	"genius-be/internal/pkg/logger"
	"genius-be/pkg/eventbus"
	"genius-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Pusher delivers a realtime frame to every connection of a user.
type Pusher interface {
	SendToUser(ctx context.Context, userID, msgType string, data interface{}) error
}

type IRelayService interface {
	Consume(ctx context.Context) error
}

type relayService struct {
	bus    *eventbus.Bus
	pusher Pusher
	logger logger.ILogger
}

// NewRelayService forwards domain events from the in-process bus to the
// websocket clients of the user each event belongs to.
func NewRelayService(bus *eventbus.Bus, pusher Pusher, log logger.ILogger) IRelayService {
	return &relayService{bus: bus, pusher: pusher, logger: log}
}

var realtimeTypes = map[string]string{
	events.TypeConversationTurnRecorded: "session.updated",
	events.TypeConversationDeleted:      "session.deleted",
	events.TypeSubscriptionUpdated:      "subscription.updated",
}

func (rs *relayService) Consume(ctx context.Context) error {
	messages, err := rs.bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			rs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks: a push that cannot be delivered now is not
// worth redelivering, the client refetches on reconnect.
func (rs *relayService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	event, err := eventbus.Decode(msg)
	if err != nil {
		rs.logger.Warn("RELAY", "Dropping undecodable event", map[string]interface{}{"error": err.Error()})
		return
	}

	msgType, ok := realtimeTypes[event.Type]
	if !ok {
		return
	}
	userID := event.UserId()
	if userID == "" {
		return
	}

	data := make(map[string]interface{}, len(event.Data))
	for k, v := range event.Data {
		if k != "user_id" {
			data[k] = v
		}
	}

	if err := rs.pusher.SendToUser(ctx, userID, msgType, data); err != nil {
		rs.logger.Warn("RELAY", "Failed to push event", map[string]interface{}{
			"type":    event.Type,
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}
