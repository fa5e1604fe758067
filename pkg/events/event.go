package events

import (
	"context"
	"errors"
	"time"
)

const (
	TypeConversationTurnRecorded = "CONVERSATION_TURN_RECORDED"
	TypeConversationDeleted      = "CONVERSATION_DELETED"
	TypeSubscriptionUpdated      = "SUBSCRIPTION_UPDATED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SUBSCRIPTION_UPDATED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// UserId returns the "user_id" entry of the payload, or "".
func (e BaseEvent) UserId() string {
	id, _ := e.Data["user_id"].(string)
	return id
}

func NewConversationTurnRecorded(userId, sessionId, title string, newSession bool, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeConversationTurnRecorded,
		Data: map[string]interface{}{
			"user_id":     userId,
			"session_id":  sessionId,
			"title":       title,
			"new_session": newSession,
			"updated_at":  at.Format(time.RFC3339Nano),
		},
		OccurredAt: at,
	}
}

func NewConversationDeleted(userId, sessionId string, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeConversationDeleted,
		Data: map[string]interface{}{
			"user_id":    userId,
			"session_id": sessionId,
		},
		OccurredAt: at,
	}
}

func NewSubscriptionUpdated(userId, priceId string, periodEnd time.Time, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeSubscriptionUpdated,
		Data: map[string]interface{}{
			"user_id":            userId,
			"price_id":           priceId,
			"current_period_end": periodEnd.Format(time.RFC3339),
		},
		OccurredAt: at,
	}
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// MultiPublisher fans an event out to every publisher, attempting all of
// them and joining their errors.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
