package dto

import (
	"time"

	"github.com/google/uuid"
)

type ConversationMessageRequest struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content"`
}

type SendConversationRequest struct {
	SessionId *string                      `json:"sessionId,omitempty"`
	Messages  []ConversationMessageRequest `json:"messages" validate:"required,min=1,dive"`
	Title     string                       `json:"title,omitempty"`
}

type MessageCountResponse struct {
	Messages int64 `json:"messages"`
}

type ConversationSessionResponse struct {
	Id        uuid.UUID            `json:"id"`
	Title     string               `json:"title"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
	Count     MessageCountResponse `json:"_count"`
}

type ListConversationsResponse struct {
	Sessions []ConversationSessionResponse `json:"sessions"`
}

type ConversationMessageResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ConversationHistoryResponse struct {
	SessionId uuid.UUID                     `json:"sessionId"`
	Messages  []ConversationMessageResponse `json:"messages"`
}

type AssistantMessageResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SendConversationResponse struct {
	SessionId uuid.UUID                `json:"sessionId"`
	Message   AssistantMessageResponse `json:"message"`
}

// UsageResponse feeds the free-tier counter.
type UsageResponse struct {
	Used       int  `json:"used"`
	Limit      int  `json:"limit"`
	Subscribed bool `json:"subscribed"`
}
