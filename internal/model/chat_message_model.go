package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage rows are written once and never updated or deleted; they go
// away only with their session.
type ChatMessage struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChatSessionId uuid.UUID `gorm:"type:uuid;not null;index:idx_chat_messages_session_created,priority:1"`
	Role          string    `gorm:"type:varchar(20);not null"`
	Content       string    `gorm:"type:text;not null;default:''"`
	CreatedAt     time.Time `gorm:"index:idx_chat_messages_session_created,priority:2"`
	UpdatedAt     time.Time

	ChatSession ChatSession `gorm:"foreignKey:ChatSessionId;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
