package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatSessionID struct {
	ChatSessionID uuid.UUID
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

// ChronologicalMessages orders a transcript oldest first. Id breaks ties so
// repeated reads return the same order.
type ChronologicalMessages struct{}

func (s ChronologicalMessages) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

// RecentlyUpdatedSessions orders the sidebar newest activity first.
type RecentlyUpdatedSessions struct{}

func (s RecentlyUpdatedSessions) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("updated_at DESC").Order("created_at DESC").Order("id ASC")
}
