package dbmysql

import (
	"time"
)

type Tag struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Color     string    `gorm:"size:20" json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationTag is a many-to-many link; the creation flow writes exactly one
// per new conversation.
type ConversationTag struct {
	ID             string `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string `gorm:"size:36;uniqueIndex:idx_conversation_tag" json:"conversation_id"`
	TagID          string `gorm:"size:36;uniqueIndex:idx_conversation_tag" json:"tag_id"`
}
