package dbmysql

import (
	"time"
)

// Conversation is a chat thread. Direct conversations carry no name and have
// exactly two participants; group conversations are named.
type Conversation struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	Name          *string   `gorm:"size:255" json:"name,omitempty"`
	IsGroup       bool      `gorm:"index" json:"is_group"`
	LastMessageAt time.Time `gorm:"index" json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ConversationParticipant links one user to one conversation. A user appears
// at most once per conversation.
type ConversationParticipant struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string    `gorm:"size:36;uniqueIndex:idx_conversation_user" json:"conversation_id"`
	UserID         string    `gorm:"size:36;uniqueIndex:idx_conversation_user" json:"user_id"`
	JoinedAt       time.Time `json:"joined_at"`
}
