package dbmysql

import (
	"time"
)

// Message rows are append-only: no edits or deletes, ordering by created_at
// ascending. ClientID is the sender-assigned correlation id used to reconcile
// optimistic inserts with the authoritative row from the change feed.
type Message struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string    `gorm:"index;size:36" json:"conversation_id"`
	SenderID       string    `gorm:"index;size:36" json:"sender_id"`
	ClientID       string    `gorm:"index;size:64" json:"client_id,omitempty"`
	Content        string    `gorm:"type:text" json:"content"`
	IsRead         bool      `gorm:"index" json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}
