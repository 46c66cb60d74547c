// Package feed implements the row-level change feed: an in-process hub that
// fans events out to subscribers, and an optional redis bridge that shares
// the feed across processes.
package feed

import (
	"context"
	"encoding/json"
)

type Table string

const (
	TableConversations Table = "conversations"
	TableMessages      Table = "messages"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event is one row-level mutation notification. ConversationID scopes message
// events so per-conversation subscribers can be filtered server-side.
type Event struct {
	Table          Table           `json:"table"`
	Op             Op              `json:"op"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// Publisher is what services write events to. Both Hub and Bridge satisfy it.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Marshal encodes a row for use as an event payload.
func Marshal(row interface{}) json.RawMessage {
	data, err := json.Marshal(row)
	if err != nil {
		return nil
	}
	return data
}
