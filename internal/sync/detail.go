package sync

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"chatsync/internal/chat/repository"
	"chatsync/internal/chat/service"
	"chatsync/internal/dbmysql"
	"chatsync/internal/feed"

	"github.com/google/uuid"
)

const provisionalPrefix = "pending-"

// DetailSynchronizer keeps one open conversation current: full history on
// selection, read-state flips, and live inserts reconciled against
// optimistic local sends.
type DetailSynchronizer struct {
	chats service.ChatService
	hub   *feed.Hub

	mu             sync.Mutex
	conversationID string
	viewerID       string
	record         *repository.ConversationRecord
	messages       []*dbmysql.Message
	sub            *feed.Subscription
	done           chan struct{}

	updates chan []*MessageGroup
}

func NewDetailSynchronizer(chats service.ChatService, hub *feed.Hub) *DetailSynchronizer {
	return &DetailSynchronizer{
		chats:   chats,
		hub:     hub,
		updates: make(chan []*MessageGroup, 8),
	}
}

// Select opens a conversation: tears down the previous selection, loads the
// full history, marks incoming messages read, and subscribes to the
// conversation's message events.
func (d *DetailSynchronizer) Select(ctx context.Context, conversationID, viewerID string) ([]*MessageGroup, error) {
	d.teardown()

	record, err := d.chats.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	messages, err := d.chats.GetMessageHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	readIDs, err := d.chats.MarkIncomingRead(ctx, conversationID, viewerID)
	if err != nil {
		// History still renders; the counters catch up on the next open.
		log.Printf("mark read for %s failed: %v", conversationID, err)
	}
	flipped := make(map[string]bool, len(readIDs))
	for _, id := range readIDs {
		flipped[id] = true
	}
	for _, msg := range messages {
		if flipped[msg.ID] {
			msg.IsRead = true
		}
	}

	sub := d.hub.Subscribe(feed.TableMessages, conversationID)
	done := make(chan struct{})

	d.mu.Lock()
	d.conversationID = conversationID
	d.viewerID = viewerID
	d.record = record
	d.messages = messages
	d.sub = sub
	d.done = done
	groups := GroupByDate(messages)
	d.mu.Unlock()

	go d.watch(sub, done)
	return groups, nil
}

// Send appends a provisional message immediately and persists it through the
// service. The provisional row carries a correlation id; the insert event
// that comes back replaces it with the stored row.
func (d *DetailSynchronizer) Send(ctx context.Context, content string) (*dbmysql.Message, error) {
	d.mu.Lock()
	conversationID := d.conversationID
	viewerID := d.viewerID
	d.mu.Unlock()

	clientID := uuid.NewString()
	now := time.Now().UTC()
	provisional := &dbmysql.Message{
		ID:             provisionalPrefix + clientID,
		ConversationID: conversationID,
		SenderID:       viewerID,
		ClientID:       clientID,
		Content:        content,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	d.mu.Lock()
	d.messages = append(d.messages, provisional)
	groups := GroupByDate(d.messages)
	d.mu.Unlock()
	d.notify(groups)

	stored, err := d.chats.SendMessage(ctx, &dbmysql.Message{
		ConversationID: conversationID,
		SenderID:       viewerID,
		ClientID:       clientID,
		Content:        content,
	})
	if err != nil {
		d.removeProvisional(clientID)
		return nil, err
	}
	return stored, nil
}

// Conversation returns the selected conversation with its roster and tags,
// nil when nothing is selected.
func (d *DetailSynchronizer) Conversation() *repository.ConversationRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record
}

// Groups returns the current per-day message groups.
func (d *DetailSynchronizer) Groups() []*MessageGroup {
	d.mu.Lock()
	defer d.mu.Unlock()
	return GroupByDate(d.messages)
}

func (d *DetailSynchronizer) Updates() <-chan []*MessageGroup {
	return d.updates
}

func (d *DetailSynchronizer) Close() {
	d.teardown()
}

func (d *DetailSynchronizer) watch(sub *feed.Subscription, done chan struct{}) {
	for {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return
			}
			d.apply(event)
		case <-done:
			return
		}
	}
}

func (d *DetailSynchronizer) apply(event feed.Event) {
	switch event.Op {
	case feed.OpInsert:
		var msg dbmysql.Message
		if err := json.Unmarshal(event.Payload, &msg); err != nil {
			log.Printf("decode message event failed: %v", err)
			return
		}
		d.merge(&msg)
	case feed.OpUpdate:
		// Read-state flips carry no payload; re-read the history.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		d.mu.Lock()
		conversationID := d.conversationID
		d.mu.Unlock()

		messages, err := d.chats.GetMessageHistory(ctx, conversationID)
		if err != nil {
			log.Printf("history refresh for %s failed: %v", conversationID, err)
			return
		}

		d.mu.Lock()
		d.messages = messages
		groups := GroupByDate(messages)
		d.mu.Unlock()
		d.notify(groups)
	}
}

// merge reconciles an inserted row against the local slice. A provisional
// send with the same correlation id is replaced in place, so the message
// never appears twice.
func (d *DetailSynchronizer) merge(incoming *dbmysql.Message) {
	d.mu.Lock()

	replaced := false
	for i, msg := range d.messages {
		if msg.ID == incoming.ID {
			d.messages[i] = incoming
			replaced = true
			break
		}
		if incoming.ClientID != "" && msg.ClientID == incoming.ClientID {
			d.messages[i] = incoming
			replaced = true
			break
		}
		// Older senders omit the correlation id; fall back to matching a
		// provisional row by sender and content.
		if incoming.ClientID == "" && strings.HasPrefix(msg.ID, provisionalPrefix) &&
			msg.SenderID == incoming.SenderID && msg.Content == incoming.Content {
			d.messages[i] = incoming
			replaced = true
			break
		}
	}
	if !replaced {
		d.messages = append(d.messages, incoming)
	}
	groups := GroupByDate(d.messages)
	d.mu.Unlock()

	d.notify(groups)
}

func (d *DetailSynchronizer) removeProvisional(clientID string) {
	d.mu.Lock()
	kept := d.messages[:0]
	for _, msg := range d.messages {
		if msg.ClientID == clientID && strings.HasPrefix(msg.ID, provisionalPrefix) {
			continue
		}
		kept = append(kept, msg)
	}
	d.messages = kept
	groups := GroupByDate(d.messages)
	d.mu.Unlock()

	d.notify(groups)
}

func (d *DetailSynchronizer) teardown() {
	d.mu.Lock()
	sub := d.sub
	done := d.done
	d.sub = nil
	d.done = nil
	d.record = nil
	d.messages = nil
	d.conversationID = ""
	d.mu.Unlock()

	if done != nil {
		close(done)
	}
	if sub != nil {
		sub.Cancel()
	}
}

func (d *DetailSynchronizer) notify(groups []*MessageGroup) {
	select {
	case d.updates <- groups:
	default:
	}
}
