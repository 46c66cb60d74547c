package service

import (
	"context"
	"errors"
	"log"
	"time"

	"chatsync/internal/chat/repository"
	"chatsync/internal/dbmongo"
	"chatsync/internal/dbmysql"
	"chatsync/internal/feed"
	"chatsync/internal/user"

	"github.com/google/uuid"
)

// Overview is the list-view fetch result: enriched conversations plus the
// most-recent-message and unread-count maps, produced together.
type Overview struct {
	Records        []*repository.ConversationRecord `json:"records"`
	LatestMessages map[string]*dbmysql.Message      `json:"latest_messages"`
	UnreadCounts   map[string]int64                 `json:"unread_counts"`
}

// ChatService defines the interface exposed to the handler and synchronizer
// layers
type ChatService interface {
	SendMessage(ctx context.Context, msg *dbmysql.Message) (*dbmysql.Message, error)
	GetMessageHistory(ctx context.Context, conversationID string) ([]*dbmysql.Message, error)
	MarkIncomingRead(ctx context.Context, conversationID, viewerID string) ([]string, error)
	GetConversation(ctx context.Context, conversationID string) (*repository.ConversationRecord, error)
	ListConversations(ctx context.Context, userID string) (*Overview, error)
	ListTags(ctx context.Context) ([]*dbmysql.Tag, error)
	CreateConversation(ctx context.Context, req *CreateConversationRequest) (*dbmysql.Conversation, error)
	CleanupStaleCreations(ctx context.Context, olderThan time.Duration) (int, error)
}

type chatService struct {
	repo      repository.ChatRepository
	users     user.UserService
	journal   dbmongo.JournalStore
	publisher feed.Publisher
}

// Constructor used in DI/wire
func NewChatService(r repository.ChatRepository, users user.UserService, journal dbmongo.JournalStore, publisher feed.Publisher) ChatService {
	return &chatService{repo: r, users: users, journal: journal, publisher: publisher}
}

// SendMessage handles message validation and saving
func (s *chatService) SendMessage(ctx context.Context, msg *dbmysql.Message) (*dbmysql.Message, error) {
	if msg.ConversationID == "" {
		return nil, errors.New("conversation ID cannot be empty")
	}
	if msg.SenderID == "" {
		return nil, errors.New("sender ID cannot be empty")
	}
	if msg.Content == "" {
		return nil, errors.New("message content cannot be empty")
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	// Set server-side timestamp
	now := time.Now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	msg.IsRead = false

	if err := s.repo.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}

	if err := s.repo.TouchConversation(ctx, msg.ConversationID, now); err != nil {
		// Non-fatal for message sending, but the list ordering will lag.
		log.Printf("touch conversation %s failed: %v", msg.ConversationID, err)
	}

	s.publish(ctx, feed.Event{
		Table:          feed.TableMessages,
		Op:             feed.OpInsert,
		ConversationID: msg.ConversationID,
		Payload:        feed.Marshal(msg),
	})
	s.publish(ctx, feed.Event{
		Table:          feed.TableConversations,
		Op:             feed.OpUpdate,
		ConversationID: msg.ConversationID,
	})

	return msg, nil
}

// GetMessageHistory returns full message history of a conversation, oldest
// first
func (s *chatService) GetMessageHistory(ctx context.Context, conversationID string) ([]*dbmysql.Message, error) {
	if conversationID == "" {
		return nil, errors.New("conversation ID is required")
	}

	return s.repo.FetchHistory(ctx, conversationID)
}

// MarkIncomingRead flips the read flag on every unread message in the
// conversation that the viewer did not send, in one batched update. Returns
// the affected message ids. Read flags only ever go false to true here.
func (s *chatService) MarkIncomingRead(ctx context.Context, conversationID, viewerID string) ([]string, error) {
	if conversationID == "" {
		return nil, errors.New("conversation ID is required")
	}
	if viewerID == "" {
		return nil, errors.New("viewer ID is required")
	}

	messages, err := s.repo.FetchHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, msg := range messages {
		if !msg.IsRead && msg.SenderID != viewerID {
			ids = append(ids, msg.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := s.repo.MarkRead(ctx, ids); err != nil {
		return nil, err
	}

	s.publish(ctx, feed.Event{
		Table:          feed.TableMessages,
		Op:             feed.OpUpdate,
		ConversationID: conversationID,
	})

	return ids, nil
}

func (s *chatService) GetConversation(ctx context.Context, conversationID string) (*repository.ConversationRecord, error) {
	if conversationID == "" {
		return nil, errors.New("conversation ID is required")
	}
	return s.repo.GetConversation(ctx, conversationID)
}

// ListConversations runs the full list-view fetch: membership ids, enriched
// conversations, then the per-conversation latest message and unread count.
// No incremental merging happens anywhere; callers re-run this on any change
// notification.
func (s *chatService) ListConversations(ctx context.Context, userID string) (*Overview, error) {
	if userID == "" {
		return nil, errors.New("user ID is required")
	}

	ids, err := s.repo.ConversationIDsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.ConversationsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	overview := &Overview{
		Records:        records,
		LatestMessages: make(map[string]*dbmysql.Message, len(records)),
		UnreadCounts:   make(map[string]int64, len(records)),
	}

	for _, record := range records {
		convID := record.Conversation.ID

		latest, err := s.repo.LatestMessage(ctx, convID)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			overview.LatestMessages[convID] = latest
		}

		unread, err := s.repo.CountUnread(ctx, convID, userID)
		if err != nil {
			return nil, err
		}
		overview.UnreadCounts[convID] = unread
	}

	return overview, nil
}

func (s *chatService) ListTags(ctx context.Context) ([]*dbmysql.Tag, error) {
	return s.repo.ListTags(ctx)
}

func (s *chatService) publish(ctx context.Context, event feed.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("publish %s/%s event failed: %v", event.Table, event.Op, err)
	}
}
