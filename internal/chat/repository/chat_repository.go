package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"chatsync/internal/dbmysql"
)

// ConversationRecord is one conversation with its participant roster and tags
// resolved, the shape the synchronizers consume.
type ConversationRecord struct {
	Conversation *dbmysql.Conversation `json:"conversation"`
	Participants []*dbmysql.User       `json:"participants"`
	Tags         []*dbmysql.Tag        `json:"tags"`
}

type ChatRepository interface {
	ConversationIDsFor(ctx context.Context, userID string) ([]string, error)
	ConversationsByIDs(ctx context.Context, ids []string) ([]*ConversationRecord, error)
	GetConversation(ctx context.Context, conversationID string) (*ConversationRecord, error)
	LatestMessage(ctx context.Context, conversationID string) (*dbmysql.Message, error)
	CountUnread(ctx context.Context, conversationID, viewerID string) (int64, error)
	FetchHistory(ctx context.Context, conversationID string) ([]*dbmysql.Message, error)
	SaveMessage(ctx context.Context, msg *dbmysql.Message) error
	MarkRead(ctx context.Context, messageIDs []string) error
	TouchConversation(ctx context.Context, conversationID string, at time.Time) error
	CreateConversation(ctx context.Context, conversation *dbmysql.Conversation) error
	AddParticipant(ctx context.Context, participant *dbmysql.ConversationParticipant) error
	TagConversation(ctx context.Context, link *dbmysql.ConversationTag) error
	RemoveConversation(ctx context.Context, conversationID string) error
	ListTags(ctx context.Context) ([]*dbmysql.Tag, error)
}

type chatRepo struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepo{db: db}
}

func (r *chatRepo) ConversationIDsFor(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&dbmysql.ConversationParticipant{}).
		Where("user_id = ?", userID).
		Pluck("conversation_id", &ids).Error
	return ids, err
}

func (r *chatRepo) ConversationsByIDs(ctx context.Context, ids []string) ([]*ConversationRecord, error) {
	if len(ids) == 0 {
		return []*ConversationRecord{}, nil
	}

	var conversations []*dbmysql.Conversation
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("last_message_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}

	participants, err := r.participantsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	tags, err := r.tagsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	records := make([]*ConversationRecord, 0, len(conversations))
	for _, conv := range conversations {
		records = append(records, &ConversationRecord{
			Conversation: conv,
			Participants: participants[conv.ID],
			Tags:         tags[conv.ID],
		})
	}
	return records, nil
}

func (r *chatRepo) GetConversation(ctx context.Context, conversationID string) (*ConversationRecord, error) {
	records, err := r.ConversationsByIDs(ctx, []string{conversationID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return records[0], nil
}

// participantsFor resolves the membership rows for a set of conversations into
// user rows, keyed by conversation id.
func (r *chatRepo) participantsFor(ctx context.Context, conversationIDs []string) (map[string][]*dbmysql.User, error) {
	var links []*dbmysql.ConversationParticipant
	err := r.db.WithContext(ctx).
		Where("conversation_id IN ?", conversationIDs).
		Order("joined_at ASC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}

	userIDs := make([]string, 0, len(links))
	for _, link := range links {
		userIDs = append(userIDs, link.UserID)
	}

	users := make(map[string]*dbmysql.User, len(userIDs))
	if len(userIDs) > 0 {
		var rows []*dbmysql.User
		if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, u := range rows {
			users[u.ID] = u
		}
	}

	result := make(map[string][]*dbmysql.User, len(conversationIDs))
	for _, link := range links {
		if u, ok := users[link.UserID]; ok {
			result[link.ConversationID] = append(result[link.ConversationID], u)
		}
	}
	return result, nil
}

func (r *chatRepo) tagsFor(ctx context.Context, conversationIDs []string) (map[string][]*dbmysql.Tag, error) {
	var links []*dbmysql.ConversationTag
	err := r.db.WithContext(ctx).
		Where("conversation_id IN ?", conversationIDs).
		Find(&links).Error
	if err != nil {
		return nil, err
	}

	tagIDs := make([]string, 0, len(links))
	for _, link := range links {
		tagIDs = append(tagIDs, link.TagID)
	}

	tags := make(map[string]*dbmysql.Tag, len(tagIDs))
	if len(tagIDs) > 0 {
		var rows []*dbmysql.Tag
		if err := r.db.WithContext(ctx).Where("id IN ?", tagIDs).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, tag := range rows {
			tags[tag.ID] = tag
		}
	}

	result := make(map[string][]*dbmysql.Tag, len(conversationIDs))
	for _, link := range links {
		if tag, ok := tags[link.TagID]; ok {
			result[link.ConversationID] = append(result[link.ConversationID], tag)
		}
	}
	return result, nil
}

func (r *chatRepo) LatestMessage(ctx context.Context, conversationID string) (*dbmysql.Message, error) {
	var msg dbmysql.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *chatRepo) CountUnread(ctx context.Context, conversationID, viewerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&dbmysql.Message{}).
		Where("conversation_id = ? AND is_read = ? AND sender_id <> ?", conversationID, false, viewerID).
		Count(&count).Error
	return count, err
}

func (r *chatRepo) FetchHistory(ctx context.Context, conversationID string) ([]*dbmysql.Message, error) {
	var messages []*dbmysql.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

func (r *chatRepo) SaveMessage(ctx context.Context, msg *dbmysql.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *chatRepo) MarkRead(ctx context.Context, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	// Only flips false to true, never back.
	return r.db.WithContext(ctx).
		Model(&dbmysql.Message{}).
		Where("id IN ? AND is_read = ?", messageIDs, false).
		Update("is_read", true).Error
}

func (r *chatRepo) TouchConversation(ctx context.Context, conversationID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&dbmysql.Conversation{}).
		Where("id = ?", conversationID).
		Update("last_message_at", at).Error
}

func (r *chatRepo) CreateConversation(ctx context.Context, conversation *dbmysql.Conversation) error {
	return r.db.WithContext(ctx).Create(conversation).Error
}

func (r *chatRepo) AddParticipant(ctx context.Context, participant *dbmysql.ConversationParticipant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}

func (r *chatRepo) TagConversation(ctx context.Context, link *dbmysql.ConversationTag) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// RemoveConversation deletes a conversation and its dependent rows. Used only
// by the creation cleanup pass on orphaned partial creations.
func (r *chatRepo) RemoveConversation(ctx context.Context, conversationID string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("conversation_id = ?", conversationID).Delete(&dbmysql.Message{}).Error; err != nil {
		return err
	}
	if err := db.Where("conversation_id = ?", conversationID).Delete(&dbmysql.ConversationParticipant{}).Error; err != nil {
		return err
	}
	if err := db.Where("conversation_id = ?", conversationID).Delete(&dbmysql.ConversationTag{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", conversationID).Delete(&dbmysql.Conversation{}).Error
}

func (r *chatRepo) ListTags(ctx context.Context) ([]*dbmysql.Tag, error) {
	var tags []*dbmysql.Tag
	err := r.db.WithContext(ctx).Order("name ASC").Find(&tags).Error
	return tags, err
}
