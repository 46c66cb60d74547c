package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"chatsync/internal/common"
	"chatsync/internal/dbmongo"
	"chatsync/internal/dbmysql"
	"chatsync/internal/feed"

	"github.com/google/uuid"
)

// CreateConversationRequest carries everything the multi-step creation flow
// needs. The tag is mandatory; there is no default-free path.
type CreateConversationRequest struct {
	Creator    *dbmysql.User   `json:"creator"`
	Recipients []*dbmysql.User `json:"recipients"`
	IsGroup    bool            `json:"is_group"`
	GroupName  string          `json:"group_name"`
	TagID      string          `json:"tag_id"`
}

func (req *CreateConversationRequest) validate() error {
	if req.Creator == nil || req.Creator.ID == "" {
		return errors.New("creator is required")
	}
	if len(req.Recipients) == 0 {
		return errors.New("please select at least one user")
	}
	if req.TagID == "" {
		return errors.New("a tag is required")
	}
	if req.IsGroup {
		return common.ValidateGroupName(req.GroupName)
	}
	if len(req.Recipients) != 1 {
		return errors.New("a direct conversation has exactly one recipient")
	}
	if req.GroupName != "" {
		return errors.New("a direct conversation cannot be named")
	}
	return nil
}

// CreateConversation runs the sequential creation steps: ensure participants,
// insert the conversation, link the tag, add memberships, post the system
// message. The steps are not transactional; each completed step is recorded
// in the journal so a later failure leaves a stale journal entry that the
// cleanup pass can act on.
func (s *chatService) CreateConversation(ctx context.Context, req *CreateConversationRequest) (*dbmysql.Conversation, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	journal := &dbmongo.CreationJournal{
		ID:        uuid.NewString(),
		CreatorID: req.Creator.ID,
	}
	if err := s.journal.Begin(ctx, journal); err != nil {
		return nil, err
	}

	// Step 1: every participant must exist as a stored record.
	creator, err := s.users.EnsureUser(ctx, req.Creator.ID, req.Creator.Email, req.Creator.FullName)
	if err != nil {
		return nil, fmt.Errorf("ensure creator: %w", err)
	}
	for _, recipient := range req.Recipients {
		if _, err := s.users.EnsureUser(ctx, recipient.ID, recipient.Email, recipient.FullName); err != nil {
			return nil, fmt.Errorf("ensure participant %s: %w", recipient.ID, err)
		}
	}
	s.advance(ctx, journal.ID, dbmongo.StateParticipantsEnsured, "")

	// Step 2: conversation row.
	now := time.Now().UTC()
	conversation := &dbmysql.Conversation{
		ID:            uuid.NewString(),
		IsGroup:       req.IsGroup,
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.IsGroup {
		name := req.GroupName
		conversation.Name = &name
	}
	if err := s.repo.CreateConversation(ctx, conversation); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	s.advance(ctx, journal.ID, dbmongo.StateConversationCreated, conversation.ID)

	// Step 3: exactly one classification tag.
	link := &dbmysql.ConversationTag{
		ID:             uuid.NewString(),
		ConversationID: conversation.ID,
		TagID:          req.TagID,
	}
	if err := s.repo.TagConversation(ctx, link); err != nil {
		return nil, fmt.Errorf("tag conversation: %w", err)
	}
	s.advance(ctx, journal.ID, dbmongo.StateTagged, "")

	// Steps 4-5: membership rows, creator first.
	members := append([]*dbmysql.User{creator}, req.Recipients...)
	for _, member := range members {
		participant := &dbmysql.ConversationParticipant{
			ID:             uuid.NewString(),
			ConversationID: conversation.ID,
			UserID:         member.ID,
			JoinedAt:       now,
		}
		if err := s.repo.AddParticipant(ctx, participant); err != nil {
			return nil, fmt.Errorf("add participant %s: %w", member.ID, err)
		}
	}
	s.advance(ctx, journal.ID, dbmongo.StatePopulated, "")

	// Step 6: synthetic first message.
	content := fmt.Sprintf("%s started a conversation", creator.FullName)
	if req.IsGroup {
		content = fmt.Sprintf("%s created group %q", creator.FullName, req.GroupName)
	}
	if _, err := s.SendMessage(ctx, &dbmysql.Message{
		ConversationID: conversation.ID,
		SenderID:       creator.ID,
		Content:        content,
	}); err != nil {
		return nil, fmt.Errorf("post system message: %w", err)
	}

	if err := s.journal.Commit(ctx, journal.ID); err != nil {
		log.Printf("commit creation journal %s failed: %v", journal.ID, err)
	}

	s.publish(ctx, feed.Event{
		Table:          feed.TableConversations,
		Op:             feed.OpInsert,
		ConversationID: conversation.ID,
		Payload:        feed.Marshal(conversation),
	})

	return conversation, nil
}

// CleanupStaleCreations removes the rows left behind by creation attempts
// that never committed. Returns how many attempts were cleaned.
func (s *chatService) CleanupStaleCreations(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := s.journal.ListStale(ctx, olderThan)
	if err != nil {
		return 0, err
	}

	cleaned := 0
	for _, journal := range stale {
		if journal.ConversationID != "" {
			if err := s.repo.RemoveConversation(ctx, journal.ConversationID); err != nil {
				log.Printf("cleanup: remove conversation %s failed: %v", journal.ConversationID, err)
				continue
			}
			s.publish(ctx, feed.Event{
				Table:          feed.TableConversations,
				Op:             feed.OpDelete,
				ConversationID: journal.ConversationID,
			})
		}
		if err := s.journal.Remove(ctx, journal.ID); err != nil {
			log.Printf("cleanup: remove journal %s failed: %v", journal.ID, err)
			continue
		}
		cleaned++
	}
	return cleaned, nil
}

// advance records step completion; a journal write failure must not fail the
// creation itself.
func (s *chatService) advance(ctx context.Context, journalID, state, conversationID string) {
	if err := s.journal.Advance(ctx, journalID, state, conversationID); err != nil {
		log.Printf("advance creation journal %s to %s failed: %v", journalID, state, err)
	}
}
