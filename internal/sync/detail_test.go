package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chatsync/internal/chat/handler/mocks"
	"chatsync/internal/chat/repository"
	"chatsync/internal/dbmysql"
	"chatsync/internal/feed"
)

func newDetailFixture(t *testing.T) (*mocks.MockChatService, *feed.Hub, *DetailSynchronizer) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	chats := mocks.NewMockChatService(ctrl)
	hub := feed.NewHub()
	d := NewDetailSynchronizer(chats, hub)
	t.Cleanup(d.Close)
	return chats, hub, d
}

func expectSelect(chats *mocks.MockChatService, history []*dbmysql.Message, readIDs []string) {
	chats.EXPECT().GetConversation(gomock.Any(), "conv-1").Return(&repository.ConversationRecord{
		Conversation: &dbmysql.Conversation{ID: "conv-1"},
		Participants: []*dbmysql.User{
			{ID: "viewer", FullName: "Alice Smith"},
			{ID: "other", FullName: "Bob Jones"},
		},
	}, nil)
	chats.EXPECT().GetMessageHistory(gomock.Any(), "conv-1").Return(history, nil)
	chats.EXPECT().MarkIncomingRead(gomock.Any(), "conv-1", "viewer").Return(readIDs, nil)
}

func waitForGroups(t *testing.T, d *DetailSynchronizer, pred func([]*MessageGroup) bool) []*MessageGroup {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case groups := <-d.Updates():
			if pred(groups) {
				return groups
			}
		case <-deadline:
			t.Fatal("timed out waiting for update")
			return nil
		}
	}
}

func countMessages(groups []*MessageGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g.Messages)
	}
	return n
}

func TestDetailSelect_LoadsHistoryAndMarksRead(t *testing.T) {
	chats, _, d := newDetailFixture(t)

	history := []*dbmysql.Message{
		{ID: "m1", SenderID: "other", Content: "hi", IsRead: false, CreatedAt: time.Now().UTC()},
		{ID: "m2", SenderID: "viewer", Content: "hey", IsRead: true, CreatedAt: time.Now().UTC()},
	}
	expectSelect(chats, history, []string{"m1"})

	groups, err := d.Select(context.Background(), "conv-1", "viewer")
	require.NoError(t, err)
	require.Equal(t, 2, countMessages(groups))

	// Selecting flips local read state for the ids the service reported.
	assert.True(t, groups[0].Messages[0].IsRead)

	record := d.Conversation()
	require.NotNil(t, record)
	assert.Len(t, record.Participants, 2)
}

func TestDetailSend_OptimisticThenReconciled(t *testing.T) {
	chats, hub, d := newDetailFixture(t)

	expectSelect(chats, nil, nil)

	_, err := d.Select(context.Background(), "conv-1", "viewer")
	require.NoError(t, err)

	var stored *dbmysql.Message
	chats.EXPECT().
		SendMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, msg *dbmysql.Message) (*dbmysql.Message, error) {
			require.NotEmpty(t, msg.ClientID)
			stored = &dbmysql.Message{
				ID:             "server-id-1",
				ConversationID: msg.ConversationID,
				SenderID:       msg.SenderID,
				ClientID:       msg.ClientID,
				Content:        msg.Content,
				CreatedAt:      time.Now().UTC(),
			}
			return stored, nil
		})

	sent, err := d.Send(context.Background(), "hello there")
	require.NoError(t, err)
	assert.Equal(t, "server-id-1", sent.ID)

	// The provisional row is visible immediately.
	groups := d.Groups()
	require.Equal(t, 1, countMessages(groups))
	assert.Equal(t, sent.ClientID, groups[0].Messages[0].ClientID)

	// The insert event replaces the provisional row in place.
	require.NoError(t, hub.Publish(context.Background(), feed.Event{
		Table:          feed.TableMessages,
		Op:             feed.OpInsert,
		ConversationID: "conv-1",
		Payload:        feed.Marshal(stored),
	}))

	reconciled := waitForGroups(t, d, func(groups []*MessageGroup) bool {
		return countMessages(groups) == 1 && groups[0].Messages[0].ID == "server-id-1"
	})
	assert.Equal(t, 1, countMessages(reconciled))
}

func TestDetailSend_ServiceErrorRemovesProvisional(t *testing.T) {
	chats, _, d := newDetailFixture(t)

	expectSelect(chats, nil, nil)
	_, err := d.Select(context.Background(), "conv-1", "viewer")
	require.NoError(t, err)

	chats.EXPECT().SendMessage(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

	_, err = d.Send(context.Background(), "doomed")
	require.Error(t, err)
	assert.Equal(t, 0, countMessages(d.Groups()))
}

func TestDetailIncomingInsertAppends(t *testing.T) {
	chats, hub, d := newDetailFixture(t)

	expectSelect(chats, nil, nil)
	_, err := d.Select(context.Background(), "conv-1", "viewer")
	require.NoError(t, err)

	incoming := &dbmysql.Message{
		ID:             "m-remote",
		ConversationID: "conv-1",
		SenderID:       "other",
		Content:        "hello from the other side",
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, hub.Publish(context.Background(), feed.Event{
		Table:          feed.TableMessages,
		Op:             feed.OpInsert,
		ConversationID: "conv-1",
		Payload:        feed.Marshal(incoming),
	}))

	groups := waitForGroups(t, d, func(groups []*MessageGroup) bool {
		return countMessages(groups) == 1
	})
	assert.Equal(t, "m-remote", groups[0].Messages[0].ID)
}

func TestDetailDuplicateInsertIgnored(t *testing.T) {
	chats, hub, d := newDetailFixture(t)

	existing := &dbmysql.Message{
		ID: "m1", SenderID: "other", Content: "hi", CreatedAt: time.Now().UTC(),
	}
	expectSelect(chats, []*dbmysql.Message{existing}, nil)
	_, err := d.Select(context.Background(), "conv-1", "viewer")
	require.NoError(t, err)

	require.NoError(t, hub.Publish(context.Background(), feed.Event{
		Table:          feed.TableMessages,
		Op:             feed.OpInsert,
		ConversationID: "conv-1",
		Payload:        feed.Marshal(existing),
	}))

	groups := waitForGroups(t, d, func(groups []*MessageGroup) bool {
		return countMessages(groups) >= 1
	})
	assert.Equal(t, 1, countMessages(groups))
}
