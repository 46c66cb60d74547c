package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chatsync/internal/chat/handler/mocks"
	"chatsync/internal/chat/repository"
	"chatsync/internal/chat/service"
	"chatsync/internal/dbmysql"
	"chatsync/internal/feed"
)

func overviewWith(unread int64) *service.Overview {
	return &service.Overview{
		Records: []*repository.ConversationRecord{
			{
				Conversation: &dbmysql.Conversation{ID: "conv-1", LastMessageAt: time.Now()},
				Participants: []*dbmysql.User{
					{ID: "viewer", FullName: "Alice Smith"},
					{ID: "other", FullName: "Bob Jones"},
				},
			},
		},
		LatestMessages: map[string]*dbmysql.Message{},
		UnreadCounts:   map[string]int64{"conv-1": unread},
	}
}

func TestListSetIdentity_LoadsSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chats := mocks.NewMockChatService(ctrl)
	hub := feed.NewHub()
	l := NewListSynchronizer(chats, hub)
	defer l.Close()

	chats.EXPECT().ListConversations(gomock.Any(), "viewer").Return(overviewWith(0), nil)

	err := l.SetIdentity(context.Background(), &dbmysql.User{ID: "viewer"})
	require.NoError(t, err)

	snapshot := l.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "Bob Jones", snapshot[0].DisplayName)
}

func TestListRefreshesOnMessageEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chats := mocks.NewMockChatService(ctrl)
	hub := feed.NewHub()
	l := NewListSynchronizer(chats, hub)
	defer l.Close()

	gomock.InOrder(
		chats.EXPECT().ListConversations(gomock.Any(), "viewer").Return(overviewWith(0), nil),
		chats.EXPECT().ListConversations(gomock.Any(), "viewer").Return(overviewWith(1), nil).MinTimes(1),
	)

	require.NoError(t, l.SetIdentity(context.Background(), &dbmysql.User{ID: "viewer"}))
	<-l.Updates() // initial snapshot

	require.NoError(t, hub.Publish(context.Background(), feed.Event{
		Table:          feed.TableMessages,
		Op:             feed.OpInsert,
		ConversationID: "conv-1",
	}))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case views := <-l.Updates():
			if len(views) == 1 && views[0].UnreadCount == 1 {
				return
			}
		case <-deadline:
			t.Fatal("list never refreshed after the message event")
		}
	}
}

func TestListSignOutClearsSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chats := mocks.NewMockChatService(ctrl)
	hub := feed.NewHub()
	l := NewListSynchronizer(chats, hub)
	defer l.Close()

	chats.EXPECT().ListConversations(gomock.Any(), "viewer").Return(overviewWith(0), nil)
	require.NoError(t, l.SetIdentity(context.Background(), &dbmysql.User{ID: "viewer"}))
	require.Len(t, l.Snapshot(), 1)

	require.NoError(t, l.SetIdentity(context.Background(), nil))
	assert.Empty(t, l.Snapshot())
	assert.Equal(t, 0, hub.SubscriberCount(feed.TableConversations))
	assert.Equal(t, 0, hub.SubscriberCount(feed.TableMessages))
}
