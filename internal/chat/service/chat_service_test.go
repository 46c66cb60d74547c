package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chatsync/internal/chat/repository"
	"chatsync/internal/chat/service/mocks"
	"chatsync/internal/dbmysql"
	"chatsync/internal/feed"
	"chatsync/internal/user"
	usermocks "chatsync/internal/user/mocks"
)

type serviceFixture struct {
	repo    *mocks.MockChatRepository
	users   *usermocks.MockUserRepository
	journal *mocks.MockJournalStore
	hub     *feed.Hub
	service ChatService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	repo := mocks.NewMockChatRepository(ctrl)
	userRepo := usermocks.NewMockUserRepository(ctrl)
	journal := mocks.NewMockJournalStore(ctrl)
	hub := feed.NewHub()

	return &serviceFixture{
		repo:    repo,
		users:   userRepo,
		journal: journal,
		hub:     hub,
		service: NewChatService(repo, user.NewUserService(userRepo), journal, hub),
	}
}

func TestChatService_SendMessage(t *testing.T) {
	tests := []struct {
		name        string
		message     *dbmysql.Message
		mockSetup   func(f *serviceFixture)
		expectError bool
		errorMsg    string
	}{
		{
			name: "successful message send",
			message: &dbmysql.Message{
				ConversationID: "conv-123",
				SenderID:       "user-456",
				Content:        "Hello, world!",
			},
			mockSetup: func(f *serviceFixture) {
				f.repo.EXPECT().
					SaveMessage(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, msg *dbmysql.Message) error {
						assert.NotEmpty(t, msg.ID)
						assert.WithinDuration(t, time.Now(), msg.CreatedAt, time.Second)
						assert.False(t, msg.IsRead)
						return nil
					})
				f.repo.EXPECT().
					TouchConversation(gomock.Any(), "conv-123", gomock.Any()).
					Return(nil)
			},
		},
		{
			name: "empty conversation ID",
			message: &dbmysql.Message{
				SenderID: "user-456",
				Content:  "Hello, world!",
			},
			mockSetup:   func(f *serviceFixture) {},
			expectError: true,
			errorMsg:    "conversation ID cannot be empty",
		},
		{
			name: "empty content",
			message: &dbmysql.Message{
				ConversationID: "conv-123",
				SenderID:       "user-456",
			},
			mockSetup:   func(f *serviceFixture) {},
			expectError: true,
			errorMsg:    "message content cannot be empty",
		},
		{
			name: "repository save error",
			message: &dbmysql.Message{
				ConversationID: "conv-123",
				SenderID:       "user-456",
				Content:        "Hello, world!",
			},
			mockSetup: func(f *serviceFixture) {
				f.repo.EXPECT().
					SaveMessage(gomock.Any(), gomock.Any()).
					Return(errors.New("database connection failed"))
			},
			expectError: true,
			errorMsg:    "database connection failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)
			tt.mockSetup(f)

			savedMsg, err := f.service.SendMessage(context.Background(), tt.message)

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				assert.Nil(t, savedMsg)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, savedMsg)
			}
		})
	}
}

func TestChatService_SendMessage_PublishesInsertEvent(t *testing.T) {
	f := newServiceFixture(t)

	sub := f.hub.Subscribe(feed.TableMessages, "conv-123")
	defer sub.Cancel()

	f.repo.EXPECT().SaveMessage(gomock.Any(), gomock.Any()).Return(nil)
	f.repo.EXPECT().TouchConversation(gomock.Any(), "conv-123", gomock.Any()).Return(nil)

	_, err := f.service.SendMessage(context.Background(), &dbmysql.Message{
		ConversationID: "conv-123",
		SenderID:       "user-456",
		Content:        "hello",
	})
	require.NoError(t, err)

	select {
	case event := <-sub.C:
		assert.Equal(t, feed.OpInsert, event.Op)
		assert.Equal(t, "conv-123", event.ConversationID)
		assert.NotEmpty(t, event.Payload)
	case <-time.After(time.Second):
		t.Fatal("no insert event published")
	}
}

func TestChatService_GetMessageHistory(t *testing.T) {
	f := newServiceFixture(t)

	messages := []*dbmysql.Message{
		{ID: "m1", ConversationID: "conv-123", Content: "first"},
		{ID: "m2", ConversationID: "conv-123", Content: "second"},
	}
	f.repo.EXPECT().
		FetchHistory(gomock.Any(), "conv-123").
		Return(messages, nil)

	got, err := f.service.GetMessageHistory(context.Background(), "conv-123")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = f.service.GetMessageHistory(context.Background(), "")
	assert.Error(t, err)
}

func TestChatService_MarkIncomingRead(t *testing.T) {
	f := newServiceFixture(t)

	messages := []*dbmysql.Message{
		{ID: "m1", SenderID: "them", IsRead: false},
		{ID: "m2", SenderID: "me", IsRead: false},  // own message never marked
		{ID: "m3", SenderID: "them", IsRead: true}, // already read, stays read
		{ID: "m4", SenderID: "them", IsRead: false},
	}
	f.repo.EXPECT().FetchHistory(gomock.Any(), "conv-123").Return(messages, nil)
	f.repo.EXPECT().MarkRead(gomock.Any(), []string{"m1", "m4"}).Return(nil)

	ids, err := f.service.MarkIncomingRead(context.Background(), "conv-123", "me")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m4"}, ids)
}

func TestChatService_MarkIncomingRead_NothingUnread(t *testing.T) {
	f := newServiceFixture(t)

	f.repo.EXPECT().FetchHistory(gomock.Any(), "conv-123").Return([]*dbmysql.Message{
		{ID: "m1", SenderID: "them", IsRead: true},
	}, nil)
	// No MarkRead call expected.

	ids, err := f.service.MarkIncomingRead(context.Background(), "conv-123", "me")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestChatService_ListConversations(t *testing.T) {
	f := newServiceFixture(t)

	records := []*repository.ConversationRecord{
		{Conversation: &dbmysql.Conversation{ID: "conv-1"}},
		{Conversation: &dbmysql.Conversation{ID: "conv-2"}},
	}
	latest := &dbmysql.Message{ID: "m9", ConversationID: "conv-1", Content: "latest"}

	f.repo.EXPECT().ConversationIDsFor(gomock.Any(), "me").Return([]string{"conv-1", "conv-2"}, nil)
	f.repo.EXPECT().ConversationsByIDs(gomock.Any(), []string{"conv-1", "conv-2"}).Return(records, nil)
	f.repo.EXPECT().LatestMessage(gomock.Any(), "conv-1").Return(latest, nil)
	f.repo.EXPECT().CountUnread(gomock.Any(), "conv-1", "me").Return(int64(3), nil)
	f.repo.EXPECT().LatestMessage(gomock.Any(), "conv-2").Return(nil, nil)
	f.repo.EXPECT().CountUnread(gomock.Any(), "conv-2", "me").Return(int64(0), nil)

	overview, err := f.service.ListConversations(context.Background(), "me")
	require.NoError(t, err)

	assert.Len(t, overview.Records, 2)
	assert.Equal(t, latest, overview.LatestMessages["conv-1"])
	assert.NotContains(t, overview.LatestMessages, "conv-2")

	// 3 unread from the other party, own/read messages not counted.
	assert.Equal(t, int64(3), overview.UnreadCounts["conv-1"])
	assert.Equal(t, int64(0), overview.UnreadCounts["conv-2"])
}

func TestChatService_ListConversations_Empty(t *testing.T) {
	f := newServiceFixture(t)

	f.repo.EXPECT().ConversationIDsFor(gomock.Any(), "me").Return(nil, nil)
	f.repo.EXPECT().ConversationsByIDs(gomock.Any(), gomock.Len(0)).Return([]*repository.ConversationRecord{}, nil)

	overview, err := f.service.ListConversations(context.Background(), "me")
	require.NoError(t, err)
	assert.Empty(t, overview.Records)
}
