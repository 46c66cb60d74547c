package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"chatsync/internal/chat/repository"
	"chatsync/internal/chat/service"
	"chatsync/internal/dbmysql"
)

func strPtr(s string) *string { return &s }

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		record   *repository.ConversationRecord
		expected string
	}{
		{
			name: "explicit name wins",
			record: &repository.ConversationRecord{
				Conversation: &dbmysql.Conversation{Name: strPtr("Weekend Plans"), IsGroup: true},
				Participants: []*dbmysql.User{
					{ID: "viewer"}, {ID: "other", FullName: "Bob Jones"},
				},
			},
			expected: "Weekend Plans",
		},
		{
			name: "direct conversation uses other participant's name",
			record: &repository.ConversationRecord{
				Conversation: &dbmysql.Conversation{},
				Participants: []*dbmysql.User{
					{ID: "viewer", FullName: "Alice Smith"},
					{ID: "other", FullName: "Bob Jones"},
				},
			},
			expected: "Bob Jones",
		},
		{
			name: "falls back to phone number",
			record: &repository.ConversationRecord{
				Conversation: &dbmysql.Conversation{},
				Participants: []*dbmysql.User{
					{ID: "viewer"},
					{ID: "other", PhoneNumber: "+15550100"},
				},
			},
			expected: "+15550100",
		},
		{
			name: "empty profile",
			record: &repository.ConversationRecord{
				Conversation: &dbmysql.Conversation{},
				Participants: []*dbmysql.User{
					{ID: "viewer"},
					{ID: "other"},
				},
			},
			expected: "Unknown User",
		},
		{
			name: "no other participant",
			record: &repository.ConversationRecord{
				Conversation: &dbmysql.Conversation{},
				Participants: []*dbmysql.User{{ID: "viewer"}},
			},
			expected: "Unnamed Conversation",
		},
		{
			name: "empty explicit name is ignored",
			record: &repository.ConversationRecord{
				Conversation: &dbmysql.Conversation{Name: strPtr("")},
				Participants: []*dbmysql.User{
					{ID: "viewer"},
					{ID: "other", FullName: "Bob Jones"},
				},
			},
			expected: "Bob Jones",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DisplayName(tt.record, "viewer"))
		})
	}
}

func TestPreview(t *testing.T) {
	assert.Empty(t, Preview(nil, "viewer"))

	own := &dbmysql.Message{SenderID: "viewer", Content: "hi there"}
	assert.Equal(t, "You: hi there", Preview(own, "viewer"))

	theirs := &dbmysql.Message{
		SenderID: "other",
		Content:  "hello",
		Sender:   &dbmysql.User{ID: "other", FullName: "Bob Jones"},
	}
	assert.Equal(t, "Bob Jones: hello", Preview(theirs, "viewer"))

	unloaded := &dbmysql.Message{SenderID: "other", Content: "hello"}
	assert.Equal(t, "Unknown: hello", Preview(unloaded, "viewer"))
}

func TestTimeLabel(t *testing.T) {
	now := time.Date(2026, time.August, 30, 18, 0, 0, 0, time.Local)

	tests := []struct {
		name     string
		t        time.Time
		expected string
	}{
		{"zero time", time.Time{}, ""},
		{"same day", time.Date(2026, time.August, 30, 9, 30, 0, 0, time.Local), "09:30"},
		{"yesterday", time.Date(2026, time.August, 29, 23, 59, 0, 0, time.Local), "Yesterday"},
		{"three days ago", time.Date(2026, time.August, 27, 12, 0, 0, 0, time.Local), "Thu"},
		{"eight days ago", time.Date(2026, time.August, 22, 12, 0, 0, 0, time.Local), "22-Aug-26"},
		{"last year", time.Date(2025, time.December, 5, 12, 0, 0, 0, time.Local), "05-Dec-25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TimeLabel(tt.t, now))
		})
	}
}

func TestDateKeyIsUTC(t *testing.T) {
	// 23:30 in UTC+2 is 21:30 UTC: same UTC day, whatever the local zone.
	zone := time.FixedZone("UTC+2", 2*60*60)
	late := time.Date(2026, time.August, 30, 23, 30, 0, 0, zone)
	assert.Equal(t, "2026-08-30", DateKey(late))

	// 01:30 in UTC+2 is the previous UTC day.
	early := time.Date(2026, time.August, 30, 1, 30, 0, 0, zone)
	assert.Equal(t, "2026-08-29", DateKey(early))
}

func TestGroupByDate(t *testing.T) {
	day1 := time.Date(2026, time.August, 29, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, time.August, 30, 8, 0, 0, 0, time.UTC)

	messages := []*dbmysql.Message{
		{ID: "m1", CreatedAt: day1},
		{ID: "m2", CreatedAt: day1.Add(time.Hour)},
		{ID: "m3", CreatedAt: day2},
	}

	groups := GroupByDate(messages)
	assert.Len(t, groups, 2)

	assert.Equal(t, "2026-08-29", groups[0].DateKey)
	assert.Len(t, groups[0].Messages, 2)
	assert.Equal(t, "m1", groups[0].Messages[0].ID)
	assert.Equal(t, "m2", groups[0].Messages[1].ID)

	assert.Equal(t, "2026-08-30", groups[1].DateKey)
	assert.Equal(t, "m3", groups[1].Messages[0].ID)
}

func TestBuildViews(t *testing.T) {
	latest := &dbmysql.Message{
		ID:        "m1",
		SenderID:  "other",
		Content:   "see you soon",
		Sender:    &dbmysql.User{ID: "other", FullName: "Bob Jones"},
		CreatedAt: time.Now(),
	}
	overview := &service.Overview{
		Records: []*repository.ConversationRecord{
			{
				Conversation: &dbmysql.Conversation{ID: "conv-1", LastMessageAt: time.Now()},
				Participants: []*dbmysql.User{
					{ID: "viewer"},
					{ID: "other", FullName: "Bob Jones"},
				},
			},
		},
		LatestMessages: map[string]*dbmysql.Message{"conv-1": latest},
		UnreadCounts:   map[string]int64{"conv-1": 3},
	}

	views := BuildViews(overview, "viewer", time.Now())
	assert.Len(t, views, 1)
	assert.Equal(t, "Bob Jones", views[0].DisplayName)
	assert.Equal(t, "Bob Jones: see you soon", views[0].LatestPreview)
	assert.Equal(t, int64(3), views[0].UnreadCount)
	assert.NotEmpty(t, views[0].TimeLabel)
}
