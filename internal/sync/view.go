package sync

import (
	"fmt"
	"time"

	"chatsync/internal/chat/repository"
	"chatsync/internal/chat/service"
	"chatsync/internal/dbmysql"
)

// ConversationView is the list row shape handed to clients: the stored
// conversation plus everything derived for display.
type ConversationView struct {
	Conversation  *dbmysql.Conversation `json:"conversation"`
	Participants  []*dbmysql.User       `json:"participants"`
	Tags          []*dbmysql.Tag        `json:"tags"`
	DisplayName   string                `json:"display_name"`
	LatestPreview string                `json:"latest_preview"`
	TimeLabel     string                `json:"time_label"`
	UnreadCount   int64                 `json:"unread_count"`
}

// MessageGroup holds one day's messages under its grouping key.
type MessageGroup struct {
	DateKey  string             `json:"date_key"`
	Messages []*dbmysql.Message `json:"messages"`
}

// DisplayName resolves what a conversation is called from the viewer's seat.
// An explicit name always wins. A direct conversation is named after the
// other participant, falling back through their phone number to a
// placeholder when the profile is incomplete.
func DisplayName(record *repository.ConversationRecord, viewerID string) string {
	if record.Conversation.Name != nil && *record.Conversation.Name != "" {
		return *record.Conversation.Name
	}

	var other *dbmysql.User
	for _, p := range record.Participants {
		if p.ID != viewerID {
			other = p
			break
		}
	}
	if other == nil {
		return "Unnamed Conversation"
	}
	if other.FullName != "" {
		return other.FullName
	}
	if other.PhoneNumber != "" {
		return other.PhoneNumber
	}
	return "Unknown User"
}

// Preview renders the latest-message line, prefixing the sender. The viewer's
// own messages read "You:".
func Preview(latest *dbmysql.Message, viewerID string) string {
	if latest == nil {
		return ""
	}

	sender := "Unknown"
	if latest.SenderID == viewerID {
		sender = "You"
	} else if latest.Sender != nil && latest.Sender.FullName != "" {
		sender = latest.Sender.FullName
	}
	return fmt.Sprintf("%s: %s", sender, latest.Content)
}

// TimeLabel formats an activity timestamp relative to now: clock time today,
// "Yesterday", the weekday within the last week, a short date beyond that.
func TimeLabel(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	t = t.Local()
	now = now.Local()

	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	if ty == ny && tm == nm && td == nd {
		return t.Format("15:04")
	}

	yesterday := now.AddDate(0, 0, -1)
	yy, ym, yd := yesterday.Date()
	if ty == yy && tm == ym && td == yd {
		return "Yesterday"
	}

	if now.Sub(t) < 7*24*time.Hour {
		return t.Format("Mon")
	}

	return t.Format("02-Jan-06")
}

// DateKey is the day-grouping key for a message timestamp. Keys are derived
// in UTC so every client groups a conversation identically regardless of
// local timezone.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// GroupByDate splits an oldest-first message slice into per-day groups,
// preserving order within and across groups.
func GroupByDate(messages []*dbmysql.Message) []*MessageGroup {
	var groups []*MessageGroup
	index := make(map[string]*MessageGroup)

	for _, msg := range messages {
		key := DateKey(msg.CreatedAt)
		group, ok := index[key]
		if !ok {
			group = &MessageGroup{DateKey: key}
			index[key] = group
			groups = append(groups, group)
		}
		group.Messages = append(group.Messages, msg)
	}
	return groups
}

// BuildViews turns a list-overview into display-ready rows, keeping the
// repository's recency ordering.
func BuildViews(overview *service.Overview, viewerID string, now time.Time) []*ConversationView {
	views := make([]*ConversationView, 0, len(overview.Records))
	for _, record := range overview.Records {
		convID := record.Conversation.ID
		latest := overview.LatestMessages[convID]

		label := TimeLabel(record.Conversation.LastMessageAt, now)
		if latest != nil {
			label = TimeLabel(latest.CreatedAt, now)
		}

		views = append(views, &ConversationView{
			Conversation:  record.Conversation,
			Participants:  record.Participants,
			Tags:          record.Tags,
			DisplayName:   DisplayName(record, viewerID),
			LatestPreview: Preview(latest, viewerID),
			TimeLabel:     label,
			UnreadCount:   overview.UnreadCounts[convID],
		})
	}
	return views
}
