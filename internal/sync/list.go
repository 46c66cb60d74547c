package sync

import (
	"context"
	"log"
	"sync"
	"time"

	"chatsync/internal/chat/service"
	"chatsync/internal/dbmysql"
	"chatsync/internal/feed"
)

// ListSynchronizer keeps a display-ready conversation list current for one
// signed-in identity. Every change notification triggers a full re-fetch
// through the service layer; nothing is merged incrementally, so the
// snapshot always reflects a single consistent read.
type ListSynchronizer struct {
	chats service.ChatService
	hub   *feed.Hub

	mu       sync.Mutex
	identity *dbmysql.User
	views    []*ConversationView
	subs     []*feed.Subscription
	done     chan struct{}

	updates chan []*ConversationView
}

func NewListSynchronizer(chats service.ChatService, hub *feed.Hub) *ListSynchronizer {
	return &ListSynchronizer{
		chats:   chats,
		hub:     hub,
		updates: make(chan []*ConversationView, 8),
	}
}

// SetIdentity switches the synchronizer to a new viewer. A nil identity
// (sign-out) empties the list and tears down the subscriptions.
func (l *ListSynchronizer) SetIdentity(ctx context.Context, identity *dbmysql.User) error {
	l.teardown()

	l.mu.Lock()
	l.identity = identity
	l.views = nil
	l.mu.Unlock()

	if identity == nil {
		l.notify(nil)
		return nil
	}

	if err := l.Refresh(ctx); err != nil {
		return err
	}

	// Any conversation change, or a new message anywhere, can reorder the
	// list or move its counters.
	convSub := l.hub.Subscribe(feed.TableConversations, "")
	msgSub := l.hub.Subscribe(feed.TableMessages, "")
	done := make(chan struct{})

	l.mu.Lock()
	l.subs = []*feed.Subscription{convSub, msgSub}
	l.done = done
	l.mu.Unlock()

	go l.watch(convSub, msgSub, done)
	return nil
}

func (l *ListSynchronizer) watch(convSub, msgSub *feed.Subscription, done chan struct{}) {
	for {
		select {
		case _, ok := <-convSub.C:
			if !ok {
				return
			}
		case _, ok := <-msgSub.C:
			if !ok {
				return
			}
		case <-done:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := l.Refresh(ctx); err != nil {
			log.Printf("list refresh failed: %v", err)
		}
		cancel()
	}
}

// Refresh re-runs the full list fetch and replaces the snapshot.
func (l *ListSynchronizer) Refresh(ctx context.Context) error {
	l.mu.Lock()
	identity := l.identity
	l.mu.Unlock()
	if identity == nil {
		return nil
	}

	overview, err := l.chats.ListConversations(ctx, identity.ID)
	if err != nil {
		return err
	}
	views := BuildViews(overview, identity.ID, time.Now())

	l.mu.Lock()
	l.views = views
	l.mu.Unlock()

	l.notify(views)
	return nil
}

// Snapshot returns the current display rows.
func (l *ListSynchronizer) Snapshot() []*ConversationView {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.views
}

// Updates delivers each new snapshot. Slow consumers miss intermediate
// snapshots, never the latest state, because Snapshot always has it.
func (l *ListSynchronizer) Updates() <-chan []*ConversationView {
	return l.updates
}

func (l *ListSynchronizer) Close() {
	l.teardown()
}

func (l *ListSynchronizer) teardown() {
	l.mu.Lock()
	subs := l.subs
	done := l.done
	l.subs = nil
	l.done = nil
	l.mu.Unlock()

	if done != nil {
		close(done)
	}
	for _, sub := range subs {
		sub.Cancel()
	}
}

func (l *ListSynchronizer) notify(views []*ConversationView) {
	select {
	case l.updates <- views:
	default:
	}
}
