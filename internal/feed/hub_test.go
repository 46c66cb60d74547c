package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishToTableSubscriber(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(TableMessages, "")
	defer sub.Cancel()

	event := Event{Table: TableMessages, Op: OpInsert, ConversationID: "conv-1"}
	require.NoError(t, hub.Publish(context.Background(), event))

	select {
	case got := <-sub.C:
		assert.Equal(t, event, got)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestHub_ConversationFilter(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(TableMessages, "conv-1")
	defer sub.Cancel()

	hub.Publish(context.Background(), Event{Table: TableMessages, Op: OpInsert, ConversationID: "conv-2"})
	hub.Publish(context.Background(), Event{Table: TableMessages, Op: OpInsert, ConversationID: "conv-1"})

	select {
	case got := <-sub.C:
		assert.Equal(t, "conv-1", got.ConversationID)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	select {
	case got := <-sub.C:
		t.Fatalf("unexpected extra event: %+v", got)
	default:
	}
}

func TestHub_TableIsolation(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(TableConversations, "")
	defer sub.Cancel()

	hub.Publish(context.Background(), Event{Table: TableMessages, Op: OpInsert})

	select {
	case got := <-sub.C:
		t.Fatalf("conversation subscriber got message event: %+v", got)
	default:
	}
}

func TestHub_CancelUnregisters(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(TableMessages, "")

	assert.Equal(t, 1, hub.SubscriberCount(TableMessages))

	sub.Cancel()
	assert.Equal(t, 0, hub.SubscriberCount(TableMessages))

	// Idempotent
	sub.Cancel()

	// Channel is closed after cancel
	_, open := <-sub.C
	assert.False(t, open)
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(TableMessages, "")
	defer sub.Cancel()

	// Overfill the buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBuffer*2; i++ {
			hub.Publish(context.Background(), Event{Table: TableMessages, Op: OpInsert})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}
