package feed

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bridgeTestSetup(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return client, func() { client.Close() }
}

func TestBridge_LocalPublishReachesLocalHub(t *testing.T) {
	client, cleanup := bridgeTestSetup(t)
	defer cleanup()

	hub := NewHub()
	bridge := NewBridge(client, hub, "test:feed")
	require.NoError(t, bridge.Start(context.Background()))
	defer bridge.Close()

	sub := hub.Subscribe(TableConversations, "")
	defer sub.Cancel()

	event := Event{Table: TableConversations, Op: OpInsert, ConversationID: "conv-1"}
	require.NoError(t, bridge.Publish(context.Background(), event))

	select {
	case got := <-sub.C:
		assert.Equal(t, event, got)
	case <-time.After(time.Second):
		t.Fatal("no event delivered locally")
	}
}

func TestBridge_RemoteEventReplayedIntoHub(t *testing.T) {
	client, cleanup := bridgeTestSetup(t)
	defer cleanup()

	hubA := NewHub()
	bridgeA := NewBridge(client, hubA, "test:feed")
	require.NoError(t, bridgeA.Start(context.Background()))
	defer bridgeA.Close()

	hubB := NewHub()
	bridgeB := NewBridge(client, hubB, "test:feed")
	require.NoError(t, bridgeB.Start(context.Background()))
	defer bridgeB.Close()

	subB := hubB.Subscribe(TableMessages, "conv-9")
	defer subB.Cancel()

	event := Event{Table: TableMessages, Op: OpInsert, ConversationID: "conv-9"}
	require.NoError(t, bridgeA.Publish(context.Background(), event))

	select {
	case got := <-subB.C:
		assert.Equal(t, event, got)
	case <-time.After(2 * time.Second):
		t.Fatal("remote event not replayed")
	}
}

func TestBridge_OwnEventsNotDuplicated(t *testing.T) {
	client, cleanup := bridgeTestSetup(t)
	defer cleanup()

	hub := NewHub()
	bridge := NewBridge(client, hub, "test:feed")
	require.NoError(t, bridge.Start(context.Background()))
	defer bridge.Close()

	sub := hub.Subscribe(TableMessages, "")
	defer sub.Cancel()

	require.NoError(t, bridge.Publish(context.Background(), Event{Table: TableMessages, Op: OpInsert}))

	// One local delivery, then nothing when the redis copy comes back around.
	select {
	case <-sub.C:
	case <-time.After(time.Second):
		t.Fatal("no local delivery")
	}

	select {
	case got := <-sub.C:
		t.Fatalf("event delivered twice: %+v", got)
	case <-time.After(200 * time.Millisecond):
	}
}
