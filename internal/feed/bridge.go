package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// envelope wraps an event on the redis channel with its origin so a process
// does not re-deliver its own events to the local hub.
type envelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// Bridge shares one logical change feed between processes over a redis
// channel. Local publishes go to the hub immediately and to redis; remote
// events are replayed into the hub.
type Bridge struct {
	client  *redis.Client
	hub     *Hub
	channel string
	origin  string

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewBridge(client *redis.Client, hub *Hub, channel string) *Bridge {
	return &Bridge{
		client:  client,
		hub:     hub,
		channel: channel,
		origin:  uuid.NewString(),
	}
}

// Start begins replaying remote events into the local hub. It returns once
// the redis subscription is confirmed.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pubsub != nil {
		return nil
	}

	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("subscribe feed channel %s: %w", b.channel, err)
	}

	b.pubsub = pubsub
	b.done = make(chan struct{})

	go b.receiveLoop(pubsub.Channel(), b.done)
	return nil
}

func (b *Bridge) receiveLoop(ch <-chan *redis.Message, done chan struct{}) {
	defer close(done)
	for msg := range ch {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			log.Printf("feed bridge: bad payload: %v", err)
			continue
		}
		if env.Origin == b.origin {
			continue
		}
		b.hub.Publish(context.Background(), env.Event)
	}
}

// Publish delivers locally and broadcasts to peers. A redis failure degrades
// to in-process-only delivery and is logged, not returned.
func (b *Bridge) Publish(ctx context.Context, event Event) error {
	if err := b.hub.Publish(ctx, event); err != nil {
		return err
	}

	data, err := json.Marshal(envelope{Origin: b.origin, Event: event})
	if err != nil {
		return fmt.Errorf("marshal feed envelope: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		log.Printf("feed bridge: publish failed, delivering in-process only: %v", err)
	}
	return nil
}

// Close stops the receive loop and the redis subscription.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pubsub == nil {
		return nil
	}
	err := b.pubsub.Close()
	<-b.done
	b.pubsub = nil
	return err
}
