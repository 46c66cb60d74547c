package dbmongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Creation flow states, advanced in order. An attempt that never reaches
// StateCommitted is eligible for the cleanup pass once it goes stale.
const (
	StatePending             = "pending"
	StateParticipantsEnsured = "participants-ensured"
	StateConversationCreated = "conversation-created"
	StateTagged              = "tagged"
	StatePopulated           = "populated"
	StateCommitted           = "committed"
)

// CreationJournal records one multi-step conversation creation attempt.
type CreationJournal struct {
	ID             string               `bson:"_id" json:"id"`
	CreatorID      string               `bson:"creator_id" json:"creator_id"`
	State          string               `bson:"state" json:"state"`
	ConversationID string               `bson:"conversation_id,omitempty" json:"conversation_id,omitempty"`
	Steps          map[string]time.Time `bson:"steps" json:"steps"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at" json:"updated_at"`
}

// JournalStore persists creation attempts so a partial failure can be cleaned
// up later instead of leaving orphaned rows forever.
type JournalStore interface {
	Begin(ctx context.Context, journal *CreationJournal) error
	Advance(ctx context.Context, id, state, conversationID string) error
	Commit(ctx context.Context, id string) error
	ListStale(ctx context.Context, olderThan time.Duration) ([]*CreationJournal, error)
	Remove(ctx context.Context, id string) error
}

type journalStore struct {
	collection *mongo.Collection
}

func NewJournalStore(mc *MongoClient) JournalStore {
	return &journalStore{
		collection: mc.Database.Collection("creation_journal"),
	}
}

func (s *journalStore) Begin(ctx context.Context, journal *CreationJournal) error {
	now := time.Now().UTC()
	journal.State = StatePending
	journal.Steps = map[string]time.Time{StatePending: now}
	journal.CreatedAt = now
	journal.UpdatedAt = now

	if _, err := s.collection.InsertOne(ctx, journal); err != nil {
		return fmt.Errorf("begin creation journal: %w", err)
	}
	return nil
}

func (s *journalStore) Advance(ctx context.Context, id, state, conversationID string) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"state":          state,
			"steps." + state: now,
			"updated_at":     now,
		},
	}
	if conversationID != "" {
		update["$set"].(bson.M)["conversation_id"] = conversationID
	}

	res, err := s.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("advance creation journal %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("creation journal %s not found", id)
	}
	return nil
}

func (s *journalStore) Commit(ctx context.Context, id string) error {
	return s.Advance(ctx, id, StateCommitted, "")
}

func (s *journalStore) ListStale(ctx context.Context, olderThan time.Duration) ([]*CreationJournal, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	filter := bson.M{
		"state":      bson.M{"$ne": StateCommitted},
		"updated_at": bson.M{"$lt": cutoff},
	}

	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list stale creation journals: %w", err)
	}
	defer cursor.Close(ctx)

	var journals []*CreationJournal
	if err := cursor.All(ctx, &journals); err != nil {
		return nil, fmt.Errorf("decode stale creation journals: %w", err)
	}
	return journals, nil
}

func (s *journalStore) Remove(ctx context.Context, id string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("remove creation journal %s: %w", id, err)
	}
	return nil
}
