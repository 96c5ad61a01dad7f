package mongo

import (
	"context"
	"fmt"

	"tprmgrc/internal/events"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// JournalCollection receives every published event
const JournalCollection = "contract_events"

// EnsureJournalIndexes creates the unique event id index and the lookup
// index by contract
func (m *MongoInternal) EnsureJournalIndexes(ctx context.Context) error {
	_, err := m.db.Collection(JournalCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "contract_id", Value: 1}, {Key: "at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("creating journal indexes: %w", err)
	}
	return nil
}

// AppendEvent stores ev once; replaying the same event id is a no-op
func (m *MongoInternal) AppendEvent(ctx context.Context, ev events.Event) error {
	_, err := m.db.Collection(JournalCollection).UpdateOne(ctx,
		bson.M{"event_id": ev.ID},
		bson.M{"$setOnInsert": ev},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("appending event %s: %w", ev.ID, err)
	}
	return nil
}

// ContractEvents returns the journal of a contract, newest first
func (m *MongoInternal) ContractEvents(ctx context.Context, contractID int64, limit int64) ([]events.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := m.db.Collection(JournalCollection).Find(ctx, bson.M{"contract_id": contractID}, opts)
	if err != nil {
		return nil, fmt.Errorf("reading journal of contract %d: %w", contractID, err)
	}
	defer cur.Close(ctx)

	out := []events.Event{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decoding journal of contract %d: %w", contractID, err)
	}
	return out, nil
}
