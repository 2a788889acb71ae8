package eventlog

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Mongo stores entries in a MongoDB collection, one document per entry.
type Mongo struct {
	coll *mongo.Collection
}

// NewMongo creates a Mongo storage writing to the given collection.
// A compound index on (entity_type, entity_id, attribute, occurred_at)
// keeps queries cheap; create it with EnsureIndexes during startup.
func NewMongo(coll *mongo.Collection) *Mongo {
	return &Mongo{coll: coll}
}

// EnsureIndexes creates the query index. Safe to call on every startup.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "entity_type", Value: 1},
			{Key: "entity_id", Value: 1},
			{Key: "attribute", Value: 1},
			{Key: "occurred_at", Value: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("eventlog: create index: %w", err)
	}
	return nil
}

// Append inserts the entry as a new document.
func (m *Mongo) Append(ctx context.Context, entry Entry) error {
	if _, err := m.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("eventlog: insert entry: %w", err)
	}
	return nil
}

// Query returns the key's entries ordered by occurrence.
func (m *Mongo) Query(ctx context.Context, key Key) ([]Entry, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	filter := bson.D{
		{Key: "entity_type", Value: key.EntityType},
		{Key: "entity_id", Value: key.EntityID},
		{Key: "attribute", Value: key.Attribute},
	}
	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}})

	cursor, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("eventlog: find entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []Entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("eventlog: decode entries: %w", err)
	}
	return entries, nil
}
