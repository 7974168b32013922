package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sweetpotato0/ragdeck/api"
	errorskg "github.com/sweetpotato0/ragdeck/errors"
	"github.com/sweetpotato0/ragdeck/history"
)

// MongoStore implements history.Store using MongoDB
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// MongoConfig holds MongoDB configuration
type MongoConfig struct {
	URI        string // MongoDB connection URI
	Database   string // Database name
	Collection string // Collection name
}

type mongoRecord struct {
	ID         string    `bson:"_id"`
	SessionID  string    `bson:"session_id,omitempty"`
	Query      string    `bson:"query"`
	Mode       string    `bson:"mode"`
	Response   string    `bson:"response"`
	Errors     []string  `bson:"errors,omitempty"`
	Dropped    int       `bson:"dropped"`
	DurationMS int64     `bson:"duration_ms"`
	CreatedAt  time.Time `bson:"created_at"`
}

// NewMongoStore connects and ensures the created_at index
func NewMongoStore(ctx context.Context, config *MongoConfig) (*MongoStore, error) {
	if config == nil {
		config = MongoConfigFromEnv()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collection := client.Database(config.Database).Collection(config.Collection)
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &MongoStore{client: client, collection: collection}, nil
}

// Add upserts a record
func (s *MongoStore) Add(ctx context.Context, r *history.Record) error {
	if r == nil {
		return fmt.Errorf("record cannot be nil")
	}
	r.Prepare()

	doc := mongoRecord{
		ID:         r.ID,
		SessionID:  r.SessionID,
		Query:      r.Query,
		Mode:       string(r.Mode),
		Response:   r.Response,
		Errors:     r.Errors,
		Dropped:    r.Dropped,
		DurationMS: r.Duration.Milliseconds(),
		CreatedAt:  r.CreatedAt,
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// Get returns one record
func (s *MongoStore) Get(ctx context.Context, id string) (*history.Record, error) {
	var doc mongoRecord
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("record %s: %w", id, errorskg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	return doc.record(), nil
}

// Search matches query case-insensitively against question and answer text
func (s *MongoStore) Search(ctx context.Context, query string, limit int) ([]*history.Record, error) {
	filter := bson.M{}
	if query != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(query), "$options": "i"}
		filter = bson.M{"$or": bson.A{
			bson.M{"query": pattern},
			bson.M{"response": pattern},
		}}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search records: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]*history.Record, 0)
	for cursor.Next(ctx) {
		var doc mongoRecord
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		out = append(out, doc.record())
	}
	return out, cursor.Err()
}

// Recent returns the newest records
func (s *MongoStore) Recent(ctx context.Context, limit int) ([]*history.Record, error) {
	return s.Search(ctx, "", limit)
}

// Clear removes all records
func (s *MongoStore) Clear(ctx context.Context) error {
	_, err := s.collection.DeleteMany(ctx, bson.M{})
	return err
}

// Count returns the number of records
func (s *MongoStore) Count(ctx context.Context) (int, error) {
	n, err := s.collection.CountDocuments(ctx, bson.M{})
	return int(n), err
}

// Close disconnects the client
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (d mongoRecord) record() *history.Record {
	return &history.Record{
		ID:        d.ID,
		SessionID: d.SessionID,
		Query:     d.Query,
		Mode:      api.QueryMode(d.Mode),
		Response:  d.Response,
		Errors:    d.Errors,
		Dropped:   d.Dropped,
		Duration:  time.Duration(d.DurationMS) * time.Millisecond,
		CreatedAt: d.CreatedAt.UTC(),
	}
}
