package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"golang.beyond.io/tdi-ingest/internal/core"
	"golang.beyond.io/tdi-ingest/pkg/logx"
)

// reportCollection is the part of *mongo.Collection used by the store, which also allows for mocking in tests.
type reportCollection interface {
	ReplaceOne(ctx context.Context, filter any, replacement any, opts ...options.Lister[options.ReplaceOptions]) (*mongo.UpdateResult, error)
}

type mongoStore struct {
	coll reportCollection
	name string
}

// NewMongo returns a store writing to the given collection of db.
// A unique index on "hash" is created if it does not exist yet.
func NewMongo(ctx context.Context, db *mongo.Database, collection string) (core.ReportStore, error) {
	coll := db.Collection(collection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "hash", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("hash_unique"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create hash index on %s: %w", collection, err)
	}

	logx.As().Debug().
		Str("store_type", TypeMongo).
		Str("collection", collection).
		Msg("Report collection ready")

	return &mongoStore{coll: coll, name: collection}, nil
}

func (s *mongoStore) Type() string {
	return TypeMongo
}

// Upsert replaces the document stored under digest, or inserts it.
func (s *mongoStore) Upsert(ctx context.Context, digest string, record *core.EnrichedRecord) error {
	doc := bsonValue(record.Document()).(map[string]any)
	doc["hash"] = digest

	res, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "hash", Value: digest}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return err
	}

	logx.As().Trace().
		Str("store_type", TypeMongo).
		Str("digest", digest).
		Int64("matched", res.MatchedCount).
		Int64("upserted", res.UpsertedCount).
		Msg("Report upserted")

	return nil
}

// Close is a no-op; the client is shared and disconnected by its owner.
func (s *mongoStore) Close(ctx context.Context) error {
	return nil
}

// bsonValue converts decoded JSON numbers to int64 or float64 so they are stored as BSON numbers.
func bsonValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = bsonValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = bsonValue(val)
		}
		return out
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}
