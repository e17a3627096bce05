// Package store persists enriched reports keyed by their content digest.
package store

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.beyond.io/tdi-ingest/internal/config"
	"golang.beyond.io/tdi-ingest/internal/core"
)

const (
	TypeMongo    = config.StoreMongo
	TypePostgres = config.StorePostgres
)

// New creates the report store configured for a pipeline.
//
// Parameters:
//   - ctx: Bounds schema and index creation.
//   - c: The store configuration of the pipeline.
//   - db: The MongoDB database, required by the mongo store.
//   - pg: The PostgreSQL settings, required by the postgres store.
func New(ctx context.Context, c *config.StoreConfig, db *mongo.Database, pg *config.PostgresConfig) (core.ReportStore, error) {
	switch strings.ToLower(c.Type) {
	case TypeMongo:
		if db == nil {
			return nil, fmt.Errorf("mongo store requires a database connection")
		}
		return NewMongo(ctx, db, c.Collection)
	case TypePostgres:
		return NewPostgres(ctx, pg.DSN, c.Table)
	default:
		return nil, fmt.Errorf("unsupported store type %q", c.Type)
	}
}
