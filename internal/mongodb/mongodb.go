// Package mongodb opens the MongoDB deployment shared by the device registry and the report store.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"golang.beyond.io/tdi-ingest/internal/config"
	"golang.beyond.io/tdi-ingest/pkg/logx"
)

// Connect creates a client for the configured deployment and pings the primary.
//
// Parameters:
//   - ctx: Bounds the ping; the configured ConnectTimeout applies on top of it.
//   - c: The validated MongoDB configuration.
//
// Returns:
//   - The client and the configured database, or an error if the URI is invalid or the server is unreachable.
func Connect(ctx context.Context, c config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	timeout := config.MustDuration(c.ConnectTimeout)

	opts := options.Client().ApplyURI(c.URI)
	if timeout > 0 {
		opts.SetConnectTimeout(timeout)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logx.As().Info().
		Str("database", c.Database).
		Msg("Connected to MongoDB")

	return client, client.Database(c.Database), nil
}
