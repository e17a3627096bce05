// Package registry implements device lookups against MongoDB or a YAML device file.
package registry

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.beyond.io/tdi-ingest/internal/config"
	"golang.beyond.io/tdi-ingest/internal/core"
)

const (
	TypeMongo = config.RegistryMongo
	TypeFile  = config.RegistryFile
)

// New creates the device registry configured for a pipeline.
// db is only used by the mongo registry and may be nil otherwise.
func New(c *config.RegistryConfig, db *mongo.Database) (core.DeviceRegistry, error) {
	switch strings.ToLower(c.Type) {
	case TypeMongo:
		if db == nil {
			return nil, fmt.Errorf("mongo registry requires a database connection")
		}
		return NewMongo(db.Collection(c.Collection)), nil
	case TypeFile:
		return NewFile(c.Path)
	default:
		return nil, fmt.Errorf("unsupported registry type %q", c.Type)
	}
}
