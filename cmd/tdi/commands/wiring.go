package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.beyond.io/tdi-ingest/internal/config"
	"golang.beyond.io/tdi-ingest/internal/core"
	"golang.beyond.io/tdi-ingest/internal/lock"
	"golang.beyond.io/tdi-ingest/internal/mongodb"
	"golang.beyond.io/tdi-ingest/internal/pipeline"
	"golang.beyond.io/tdi-ingest/internal/registry"
	"golang.beyond.io/tdi-ingest/internal/retry"
	"golang.beyond.io/tdi-ingest/internal/store"
	"golang.beyond.io/tdi-ingest/internal/transport"
	"golang.beyond.io/tdi-ingest/pkg/logx"
)

// shared holds the connections used by more than one pipeline.
type shared struct {
	mongo    *mongo.Client
	db       *mongo.Database
	postgres *config.PostgresConfig
	redis    *lock.Redis
	lock     core.CycleLock
	stores   []core.ReportStore
}

func needsMongo(cfg config.Config) bool {
	for _, p := range cfg.Pipelines {
		if strings.EqualFold(p.Registry.Type, config.RegistryMongo) || strings.EqualFold(p.Store.Type, config.StoreMongo) {
			return true
		}
	}
	return false
}

func openShared(ctx context.Context, cfg config.Config) (*shared, error) {
	s := &shared{postgres: cfg.Postgres}

	if needsMongo(cfg) {
		client, db, err := mongodb.Connect(ctx, *cfg.Mongo)
		if err != nil {
			return nil, err
		}
		s.mongo = client
		s.db = db
	}

	// pipelines reading the same drop directory share a lock key, across processes with Redis
	if cfg.Lock.Redis.Enabled {
		s.redis = lock.NewRedisFromConfig(*cfg.Lock.Redis)
		s.lock = s.redis
		logx.As().Info().Str("addr", cfg.Lock.Redis.Addr).Msg("Using Redis cycle lock")
	} else {
		s.lock = lock.NewLocal()
	}

	return s, nil
}

// Close releases the stores and connections in reverse order of creation.
func (s *shared) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, st := range s.stores {
		if err := st.Close(ctx); err != nil {
			logx.As().Warn().Err(err).Str("store", st.Type()).Msg("Failed to close report store")
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			logx.As().Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
	if s.mongo != nil {
		if err := s.mongo.Disconnect(ctx); err != nil {
			logx.As().Warn().Err(err).Msg("Failed to disconnect from MongoDB")
		}
	}
}

// buildPipeline assembles the orchestrator of one configured pipeline.
func buildPipeline(ctx context.Context, p *config.PipelineConfig, s *shared, metrics *pipeline.Metrics) (*pipeline.Orchestrator, error) {
	tr, err := transport.New(p.Name, p.Source)
	if err != nil {
		return nil, err
	}

	lister, err := transport.NewLister(p.Scanner.Pattern)
	if err != nil {
		return nil, err
	}

	reg, err := registry.New(p.Registry, s.db)
	if err != nil {
		return nil, err
	}

	st, err := store.New(ctx, p.Store, s.db, s.postgres)
	if err != nil {
		return nil, err
	}
	s.stores = append(s.stores, st)

	policy, err := retry.NewPolicy(p.Retry.Strategy, config.MustDuration(p.Retry.Delay), config.MustDuration(p.Retry.MaxDelay))
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		Name:            p.Name,
		Root:            p.Source.Root(),
		Transport:       tr,
		Lister:          lister,
		Registry:        reg,
		Store:           st,
		Retrier:         retry.New(p.Retry.Attempts, policy),
		ProcessedDir:    p.ProcessedDir,
		ErrorDir:        p.ErrorDir,
		IsolateFailures: p.IsolateFailures,
		StrictRegistry:  p.Registry.Strict,
		Lock:            s.lock,
		LockKey:         p.Source.Key(),
		Metrics:         metrics,
	}

	o, err := pipeline.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	logx.As().Debug().
		Str("pipeline", p.Name).
		Str("transport", tr.Type()).
		Str("registry", reg.Type()).
		Str("store", st.Type()).
		Str("retry_policy", policy.String()).
		Msg("Pipeline assembled")

	return o, nil
}
