package commands

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.beyond.io/tdi-ingest/internal/config"
	"golang.beyond.io/tdi-ingest/internal/lock"
)

func localConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Mongo:    &config.MongoConfig{},
		Postgres: &config.PostgresConfig{DSN: "postgres://%zz"},
		Lock:     &config.LockConfig{Redis: &config.RedisConfig{}},
		Pipelines: []*config.PipelineConfig{{
			Name: "local",
			Source: &config.SourceConfig{
				Type:     config.SourceLocal,
				LocalDir: &config.LocalDirConfig{Path: t.TempDir()},
			},
			Scanner:      &config.ScannerConfig{Pattern: "*.json", Interval: "1m"},
			Retry:        &config.RetryConfig{Attempts: 3, Delay: "2s", Strategy: "fixed"},
			ProcessedDir: "Processed",
			ErrorDir:     "Error",
			Registry:     &config.RegistryConfig{Type: config.RegistryFile, Path: "../../../internal/registry/testdata/devices.yaml"},
			Store:        &config.StoreConfig{Type: config.StorePostgres, Table: "traffic_reports"},
		}},
	}
}

func TestOpenShared_LocalLockWithoutRedis(t *testing.T) {
	cfg := localConfig(t)

	s, err := openShared(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &lock.Local{}, s.lock)
	assert.Nil(t, s.redis)
	assert.Nil(t, s.db, "no pipeline needs MongoDB")
	assert.Same(t, cfg.Postgres, s.postgres)
}

func TestOpenShared_RedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := localConfig(t)
	cfg.Lock.Redis = &config.RedisConfig{Enabled: true, Addr: mr.Addr(), KeyPrefix: "tdi:cycle:", TTL: "1m"}

	s, err := openShared(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()

	require.NotNil(t, s.redis)
	assert.Same(t, s.redis, s.lock)

	key := cfg.Pipelines[0].Source.Key()
	release, ok, err := s.lock.Acquire(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("tdi:cycle:"+key))
	release()
}

func TestBuildPipeline_UsesGivenPostgresConfig(t *testing.T) {
	cfg := localConfig(t)

	s, err := openShared(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()

	_, err = buildPipeline(context.Background(), cfg.Pipelines[0], s, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid URL escape", "the DSN comes from the configuration passed in")
}
