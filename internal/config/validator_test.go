package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateBucketConfig(t *testing.T) {
	tests := []struct {
		name        string
		config      BucketConfig
		expectedErr string
	}{
		{
			name: "Valid configuration",
			config: BucketConfig{
				AccessKey: "test-access-key",
				SecretKey: "test-secret-key",
				Bucket:    "test-bucket",
				Region:    "test-region",
				Endpoint:  "test-endpoint",
			},
			expectedErr: "",
		},
		{
			name: "Missing AccessKey",
			config: BucketConfig{
				SecretKey: "test-secret-key",
				Bucket:    "test-bucket",
				Region:    "test-region",
				Endpoint:  "test-endpoint",
			},
			expectedErr: "missing AccessKey in configuration",
		},
		{
			name: "Missing SecretKey",
			config: BucketConfig{
				AccessKey: "test-access-key",
				Bucket:    "test-bucket",
				Region:    "test-region",
				Endpoint:  "test-endpoint",
			},
			expectedErr: "missing SecretKey in configuration",
		},
		{
			name: "Missing Bucket",
			config: BucketConfig{
				AccessKey: "test-access-key",
				SecretKey: "test-secret-key",
				Region:    "test-region",
				Endpoint:  "test-endpoint",
			},
			expectedErr: "missing Bucket in configuration",
		},
		{
			name: "Missing Region",
			config: BucketConfig{
				AccessKey: "test-access-key",
				SecretKey: "test-secret-key",
				Bucket:    "test-bucket",
				Endpoint:  "test-endpoint",
			},
			expectedErr: "missing Region in configuration",
		},
		{
			name: "Missing Endpoint",
			config: BucketConfig{
				AccessKey: "test-access-key",
				SecretKey: "test-secret-key",
				Bucket:    "test-bucket",
				Region:    "test-region",
			},
			expectedErr: "missing Endpoint in configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBucketConfig(tt.config)
			if tt.expectedErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.expectedErr)
			}
		})
	}
}

func validPipeline() *PipelineConfig {
	cfg := Config{Pipelines: []*PipelineConfig{{
		Name: "p",
		Source: &SourceConfig{
			Type:     SourceLocal,
			LocalDir: &LocalDirConfig{Path: "/var/tdi"},
		},
	}}}
	initializeNestedStructs(&cfg)
	applyDefaults(&cfg)
	return cfg.Pipelines[0]
}

func TestValidatePipelineConfig(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(p *PipelineConfig)
		expectedErr string
	}{
		{
			name:   "Valid configuration",
			mutate: func(p *PipelineConfig) {},
		},
		{
			name:        "Unknown source",
			mutate:      func(p *PipelineConfig) { p.Source.Type = "sftp" },
			expectedErr: `unsupported source type "sftp"`,
		},
		{
			name: "FTP without host",
			mutate: func(p *PipelineConfig) {
				p.Source.Type = SourceFTP
				p.Source.FTP.Username = "u"
			},
			expectedErr: "missing FTP Host in configuration",
		},
		{
			name:        "Bad interval",
			mutate:      func(p *PipelineConfig) { p.Scanner.Interval = "every minute" },
			expectedErr: "invalid scanner interval",
		},
		{
			name:        "Zero interval",
			mutate:      func(p *PipelineConfig) { p.Scanner.Interval = "0s" },
			expectedErr: "invalid scanner interval: must be greater than zero",
		},
		{
			name:        "Zero attempts",
			mutate:      func(p *PipelineConfig) { p.Retry.Attempts = -1 },
			expectedErr: "retry Attempts must be at least 1",
		},
		{
			name:        "Unknown strategy",
			mutate:      func(p *PipelineConfig) { p.Retry.Strategy = "random" },
			expectedErr: `unsupported retry Strategy "random"`,
		},
		{
			name:        "Same terminal dirs",
			mutate:      func(p *PipelineConfig) { p.ErrorDir = "Processed" },
			expectedErr: "ProcessedDir and ErrorDir must differ",
		},
		{
			name:        "Nested terminal dir",
			mutate:      func(p *PipelineConfig) { p.ErrorDir = "a/b" },
			expectedErr: "must be plain directory names",
		},
		{
			name:        "File registry without path",
			mutate:      func(p *PipelineConfig) { p.Registry.Type = RegistryFile },
			expectedErr: "missing Registry Path",
		},
		{
			name:        "Unknown store",
			mutate:      func(p *PipelineConfig) { p.Store.Type = "cassandra" },
			expectedErr: `unsupported store type "cassandra"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPipeline()
			tt.mutate(p)
			err := ValidatePipelineConfig(p)
			if tt.expectedErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.expectedErr)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	assert.EqualError(t, Validate(&cfg), "no pipelines configured")

	cfg.Pipelines = []*PipelineConfig{validPipeline(), validPipeline()}
	initializeNestedStructs(&cfg)
	assert.EqualError(t, Validate(&cfg), `duplicate pipeline name "p"`)

	cfg.Pipelines = cfg.Pipelines[:1]
	assert.EqualError(t, Validate(&cfg), "missing Mongo URI in configuration")

	cfg.Mongo = &MongoConfig{URI: "mongodb://localhost", Database: "tdi", ConnectTimeout: "5s"}
	assert.NoError(t, Validate(&cfg))

	cfg.Lock.Redis = &RedisConfig{Enabled: true, Addr: "localhost:6379", TTL: "0s"}
	assert.EqualError(t, Validate(&cfg), "invalid lock TTL: must be greater than zero")

	cfg.Lock.Redis.TTL = "5m"
	assert.NoError(t, Validate(&cfg))

	cfg.Pipelines[0].Source.Type = "sftp"
	assert.ErrorContains(t, Validate(&cfg), `pipeline "p": unsupported source type`)
}

func TestValidateDuration(t *testing.T) {
	assert.NoError(t, ValidateDuration("x", "2s"))
	assert.Error(t, ValidateDuration("x", ""))
	assert.EqualError(t, ValidateDuration("x", "-1s"), "invalid x: must not be negative")
	assert.Equal(t, 90*time.Second, MustDuration("1m30s"))

	assert.NoError(t, ValidatePositiveDuration("x", "1m"))
	assert.EqualError(t, ValidatePositiveDuration("x", "0s"), "invalid x: must be greater than zero")
	assert.Error(t, ValidatePositiveDuration("x", "-1s"))
}
