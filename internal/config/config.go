package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"golang.beyond.io/tdi-ingest/pkg/logx"
)

const (
	SourceFTP   = "ftp"
	SourceS3    = "s3"
	SourceLocal = "local"

	RegistryMongo = "mongo"
	RegistryFile  = "file"

	StoreMongo    = "mongo"
	StorePostgres = "postgres"
)

// Config holds the global configuration for the application.
type Config struct {
	// Log contains logging-related configuration.
	Log *logx.LoggingConfig
	// Mongo is the MongoDB deployment shared by the mongo registry and store.
	Mongo *MongoConfig
	// Postgres is the PostgreSQL database used by the postgres store.
	Postgres *PostgresConfig
	// Lock configures the optional distributed cycle lock.
	Lock *LockConfig
	// Ops configures the optional metrics and health endpoint.
	Ops *OpsConfig
	// Pipelines is a list of pipeline configurations, one per drop directory.
	Pipelines []*PipelineConfig
}

// PipelineConfig holds the configuration for a single drop directory.
type PipelineConfig struct {
	// Name is the name of the pipeline.
	Name string
	// Description provides a brief description of the pipeline.
	Description string
	// Source is the remote drop directory.
	Source *SourceConfig
	// Scanner controls which files are picked up and how often.
	Scanner *ScannerConfig
	// Retry controls how often a file is attempted within one cycle.
	Retry *RetryConfig
	// ProcessedDir is the directory, relative to the source root, for accepted files.
	ProcessedDir string
	// ErrorDir is the directory, relative to the source root, for rejected files.
	ErrorDir string
	// IsolateFailures keeps the cycle going past a failed file instead of aborting it.
	IsolateFailures bool
	// Registry is the device registry used for validation and enrichment.
	Registry *RegistryConfig
	// Store is where enriched reports are persisted.
	Store *StoreConfig
}

// SourceConfig selects and configures the transport for the drop directory.
type SourceConfig struct {
	// Type is one of "ftp", "s3" or "local".
	Type string
	FTP  *FTPConfig
	S3   *BucketConfig
	// LocalDir is intended for development and testing.
	LocalDir *LocalDirConfig
}

// Root returns the source directory of the configured transport.
func (s *SourceConfig) Root() string {
	switch strings.ToLower(s.Type) {
	case SourceFTP:
		return s.FTP.Path
	case SourceS3:
		return s.S3.Prefix
	case SourceLocal:
		return s.LocalDir.Path
	}
	return ""
}

// Key identifies the drop directory independently of the pipeline reading it.
// Pipelines with the same key must not run cycles at the same time.
func (s *SourceConfig) Key() string {
	switch strings.ToLower(s.Type) {
	case SourceFTP:
		return fmt.Sprintf("ftp://%s:%d%s", strings.ToLower(s.FTP.Host), s.FTP.Port, path.Clean("/"+s.FTP.Path))
	case SourceS3:
		return fmt.Sprintf("s3://%s/%s/%s", s.S3.Endpoint, s.S3.Bucket, strings.Trim(s.S3.Prefix, "/"))
	case SourceLocal:
		return "file://" + filepath.Clean(s.LocalDir.Path)
	}
	return ""
}

// FTPConfig holds the connection settings of an FTP drop directory.
type FTPConfig struct {
	Host     string
	Port     int
	Path     string
	Username string
	// Password may name an environment variable holding the password.
	Password string
	// ExplicitTLS upgrades the control connection with AUTH TLS.
	ExplicitTLS bool
	// ConnectTimeout bounds establishing the control connection (e.g., "30s").
	ConnectTimeout string
	// PassiveTimeout bounds establishing each passive data connection (e.g., "30s").
	PassiveTimeout string
	// KeepAlive is the TCP keep-alive interval of the control connection (e.g., "30s").
	// No FTP NOOP commands are sent; a session lives for one cycle and the control
	// connection is busy with LIST, RETR and RNFR/RNTO throughout it.
	KeepAlive string
}

// BucketConfig holds the configuration for an S3 compatible bucket.
type BucketConfig struct {
	// Bucket is the name of the bucket.
	Bucket string
	// Region is the region of the bucket.
	Region string
	// Prefix is the object prefix acting as the drop directory.
	Prefix string
	// Endpoint is the endpoint for the bucket.
	Endpoint string
	// AccessKey names the environment variable holding the access key.
	AccessKey string
	// SecretKey names the environment variable holding the secret key.
	SecretKey string
	// UseSSL enables SSL for the bucket connection.
	UseSSL bool
}

// LocalDirConfig holds the configuration for a local directory.
type LocalDirConfig struct {
	// Path is the path to the local directory.
	Path string
	// Mode is the file mode for directories created under Path.
	Mode os.FileMode
}

// ScannerConfig holds the configuration for the directory lister.
type ScannerConfig struct {
	// Pattern is the glob a file name must match (e.g., "*.json").
	Pattern string
	// Interval specifies the polling interval (e.g., "1m").
	Interval string
}

// RetryConfig holds the configuration for retrying the handling of a file.
type RetryConfig struct {
	// Attempts is the total number of attempts per file.
	Attempts int
	// Delay is the wait between attempts, or the base wait for exponential backoff (e.g., "2s").
	Delay string
	// Strategy is "fixed" or "exponential".
	Strategy string
	// MaxDelay caps the exponential backoff (e.g., "30s").
	MaxDelay string
}

// RegistryConfig holds the configuration for the device registry.
type RegistryConfig struct {
	// Type is "mongo" or "file".
	Type string
	// Strict propagates registry lookup errors instead of treating them as "not found".
	Strict bool
	// Collection is the mongo collection holding devices.
	Collection string
	// Path is the YAML device file used by the "file" registry.
	Path string
}

// StoreConfig holds the configuration for the report store.
type StoreConfig struct {
	// Type is "mongo" or "postgres".
	Type string
	// Collection is the mongo collection holding reports.
	Collection string
	// Table is the postgres table holding reports.
	Table string
}

// MongoConfig holds the MongoDB connection settings.
type MongoConfig struct {
	// URI may be a connection string or the name of an environment variable holding one.
	URI string
	// Database is the database holding the devices and report collections.
	Database string
	// ConnectTimeout bounds the initial connection and ping (e.g., "10s").
	ConnectTimeout string
}

// PostgresConfig holds the PostgreSQL connection settings.
type PostgresConfig struct {
	// DSN may be a connection string or the name of an environment variable holding one.
	DSN string
}

// LockConfig holds the cycle lock configuration.
type LockConfig struct {
	Redis *RedisConfig
}

// RedisConfig holds the Redis settings of the distributed cycle lock.
type RedisConfig struct {
	Enabled bool
	Addr    string
	// Password names the environment variable holding the password.
	Password string
	DB       int
	// KeyPrefix is prepended to the drop directory key to form the lock key.
	KeyPrefix string
	// TTL is how long a lock is held if its owner dies (e.g., "10m").
	TTL string
}

// OpsConfig holds the configuration of the metrics and health endpoint.
type OpsConfig struct {
	Enabled bool
	// Address is the listen address (e.g., ":9102").
	Address string
}

var config = defaultConfig()

func defaultConfig() Config {
	return Config{
		Log: &logx.LoggingConfig{
			Level:          "Info",
			ConsoleLogging: true,
			FileLogging:    false,
		},
		Mongo:     &MongoConfig{},
		Postgres:  &PostgresConfig{},
		Lock:      &LockConfig{Redis: &RedisConfig{}},
		Ops:       &OpsConfig{},
		Pipelines: []*PipelineConfig{},
	}
}

// Initialize loads the configuration from the specified file.
//
// Parameters:
//   - path: The path to the configuration file.
//
// Returns:
//   - An error if the configuration cannot be loaded or is invalid.
func Initialize(path string) error {
	viper.Reset()
	viper.SetConfigFile(path)
	viper.SetEnvPrefix("tdi")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}

	cfg := defaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	initializeNestedStructs(&cfg)
	applyDefaults(&cfg)
	overrideWithEnvVars(&cfg)

	if err := Validate(&cfg); err != nil {
		return err
	}

	config = cfg
	return nil
}

// initializeNestedStructs ensures all nested structs are initialized.
func initializeNestedStructs(cfg *Config) {
	if cfg.Log == nil {
		cfg.Log = &logx.LoggingConfig{Level: "Info", ConsoleLogging: true}
	}
	if cfg.Mongo == nil {
		cfg.Mongo = &MongoConfig{}
	}
	if cfg.Postgres == nil {
		cfg.Postgres = &PostgresConfig{}
	}
	if cfg.Lock == nil {
		cfg.Lock = &LockConfig{}
	}
	if cfg.Lock.Redis == nil {
		cfg.Lock.Redis = &RedisConfig{}
	}
	if cfg.Ops == nil {
		cfg.Ops = &OpsConfig{}
	}

	for _, pipeline := range cfg.Pipelines {
		if pipeline.Source == nil {
			pipeline.Source = &SourceConfig{}
		}
		if pipeline.Source.FTP == nil {
			pipeline.Source.FTP = &FTPConfig{}
		}
		if pipeline.Source.S3 == nil {
			pipeline.Source.S3 = &BucketConfig{}
		}
		if pipeline.Source.LocalDir == nil {
			pipeline.Source.LocalDir = &LocalDirConfig{}
		}
		if pipeline.Scanner == nil {
			pipeline.Scanner = &ScannerConfig{}
		}
		if pipeline.Retry == nil {
			pipeline.Retry = &RetryConfig{}
		}
		if pipeline.Registry == nil {
			pipeline.Registry = &RegistryConfig{}
		}
		if pipeline.Store == nil {
			pipeline.Store = &StoreConfig{}
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Mongo.ConnectTimeout == "" {
		cfg.Mongo.ConnectTimeout = "10s"
	}
	if cfg.Lock.Redis.KeyPrefix == "" {
		cfg.Lock.Redis.KeyPrefix = "tdi:cycle:"
	}
	if cfg.Lock.Redis.TTL == "" {
		cfg.Lock.Redis.TTL = "10m"
	}
	if cfg.Ops.Address == "" {
		cfg.Ops.Address = ":9102"
	}

	for _, p := range cfg.Pipelines {
		if p.Source.Type == "" {
			p.Source.Type = SourceFTP
		}
		if p.Source.FTP.Port == 0 {
			p.Source.FTP.Port = 21
		}
		if p.Source.FTP.ConnectTimeout == "" {
			p.Source.FTP.ConnectTimeout = "30s"
		}
		if p.Source.FTP.PassiveTimeout == "" {
			p.Source.FTP.PassiveTimeout = "30s"
		}
		if p.Source.FTP.KeepAlive == "" {
			p.Source.FTP.KeepAlive = "30s"
		}
		if p.Source.LocalDir.Mode == 0 {
			p.Source.LocalDir.Mode = 0o755
		}
		if p.Scanner.Pattern == "" {
			p.Scanner.Pattern = "*.json"
		}
		if p.Scanner.Interval == "" {
			p.Scanner.Interval = "1m"
		}
		if p.Retry.Attempts == 0 {
			p.Retry.Attempts = 3
		}
		if p.Retry.Delay == "" {
			p.Retry.Delay = "2s"
		}
		if p.Retry.Strategy == "" {
			p.Retry.Strategy = "fixed"
		}
		if p.ProcessedDir == "" {
			p.ProcessedDir = "Processed"
		}
		if p.ErrorDir == "" {
			p.ErrorDir = "Error"
		}
		if p.Registry.Type == "" {
			p.Registry.Type = RegistryMongo
		}
		if p.Registry.Collection == "" {
			p.Registry.Collection = "devices"
		}
		if p.Store.Type == "" {
			p.Store.Type = StoreMongo
		}
		if p.Store.Collection == "" {
			p.Store.Collection = "metrics"
		}
		if p.Store.Table == "" {
			p.Store.Table = "traffic_reports"
		}
	}
}

// overrideWithEnvVars resolves secrets that are configured as environment variable names.
// Connection strings are only resolved when the configured value is a set environment variable,
// so a literal URI keeps working.
func overrideWithEnvVars(cfg *Config) {
	cfg.Mongo.URI = resolveIfSet(cfg.Mongo.URI)
	cfg.Postgres.DSN = resolveIfSet(cfg.Postgres.DSN)
	if cfg.Lock.Redis.Password != "" {
		cfg.Lock.Redis.Password = os.Getenv(cfg.Lock.Redis.Password)
	}

	for _, pipeline := range cfg.Pipelines {
		if pipeline.Source.FTP.Password != "" {
			pipeline.Source.FTP.Password = resolveIfSet(pipeline.Source.FTP.Password)
		}
		if pipeline.Source.S3.AccessKey != "" {
			pipeline.Source.S3.AccessKey = os.Getenv(pipeline.Source.S3.AccessKey)
		}
		if pipeline.Source.S3.SecretKey != "" {
			pipeline.Source.S3.SecretKey = os.Getenv(pipeline.Source.S3.SecretKey)
		}
	}
}

func resolveIfSet(v string) string {
	if v == "" {
		return v
	}
	if resolved, ok := os.LookupEnv(v); ok {
		return resolved
	}
	return v
}

// Get returns the loaded configuration.
//
// Returns:
//   - The global configuration.
func Get() Config {
	return config
}
