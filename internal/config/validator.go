package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Validate checks the whole configuration.
//
// Parameters:
//   - cfg: The configuration to validate, with defaults already applied.
//
// Returns:
//   - The first problem found, prefixed with the pipeline it belongs to, otherwise nil.
func Validate(cfg *Config) error {
	if len(cfg.Pipelines) == 0 {
		return errors.New("no pipelines configured")
	}

	seen := map[string]bool{}
	needsMongo := false
	needsPostgres := false
	for _, p := range cfg.Pipelines {
		if p.Name == "" {
			return errors.New("missing pipeline Name in configuration")
		}
		if seen[p.Name] {
			return errors.Errorf("duplicate pipeline name %q", p.Name)
		}
		seen[p.Name] = true

		if err := ValidatePipelineConfig(p); err != nil {
			return errors.Wrapf(err, "pipeline %q", p.Name)
		}

		needsMongo = needsMongo || strings.EqualFold(p.Registry.Type, RegistryMongo) || strings.EqualFold(p.Store.Type, StoreMongo)
		needsPostgres = needsPostgres || strings.EqualFold(p.Store.Type, StorePostgres)
	}

	if needsMongo {
		if err := ValidateMongoConfig(*cfg.Mongo); err != nil {
			return err
		}
	}
	if needsPostgres && cfg.Postgres.DSN == "" {
		return errors.New("missing Postgres DSN in configuration")
	}

	if cfg.Lock.Redis.Enabled {
		if cfg.Lock.Redis.Addr == "" {
			return errors.New("missing Redis Addr in lock configuration")
		}
		if err := ValidatePositiveDuration("lock TTL", cfg.Lock.Redis.TTL); err != nil {
			return err
		}
	}

	return nil
}

// ValidatePipelineConfig validates a single pipeline.
func ValidatePipelineConfig(p *PipelineConfig) error {
	switch strings.ToLower(p.Source.Type) {
	case SourceFTP:
		if err := ValidateFTPConfig(*p.Source.FTP); err != nil {
			return err
		}
	case SourceS3:
		if err := ValidateBucketConfig(*p.Source.S3); err != nil {
			return err
		}
	case SourceLocal:
		if p.Source.LocalDir.Path == "" {
			return errors.New("missing LocalDir Path in configuration")
		}
	default:
		return errors.Errorf("unsupported source type %q", p.Source.Type)
	}

	if err := ValidatePositiveDuration("scanner interval", p.Scanner.Interval); err != nil {
		return err
	}
	if err := ValidateRetryConfig(*p.Retry); err != nil {
		return err
	}

	if p.ProcessedDir == p.ErrorDir {
		return errors.Errorf("ProcessedDir and ErrorDir must differ, both are %q", p.ProcessedDir)
	}
	if strings.Contains(p.ProcessedDir, "/") || strings.Contains(p.ErrorDir, "/") {
		return errors.New("ProcessedDir and ErrorDir must be plain directory names")
	}

	switch strings.ToLower(p.Registry.Type) {
	case RegistryMongo:
	case RegistryFile:
		if p.Registry.Path == "" {
			return errors.New("missing Registry Path in configuration")
		}
	default:
		return errors.Errorf("unsupported registry type %q", p.Registry.Type)
	}

	switch strings.ToLower(p.Store.Type) {
	case StoreMongo, StorePostgres:
	default:
		return errors.Errorf("unsupported store type %q", p.Store.Type)
	}

	return nil
}

// ValidateFTPConfig validates the FTP source configuration.
func ValidateFTPConfig(c FTPConfig) error {
	if c.Host == "" {
		return errors.New("missing FTP Host in configuration")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid FTP Port %d", c.Port)
	}
	if c.Username == "" {
		return errors.New("missing FTP Username in configuration")
	}
	if err := ValidateDuration("FTP ConnectTimeout", c.ConnectTimeout); err != nil {
		return err
	}
	if err := ValidateDuration("FTP PassiveTimeout", c.PassiveTimeout); err != nil {
		return err
	}
	return ValidateDuration("FTP KeepAlive", c.KeepAlive)
}

// ValidateBucketConfig validates the S3 bucket configuration.
//
// Parameters:
//   - bucketConfig: The configuration to validate.
//
// Returns:
//   - An error if any required field is missing, otherwise nil.
func ValidateBucketConfig(bucketConfig BucketConfig) error {
	if bucketConfig.AccessKey == "" {
		return errors.New("missing AccessKey in configuration")
	}
	if bucketConfig.SecretKey == "" {
		return errors.New("missing SecretKey in configuration")
	}
	if bucketConfig.Bucket == "" {
		return errors.New("missing Bucket in configuration")
	}
	if bucketConfig.Region == "" {
		return errors.New("missing Region in configuration")
	}
	if bucketConfig.Endpoint == "" {
		return errors.New("missing Endpoint in configuration")
	}
	return nil
}

// ValidateRetryConfig validates the retry configuration.
func ValidateRetryConfig(c RetryConfig) error {
	if c.Attempts < 1 {
		return errors.Errorf("retry Attempts must be at least 1, got %d", c.Attempts)
	}
	if err := ValidateDuration("retry Delay", c.Delay); err != nil {
		return err
	}
	switch strings.ToLower(c.Strategy) {
	case "fixed":
	case "exponential":
		if c.MaxDelay != "" {
			return ValidateDuration("retry MaxDelay", c.MaxDelay)
		}
	default:
		return errors.Errorf("unsupported retry Strategy %q", c.Strategy)
	}
	return nil
}

// ValidateMongoConfig validates the MongoDB connection settings.
func ValidateMongoConfig(c MongoConfig) error {
	if c.URI == "" {
		return errors.New("missing Mongo URI in configuration")
	}
	if c.Database == "" {
		return errors.New("missing Mongo Database in configuration")
	}
	return ValidateDuration("Mongo ConnectTimeout", c.ConnectTimeout)
}

// ValidateDuration checks that value parses as a non-negative duration.
func ValidateDuration(name string, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return errors.Wrapf(err, "invalid %s", name)
	}
	if d < 0 {
		return errors.Errorf("invalid %s: must not be negative", name)
	}
	return nil
}

// ValidatePositiveDuration checks that value parses as a duration greater than zero.
func ValidatePositiveDuration(name string, value string) error {
	if err := ValidateDuration(name, value); err != nil {
		return err
	}
	if MustDuration(value) == 0 {
		return errors.Errorf("invalid %s: must be greater than zero", name)
	}
	return nil
}

// MustDuration parses a duration that has already been validated.
func MustDuration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}
