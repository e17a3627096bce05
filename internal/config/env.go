package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// envBindings maps configuration keys to the environment variables of the env-only mode.
var envBindings = map[string][]string{
	"ftp.host":           {"FTP_HOST"},
	"ftp.port":           {"FTP_PORT"},
	"ftp.user":           {"FTP_USER"},
	"ftp.password":       {"FTP_PASSWORD"},
	"ftp.path":           {"FTP_PATH"},
	"ftp.tls":            {"FTP_TLS"},
	"ftp.connecttimeout": {"TDI_CONNECT_TIMEOUT"},
	"ftp.passivetimeout": {"TDI_PASSIVE_TIMEOUT"},
	"ftp.keepalive":      {"TDI_KEEPALIVE"},
	"mongo.uri":          {"MONGO_URI", "DB_CONNECTION"},
	"mongo.database":     {"MONGO_DATABASE"},
	"retry.attempts":     {"TDI_RETRY_ATTEMPTS"},
	"retry.delay":        {"TDI_RETRY_DELAY"},
	"scanner.interval":   {"TDI_INTERVAL"},
	"log.level":          {"TDI_LOG_LEVEL"},
}

// InitializeFromEnv builds a single FTP pipeline backed by MongoDB from environment variables.
// It is used when no configuration file is given.
//
// Returns:
//   - An error if a required variable is missing or a value is invalid.
func InitializeFromEnv() error {
	v := viper.New()
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	v.SetDefault("ftp.port", 21)
	v.SetDefault("ftp.path", "/")
	v.SetDefault("mongo.database", "tdi")
	v.SetDefault("log.level", "Info")

	cfg := defaultConfig()
	cfg.Log.Level = v.GetString("log.level")
	cfg.Mongo.URI = v.GetString("mongo.uri")
	cfg.Mongo.Database = v.GetString("mongo.database")
	cfg.Pipelines = []*PipelineConfig{
		{
			Name:        "default",
			Description: "FTP drop directory configured from the environment",
			Source: &SourceConfig{
				Type: SourceFTP,
				FTP: &FTPConfig{
					Host:           v.GetString("ftp.host"),
					Port:           v.GetInt("ftp.port"),
					Path:           v.GetString("ftp.path"),
					Username:       v.GetString("ftp.user"),
					Password:       v.GetString("ftp.password"),
					ExplicitTLS:    v.GetBool("ftp.tls"),
					ConnectTimeout: v.GetString("ftp.connecttimeout"),
					PassiveTimeout: v.GetString("ftp.passivetimeout"),
					KeepAlive:      v.GetString("ftp.keepalive"),
				},
			},
			Scanner: &ScannerConfig{Interval: v.GetString("scanner.interval")},
			Retry: &RetryConfig{
				Attempts: v.GetInt("retry.attempts"),
				Delay:    v.GetString("retry.delay"),
			},
		},
	}

	initializeNestedStructs(&cfg)
	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return err
	}

	config = cfg
	return nil
}
