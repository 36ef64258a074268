package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/viper"
)

type Config struct {
	Database     string `mapstructure:"database"`
	Output       string `mapstructure:"output"`
	Workers      int    `mapstructure:"workers"`
	CacheEntries int    `mapstructure:"cache_entries"`
	NoProgress   bool   `mapstructure:"no_progress"`
	LogLevel     string `mapstructure:"log_level"`
	LogFormat    string `mapstructure:"log_format"`
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Load initializes and loads configuration from file and BFSTOOL_ environment variables.
// Values are not validated here; callers merge flag overrides first and then call Validate
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("database", "bfs.db")
	v.SetDefault("output", "extracted")
	v.SetDefault("workers", 4)
	v.SetDefault("cache_entries", 64)
	v.SetDefault("no_progress", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetEnvPrefix("bfstool")
	v.AutomaticEnv()

	// Config file handling
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigName("bfstool")
		v.SetConfigType("yaml")
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks values that viper cannot type-check on its own
func (c *Config) Validate() error {
	if !slices.Contains(logLevels, c.LogLevel) {
		return fmt.Errorf("unknown log level %q (valid: %v)", c.LogLevel, logLevels)
	}
	if !slices.Contains(logFormats, c.LogFormat) {
		return fmt.Errorf("unknown log format %q (valid: %v)", c.LogFormat, logFormats)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers cannot be negative: %d", c.Workers)
	}
	if c.CacheEntries < 0 {
		return fmt.Errorf("cache entries cannot be negative: %d", c.CacheEntries)
	}

	return nil
}
