package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Table   TableConfig   `mapstructure:"table"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type StoreConfig struct {
	// Mode selects the backend: memory, sqlite or postgres.
	Mode string `mapstructure:"mode"`
	// Path is the sqlite database file (sqlite mode only).
	Path string `mapstructure:"path"`
	// DSN is the postgres connection string (postgres mode only).
	DSN string `mapstructure:"dsn"`
}

// TableConfig holds the rule defaults of freshly created tables and the
// registry janitor policy.
type TableConfig struct {
	WithNines     bool          `mapstructure:"with_nines"`
	AllowUndo     bool          `mapstructure:"allow_undo"`
	AllowExchange bool          `mapstructure:"allow_exchange"`
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given YAML file, with DOKO3000_*
// environment variables overriding file values. A missing file is not an
// error when path is empty; every field has a usable default.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("store.mode", "memory")
	v.SetDefault("store.path", "doko3000.db")
	v.SetDefault("store.dsn", "")
	v.SetDefault("table.with_nines", true)
	v.SetDefault("table.allow_undo", true)
	v.SetDefault("table.allow_exchange", false)
	v.SetDefault("table.idle_ttl", 10*time.Minute)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetEnvPrefix("DOKO3000")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Table.IdleTTL <= 0 {
		return nil, fmt.Errorf("table.idle_ttl must be positive")
	}
	return &cfg, nil
}
