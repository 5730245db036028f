package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. BUBBLETASKS_SERVER_PORT.
const EnvPrefix = "BUBBLETASKS"

// DefaultAllowedOrigins are the dev-server origins of the browser client.
var DefaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
	"http://localhost:5174",
	"http://127.0.0.1:5174",
}

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from config files.
// When configFile is empty, bubbletasks.yaml in the working directory is used
// if it exists.
// Returns a populated Config struct or an error if loading/validation fails.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("bubbletasks")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags and the rules that span sections.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Storage.Backend == BackendPostgres && c.Database.URL == "" {
		return fmt.Errorf("config validation failed: database.url is required for the postgres backend")
	}
	if c.Storage.Backend == BackendSQLite && c.Database.SQLitePath == "" {
		return fmt.Errorf("config validation failed: database.sqlite_path is required for the sqlite backend")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.allowed_origins", DefaultAllowedOrigins)
	v.SetDefault("server.shutdown_timeout_seconds", 10)

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.file_path", "data/tasks.json")

	v.SetDefault("database.url", "")
	v.SetDefault("database.sqlite_path", "data/bubbletasks.db")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_bytes", 5*1024*1024)
	v.SetDefault("upload.public_base_url", "http://localhost:3001")

	v.SetDefault("timer.auto_complete", false)
	v.SetDefault("timer.sweep_schedule", "@every 5s")
}
