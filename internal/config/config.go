package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"  validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Upload   UploadConfig   `mapstructure:"upload"   validate:"required"`
	Timer    TimerConfig    `mapstructure:"timer"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Host                   string   `mapstructure:"host"                     validate:"required"`
	Port                   int      `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	LogLevel               string   `mapstructure:"log_level"                validate:"required,oneof=debug info warn error"`
	AllowedOrigins         []string `mapstructure:"allowed_origins"          validate:"dive,url"`
	ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// Storage backends
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// StorageConfig selects where tasks are persisted.
type StorageConfig struct {
	Backend  string `mapstructure:"backend"   validate:"required,oneof=memory file postgres sqlite"`
	FilePath string `mapstructure:"file_path" validate:"required_if=Backend file"`
}

// DatabaseConfig contains settings for the SQL backends.
type DatabaseConfig struct {
	URL         string `mapstructure:"url"          validate:"omitempty,url"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// UploadConfig controls image uploads.
type UploadConfig struct {
	Dir           string `mapstructure:"dir"             validate:"required"`
	MaxBytes      int64  `mapstructure:"max_bytes"       validate:"gt=0"`
	PublicBaseURL string `mapstructure:"public_base_url" validate:"required,url"`
}

// TimerConfig controls the server-side expiry sweep.
type TimerConfig struct {
	AutoComplete  bool   `mapstructure:"auto_complete"`
	SweepSchedule string `mapstructure:"sweep_schedule" validate:"required"`
}
