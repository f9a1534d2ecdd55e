package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database Configuration
	Database DatabaseConfig `json:"database"`

	// Sync backend Configuration
	Sync SyncConfig `json:"sync"`

	// Engine Configuration
	Engine EngineConfig `json:"engine"`

	// Push provider Configuration
	Push PushConfig `json:"push"`

	// Logging Configuration
	Logging LoggingConfig `json:"logging"`
}

// DatabaseConfig selects and configures the local store backend. The
// embedded engine defaults to a sqlite file owned by the store, mysql is
// kept for hosts that point several tools at one shared database.
type DatabaseConfig struct {
	Driver       string `json:"driver"` // sqlite or mysql
	Path         string `json:"path"`   // sqlite file path, ":memory:" for tests
	DSN          string `json:"dsn"`    // mysql only
	MaxOpenConns int    `json:"max_open_conns"`
	MaxIdleConns int    `json:"max_idle_conns"`
}

// SyncConfig points the engine at the message backend.
type SyncConfig struct {
	BaseURL          string        `json:"base_url"`
	PeriodicInterval time.Duration `json:"periodic_interval"`
	InitialDelay     time.Duration `json:"initial_delay"`
	TokenSecret      string        `json:"-"`
	TokenSubject     string        `json:"token_subject"`
}

// EngineConfig contains worker-pool and event fan-out sizing.
type EngineConfig struct {
	Workers          int `json:"workers"`            // number of background worker goroutines
	EventBufferSize  int `json:"event_buffer_size"`  // observer event channel buffer
	DispatchCapacity int `json:"dispatch_capacity"`  // UI-affine dispatcher backlog
}

// PushConfig selects the push capability probed at startup.
type PushConfig struct {
	Provider            string `json:"provider"` // fcm, hms or none
	ProjectID           string `json:"project_id"`
	CredentialsFilePath string `json:"credentials_file_path"`
	DeviceToken         string `json:"device_token"`
}

type LoggingConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// LoadConfig reads the whole configuration from the environment. Callers
// that want .env support load it via godotenv before calling this.
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:       getEnvOrDefault("DB_DRIVER", "sqlite"),
			Path:         getEnvOrDefault("DB_PATH", "messages.db"),
			DSN:          getEnvOrDefault("MYSQL_DSN", ""),
			MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 1),
			MaxIdleConns: getEnvIntOrDefault("DB_MAX_IDLE_CONNS", 1),
		},
		Sync: SyncConfig{
			BaseURL:          getEnvOrDefault("SYNC_BASE_URL", "http://localhost:8080"),
			PeriodicInterval: getEnvDurationOrDefault("SYNC_PERIODIC_INTERVAL", 15*time.Minute),
			InitialDelay:     getEnvDurationOrDefault("SYNC_INITIAL_DELAY", 5*time.Second),
			TokenSecret:      getEnvOrDefault("SYNC_TOKEN_SECRET", ""),
			TokenSubject:     getEnvOrDefault("SYNC_TOKEN_SUBJECT", "message-sync"),
		},
		Engine: EngineConfig{
			Workers:          getEnvIntOrDefault("ENGINE_WORKERS", 2),
			EventBufferSize:  getEnvIntOrDefault("ENGINE_EVENT_BUFFER_SIZE", 256),
			DispatchCapacity: getEnvIntOrDefault("ENGINE_DISPATCH_CAPACITY", 64),
		},
		Push: PushConfig{
			Provider:            getEnvOrDefault("PUSH_PROVIDER", "none"),
			ProjectID:           getEnvOrDefault("FIREBASE_PROJECT_ID", ""),
			CredentialsFilePath: getEnvOrDefault("FIREBASE_CREDENTIALS_FILE", ""),
			DeviceToken:         getEnvOrDefault("PUSH_DEVICE_TOKEN", ""),
		},
		Logging: LoggingConfig{
			Level:       getEnvOrDefault("LOG_LEVEL", "info"),
			Development: getEnvBoolOrDefault("LOG_DEVELOPMENT", false),
		},
	}
}

// Validate catches configurations that cannot possibly work before the
// engine starts scheduling anything.
func (cfg *Config) Validate() error {
	switch cfg.Database.Driver {
	case "sqlite":
		if cfg.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case "mysql":
		if cfg.Database.DSN == "" {
			return fmt.Errorf("MYSQL_DSN is required for the mysql driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}

	if cfg.Sync.BaseURL == "" {
		return fmt.Errorf("SYNC_BASE_URL must not be empty")
	}
	if cfg.Engine.Workers <= 0 {
		return fmt.Errorf("ENGINE_WORKERS must be positive, got %d", cfg.Engine.Workers)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
