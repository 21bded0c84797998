// internal/config/config.go
// Configuration management using environment variables and optional config files

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Environment string
	DebugMode   bool
	Server      ServerConfig
	Storage     StorageConfig
	Room        RoomConfig
	Admin       AdminConfig
}

// ServerConfig contains HTTP/WebSocket gateway settings.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	FrontendURL     string
	MaintenanceMode bool
}

// StorageConfig selects and configures the KVStore backend (spec.md §6
// KVStore) plus the Redis connection the Redis PeerChannel transport
// shares with it.
type StorageConfig struct {
	KVBackend string // "memory", "redis", or "mongo"
	KeyPrefix string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MongoURI      string
	MongoDatabase string
}

// RoomConfig holds the Persistence Adapter's lifecycle knobs (spec.md
// §4.5) and the sync protocol's heartbeat interval (spec.md §4.4).
type RoomConfig struct {
	RetentionDays     int
	PersistDebounceMs int
	HeartbeatMs       int
}

// AdminConfig holds the optional admin-token signing secret. The signed
// JWT envelope it produces is a tamper-evident convenience only; opaque
// token equality remains the sole reclaim authority (spec.md §4.5).
type AdminConfig struct {
	TokenSigningSecret string
}

// Load reads configuration from environment variables, optionally
// preloaded from a .env file for local development.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		DebugMode:   getBoolOrDefault("DEBUG_MODE", false),
		Server: ServerConfig{
			Port:            getEnvOrDefault("PORT", "8080"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
			FrontendURL:     getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
			MaintenanceMode: getBoolOrDefault("MAINTENANCE_MODE", false),
		},
		Storage: StorageConfig{
			KVBackend:     getEnvOrDefault("KV_BACKEND", "memory"),
			KeyPrefix:     getEnvOrDefault("KV_KEY_PREFIX", "seedless_"),
			RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
			RedisDB:       getIntOrDefault("REDIS_DB", 0),
			MongoURI:      getEnvOrDefault("MONGO_URI", ""),
			MongoDatabase: getEnvOrDefault("MONGO_DATABASE", "seedless"),
		},
		Room: RoomConfig{
			RetentionDays:     getIntOrDefault("ROOM_RETENTION_DAYS", 30),
			PersistDebounceMs: getIntOrDefault("PERSIST_DEBOUNCE_MS", 1000),
			HeartbeatMs:       getIntOrDefault("HEARTBEAT_INTERVAL_MS", 10000),
		},
		Admin: AdminConfig{
			TokenSigningSecret: getEnvOrDefault("ADMIN_TOKEN_SIGNING_SECRET", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration is present and
// internally consistent.
func (c *Config) Validate() error {
	switch c.Storage.KVBackend {
	case "memory":
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when KV_BACKEND=redis")
		}
	case "mongo":
		if c.Storage.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when KV_BACKEND=mongo")
		}
	default:
		return fmt.Errorf("unrecognized KV_BACKEND %q", c.Storage.KVBackend)
	}
	if c.Room.RetentionDays <= 0 {
		return fmt.Errorf("ROOM_RETENTION_DAYS must be positive")
	}
	if c.Environment == "production" && c.Storage.KVBackend != "memory" && c.Admin.TokenSigningSecret == "" {
		return fmt.Errorf("ADMIN_TOKEN_SIGNING_SECRET is required in production with a durable KV_BACKEND")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
