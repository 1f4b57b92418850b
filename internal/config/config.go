package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Artifact source names
const (
	SourceDir      = "dir"
	SourcePostgres = "postgres"
	SourceRedis    = "redis"
)

// Config holds all configuration for carprice-engine
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Artifacts ArtifactsConfig
	Database  DatabaseConfig
	Redis     RedisConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// ArtifactsConfig selects where the training artifacts are read from
type ArtifactsConfig struct {
	Source        string
	Dir           string
	ColumnsPath   string
	ScalerPath    string
	ModelPath     string
	ReferencePath string
	ModelID       string
	LoadTimeout   time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	DSN             string
	MigrationsDir   string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	dir := getEnv("ARTIFACTS_DIR", "./artifacts")

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Artifacts: ArtifactsConfig{
			Source:        getEnv("ARTIFACTS_SOURCE", SourceDir),
			Dir:           dir,
			ColumnsPath:   getEnv("ARTIFACT_COLUMNS_PATH", filepath.Join(dir, "expected_columns.yaml")),
			ScalerPath:    getEnv("ARTIFACT_SCALER_PATH", filepath.Join(dir, "scaler.yaml")),
			ModelPath:     getEnv("ARTIFACT_MODEL_PATH", filepath.Join(dir, "catboost_model.json")),
			ReferencePath: getEnv("ARTIFACT_REFERENCE_PATH", filepath.Join(dir, "Cars_Data.csv")),
			ModelID:       getEnv("MODEL_ID", "catboost"),
			LoadTimeout:   getEnvAsDuration("ARTIFACTS_LOAD_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_DSN", ""),
			MigrationsDir:   getEnv("DATABASE_MIGRATIONS_DIR", ""),
			MaxOpenConns:    getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 4),
			MaxIdleConns:    getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 0),
			MaxConnLifetime: getEnvAsDuration("DATABASE_MAX_CONN_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Address:   getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "carprice:artifact:"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %q (want json or text)", c.Log.Format)
	}

	switch c.Artifacts.Source {
	case SourceDir:
	case SourcePostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for postgres artifact source")
		}
	case SourceRedis:
		if c.Redis.Address == "" {
			return fmt.Errorf("redis address is required for redis artifact source")
		}
	default:
		return fmt.Errorf("invalid artifact source: %q", c.Artifacts.Source)
	}

	if c.Artifacts.LoadTimeout <= 0 {
		return fmt.Errorf("artifact load timeout must be positive")
	}

	return nil
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
