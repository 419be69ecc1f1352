package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Ingest        IngestConfig
	Storage       StorageConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Database      string
	SSLMode       string
	MaxConns      int
	RunMigrations bool
}

type IngestConfig struct {
	MaxSpreadsheetBytes int64
	MaxDocumentBytes    int64
	Currency            string
	RulesFile           string
}

type StorageConfig struct {
	UploadsPath     string
	DocumentsPath   string
	UploadRetention time.Duration
	SweepSchedule   string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
	LogLevel       slog.Level
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			CORSOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:          getEnv("POSTGRES_HOST", "localhost"),
			Port:          getEnvAsInt("POSTGRES_PORT", 5432),
			User:          getEnv("POSTGRES_USER", "postgres"),
			Password:      getEnv("POSTGRES_PASSWORD", "postgres"),
			Database:      getEnv("POSTGRES_DB", "ledger"),
			SSLMode:       getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns:      getEnvAsInt("POSTGRES_MAX_CONNS", 25),
			RunMigrations: getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
		},
		Ingest: IngestConfig{
			MaxSpreadsheetBytes: int64(getEnvAsInt("INGEST_MAX_SPREADSHEET_BYTES", 10<<20)),
			MaxDocumentBytes:    int64(getEnvAsInt("INGEST_MAX_DOCUMENT_BYTES", 5<<20)),
			Currency:            strings.ToUpper(getEnv("INGEST_CURRENCY", "BRL")),
			RulesFile:           getEnv("INGEST_RULES_FILE", ""),
		},
		Storage: StorageConfig{
			UploadsPath:     getEnv("STORAGE_UPLOADS_PATH", "./data/uploads"),
			DocumentsPath:   getEnv("STORAGE_DOCUMENTS_PATH", "./data/documents"),
			UploadRetention: getEnvAsDuration("STORAGE_UPLOAD_RETENTION", 24*time.Hour),
			SweepSchedule:   getEnv("STORAGE_SWEEP_SCHEDULE", "@hourly"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
			LogLevel:       getEnvAsLogLevel("LOG_LEVEL", slog.LevelInfo),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT %d is out of range", c.Server.Port))
	}
	if c.Observability.MetricsEnabled && c.Observability.MetricsPort == c.Server.Port {
		errs = append(errs, errors.New("METRICS_PORT must differ from SERVER_PORT"))
	}
	if c.Ingest.MaxSpreadsheetBytes <= 0 {
		errs = append(errs, errors.New("INGEST_MAX_SPREADSHEET_BYTES must be positive"))
	}
	if c.Ingest.MaxDocumentBytes <= 0 {
		errs = append(errs, errors.New("INGEST_MAX_DOCUMENT_BYTES must be positive"))
	}
	if len(c.Ingest.Currency) != 3 {
		errs = append(errs, fmt.Errorf("INGEST_CURRENCY %q is not an ISO 4217 code", c.Ingest.Currency))
	}
	if c.Storage.UploadRetention <= 0 {
		errs = append(errs, errors.New("STORAGE_UPLOAD_RETENTION must be positive"))
	}
	return errors.Join(errs...)
}

// Addr returns the listen address of the API server
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsLogLevel(key string, defaultValue slog.Level) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv(key))); err == nil {
		return level
	}
	return defaultValue
}
