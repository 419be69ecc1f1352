package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(10<<20), cfg.Ingest.MaxSpreadsheetBytes)
	assert.Equal(t, int64(5<<20), cfg.Ingest.MaxDocumentBytes)
	assert.Equal(t, "BRL", cfg.Ingest.Currency)
	assert.Equal(t, 24*time.Hour, cfg.Storage.UploadRetention)
	assert.Equal(t, slog.LevelInfo, cfg.Observability.LogLevel)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("INGEST_CURRENCY", "usd")
	t.Setenv("STORAGE_UPLOAD_RETENTION", "2h")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "USD", cfg.Ingest.Currency)
	assert.Equal(t, 2*time.Hour, cfg.Storage.UploadRetention)
	assert.Equal(t, slog.LevelDebug, cfg.Observability.LogLevel)
	assert.False(t, cfg.Database.RunMigrations)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"port clash", func(c *Config) { c.Observability.MetricsPort = c.Server.Port }, "METRICS_PORT"},
		{"zero spreadsheet limit", func(c *Config) { c.Ingest.MaxSpreadsheetBytes = 0 }, "INGEST_MAX_SPREADSHEET_BYTES"},
		{"bad currency", func(c *Config) { c.Ingest.Currency = "REAL" }, "INGEST_CURRENCY"},
		{"no retention", func(c *Config) { c.Storage.UploadRetention = 0 }, "STORAGE_UPLOAD_RETENTION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:        ServerConfig{Port: 8080},
				Ingest:        IngestConfig{MaxSpreadsheetBytes: 1, MaxDocumentBytes: 1, Currency: "BRL"},
				Storage:       StorageConfig{UploadRetention: time.Hour},
				Observability: ObservabilityConfig{MetricsEnabled: true, MetricsPort: 9090},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
