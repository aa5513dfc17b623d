package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := load(viper.New())

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, ":8080", cfg.Server.RunAddress)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "migrations", cfg.DB.Migrations)
	assert.Equal(t, float64(50), cfg.RateLimit.RPS)
	assert.Equal(t, 100, cfg.RateLimit.Burst)
	assert.Equal(t, 10*time.Second, cfg.Sync.CursorLag)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("RUN_ADDRESS", ":9090")
	t.Setenv("DATABASE_URI", "postgres://u:p@db:5432/offsync")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("CATALOG_FILE", "/etc/offsync/catalog.yaml")
	t.Setenv("PULL_CURSOR_LAG", "30s")

	cfg := load(viper.New())

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, ":9090", cfg.Server.RunAddress)
	assert.Equal(t, "postgres://u:p@db:5432/offsync", cfg.DB.DatabaseURI)
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/etc/offsync/catalog.yaml", cfg.CatalogFile)
	assert.Equal(t, 30*time.Second, cfg.Sync.CursorLag)
}
