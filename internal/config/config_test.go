package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	cfg := Load()

	assert.Equal(t, "5000", cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, int64(50<<20), cfg.MaxMaterialBytes)
	assert.Contains(t, cfg.CORSOrigins, "http://localhost:3000")
	assert.Equal(t, "./data/virtualboard.db", cfg.BoltPath)
	assert.Equal(t, "local", cfg.BlobBackend)
	assert.Equal(t, time.Hour, cfg.DBConnMaxLifetime)
	assert.Equal(t, 30*time.Second, cfg.CleanupRetryDelay)
	assert.Empty(t, cfg.Warnings)
	assert.False(t, cfg.Production())
}

func TestLoadFromEnvAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("STORE_BACKEND=Mongo\nHTTP_PORT=9999\n"), 0o600))

	t.Setenv("ENV_FILE", envFile)
	t.Setenv("TOKEN_TTL", "nonsense")
	t.Setenv("RATE_LIMIT_PER_MIN", "30")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("BLOB_BACKEND", "B2")
	t.Setenv("B2_BUCKET", "vb-media")
	// godotenv does not override variables that are already set
	t.Setenv("HTTP_PORT", "7000")

	cfg := Load()
	t.Cleanup(func() { os.Unsetenv("STORE_BACKEND") })

	assert.Equal(t, "mongo", cfg.StoreBackend)
	assert.Equal(t, "7000", cfg.HTTPPort)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Len(t, cfg.Warnings, 1)
	assert.Equal(t, 30, cfg.RateLimitPerMin)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "b2", cfg.BlobBackend)
	assert.Equal(t, "vb-media", cfg.B2Bucket)
	assert.True(t, cfg.Production())
}

func TestLoadCollectsWarnings(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("DB_MAX_OPEN_CONNS", "lots")
	t.Setenv("CLEANUP_RETRY_DELAY", "soon")
	t.Setenv("REDIS_POOL_SIZE", "8")

	cfg := Load()

	assert.Equal(t, 10, cfg.DBMaxOpenConns)
	assert.Equal(t, 30*time.Second, cfg.CleanupRetryDelay)
	assert.Equal(t, 8, cfg.RedisPoolSize)
	require.Len(t, cfg.Warnings, 2)
	assert.Contains(t, cfg.Warnings[0], "DB_MAX_OPEN_CONNS")
	assert.Contains(t, cfg.Warnings[1], "CLEANUP_RETRY_DELAY")
}
