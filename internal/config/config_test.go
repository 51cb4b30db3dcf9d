package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_USER", "mock")
	t.Setenv("DB_NAME", "mockapi")
	t.Setenv("JWT_SECRET", "s3cret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.AccessTTL)
	assert.Equal(t, 14*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 10*time.Minute, cfg.RotateWindow)
	assert.Equal(t, 100*time.Millisecond, cfg.ConflictBackoff)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("DB_USER", "mock")
	t.Setenv("DB_NAME", "mockapi")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestValidateRejectsRefreshShorterThanAccess(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCESS_TOKEN_TTL", "48h")
	t.Setenv("REFRESH_TOKEN_TTL", "24h")

	_, err := Load()
	require.ErrorContains(t, err, "REFRESH_TOKEN_TTL")
}

func TestLoadDotEnvMissingFileIsIgnored(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("MOCKAPI_DOTENV_PROBE=file\n"), 0o600))
	t.Setenv("MOCKAPI_DOTENV_PROBE", "process")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "process", os.Getenv("MOCKAPI_DOTENV_PROBE"))
}

func TestRateLimitNormalize(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c, err := LoadRateLimitConfig()
	require.NoError(t, err)
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 10*time.Second, c.TTL)
}

func TestCacheMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")

	c, err := LoadCacheConfig()
	require.NoError(t, err)
	assert.True(t, c.Caches("GET"))
	assert.True(t, c.Caches("HEAD"))
	assert.False(t, c.Caches("POST"))
}

func TestRedisAddress(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Addr: "localhost:6379", Host: "cache", Port: "6380"}.Address())
	assert.Equal(t, "localhost:6379", RedisConfig{Addr: "localhost:6379", Host: "cache"}.Address())
}

func TestBrokerURL(t *testing.T) {
	assert.Equal(t, "amqp://a", AMQPConfig{URL: "amqp://a", FallbackURL: "amqp://b"}.BrokerURL())
	assert.Equal(t, "amqp://b", AMQPConfig{FallbackURL: "amqp://b"}.BrokerURL())
}

func TestLoadDatabaseConfigWithoutSecret(t *testing.T) {
	t.Setenv("DB_USER", "mock")
	t.Setenv("DB_NAME", "mockapi")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("JWT_SECRET", "")

	c, err := LoadDatabaseConfig()
	require.NoError(t, err)
	assert.Equal(t, "3307", c.DBPort)
	assert.Equal(t, "127.0.0.1", c.DBHost)
}
