package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MemoryBackendDefaults(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("SEED_USERS_FILE", "seed_users.example.json")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.StorageBackend)
	assert.Equal(t, "seed_users.example.json", cfg.SeedUsersFile)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTokenTTL)
	assert.Equal(t, "booking.exchange", cfg.RabbitMQExchange)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Empty(t, cfg.RedisAddr)
	assert.False(t, cfg.IsProduction)
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	assert.ErrorContains(t, err, "DB_DSN")
}

func TestLoad_MemoryRequiresSeedFile(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("SEED_USERS_FILE", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	assert.ErrorContains(t, err, "SEED_USERS_FILE")
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("SEED_USERS_FILE", "users.json")
	t.Setenv("JWT_SECRET", "secret")

	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("STORAGE_BACKEND", "sqlite")
		_, err := Load()
		assert.ErrorContains(t, err, "STORAGE_BACKEND")
	})

	t.Run("bad ttl", func(t *testing.T) {
		t.Setenv("JWT_ACCESS_TOKEN_TTL", "soon")
		_, err := Load()
		assert.ErrorContains(t, err, "JWT_ACCESS_TOKEN_TTL")
	})

	t.Run("bad rate limit", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_PER_MIN", "many")
		_, err := Load()
		assert.ErrorContains(t, err, "RATE_LIMIT_PER_MIN")
	})
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, splitList(" https://a.example, ,https://b.example "))
	assert.Nil(t, splitList(""))
}
