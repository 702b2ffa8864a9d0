package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "turklawai-auth-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8001", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, 24, cfg.Auth.TokenTTLHours)
	assert.Equal(t, PasswordSchemeLegacy, cfg.Auth.PasswordScheme)
	assert.True(t, cfg.Postgres.RunMigrations)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("JWT_SECRET_KEY", "prod-secret")
	t.Setenv("AUTH_TOKEN_TTL_HOURS", "12")
	t.Setenv("AUTH_PASSWORD_SCHEME", "bcrypt")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "prod-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 12, cfg.Auth.TokenTTLHours)
	assert.Equal(t, PasswordSchemeBcrypt, cfg.Auth.PasswordScheme)
	assert.False(t, cfg.Postgres.RunMigrations)
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	t.Setenv("AUTH_TOKEN_TTL_HOURS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.Auth.TokenTTLHours)
}

func TestLoadInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")

	_, err := Load()
	require.Error(t, err)
}
