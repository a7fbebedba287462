package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_DEV", "PORT", "STORE_MODE", "MQ_MODE", "ROUTING_PROVIDER", "JWT_SECRET",
		"JWT_TTL", "ROUTING_TIMEOUT", "GOOGLE_MAPS_API_KEY", "GCP_PROJECT_ID",
		"DATABASE_URL", "DATABASE_HOST", "DATABASE_USER", "DATABASE_PASSWORD",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Server.IsDev)
	assert.Equal(t, "mem", cfg.Store.Mode)
	assert.Equal(t, "localhost", cfg.Store.DBHost)
	assert.Empty(t, cfg.Store.DatabaseURL)
	assert.Equal(t, "go_chan", cfg.Queue.Mode)
	assert.Equal(t, "offline", cfg.Routing.Provider)
	assert.Equal(t, 10*time.Second, cfg.Routing.Timeout)
	assert.NotEmpty(t, cfg.Auth.JWTSecret, "dev mode falls back to a development secret")
}

func TestLoad_RequiresJWTSecretOutsideDev(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_DEV", "false")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "x")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "x", cfg.Auth.JWTSecret)
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROUTING_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("ROUTING_PROVIDER", "gmaps")
	_, err = Load()
	assert.Error(t, err, "gmaps needs an API key")
}

func TestConfig_StringMasksSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "super-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.NotContains(t, cfg.String(), "super-secret")
}
