package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("IDENTITY_JWT_SECRET", "secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "admin", cfg.Identity.AdminRole)
	assert.Equal(t, 8, cfg.Identity.Password.MinimumLength)
	assert.Equal(t, 4, cfg.Identity.Password.MinimumUniqueCharacters)
	assert.True(t, cfg.Identity.Password.RequireSymbol)
	assert.Equal(t, "identity.events", cfg.Redis.Channel)
	assert.Equal(t, "/metrics", cfg.Monitoring.MetricsPath)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
storage:
  driver: memory
jwt:
  secret: from-file
identity:
  password:
    minimum_length: 12
    require_symbol: false
`)
	t.Setenv("IDENTITY_SERVER_PORT", "7070")
	t.Setenv("IDENTITY_IDENTITY_PASSWORD_MINIMUM_UNIQUE_CHARACTERS", "6")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, 12, cfg.Identity.Password.MinimumLength)
	assert.Equal(t, 6, cfg.Identity.Password.MinimumUniqueCharacters)
	assert.False(t, cfg.Identity.Password.RequireSymbol)
	assert.True(t, cfg.Identity.Password.RequireDigit)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing secret": "storage:\n  driver: memory\n",
		"unknown driver": "jwt:\n  secret: s\nstorage:\n  driver: mongo\n",
		"zero length":    "jwt:\n  secret: s\nidentity:\n  password:\n    minimum_length: 0\n",
		"bad port":       "jwt:\n  secret: s\nserver:\n  port: 70000\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
