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
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := writeConfig(t, "jwt_secret: s3cret\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "agrinotify.db", cfg.Database.URL)
	assert.Equal(t, 100, cfg.Ledger.Capacity)
	assert.Equal(t, "database", cfg.Settings.Backend)
	assert.Equal(t, "urgent", cfg.Email.MinPriority)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.Temporal.Enabled)
}

func TestLoadReadsFileAndEnv(t *testing.T) {
	dir := writeConfig(t, `
jwt_secret: from-file
ledger:
  capacity: 25
database:
  driver: postgres
  url: postgres://localhost/agri
email:
  recipients: [manager@farm.example]
`)
	t.Setenv("AGRINOTIFY_JWT_SECRET", "from-env")
	t.Setenv("AGRINOTIFY_SERVER_PORT", "9090")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 25, cfg.Ledger.Capacity)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, []string{"manager@farm.example"}, cfg.Email.Recipients)
}

func TestLoadWithoutFileUsesEnv(t *testing.T) {
	t.Setenv("AGRINOTIFY_JWT_SECRET", "env-only")
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "env-only", cfg.JWTSecret)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	_, err := Load(writeConfig(t, "server_port: \"8081\"\n"))
	require.ErrorContains(t, err, "jwt_secret")

	_, err = Load(writeConfig(t, "jwt_secret: x\nsettings:\n  backend: redis\n"))
	require.ErrorContains(t, err, "settings.backend")

	_, err = Load(writeConfig(t, "jwt_secret: x\nemail:\n  enabled: true\n"))
	require.ErrorContains(t, err, "smtp_host")
}
