package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HELPDESK_CONFIG_PATH", "")
	t.Setenv("STORE_BACKEND", "")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, StoreBackendSQLite, cfg.Store.Backend)
	require.Equal(t, time.Minute, cfg.SLA.SweepInterval())
	require.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	require.True(t, cfg.Auth.RequireLogin)
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "helpdesk.yaml")
	content := `
store:
  backend: file
  path: /tmp/tickets.json
sla:
  sweep_interval_seconds: 5
logger:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("STORE_BACKEND", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, StoreBackendFile, cfg.Store.Backend)
	require.Equal(t, "/tmp/tickets.json", cfg.Store.Path)
	require.Equal(t, 5*time.Second, cfg.SLA.SweepInterval())
	require.Equal(t, "warn", cfg.Logger.Level)
	require.Equal(t, "helpdesk:", cfg.Store.Redis.KeyPrefix)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSweepIntervalFallback(t *testing.T) {
	require.Equal(t, time.Minute, SLAConfig{}.SweepInterval())
	require.Equal(t, time.Duration(0), AppConfig{}.RequestTimeout())
}
