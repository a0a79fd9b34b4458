package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Store.Mode)
	assert.True(t, cfg.Table.WithNines)
	assert.False(t, cfg.Table.AllowExchange)
	assert.Equal(t, 10*time.Minute, cfg.Table.IdleTTL)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":9090"
store:
  mode: sqlite
  path: /tmp/doko.db
table:
  with_nines: false
  allow_exchange: true
  idle_ttl: 5m
logging:
  level: debug
  format: console
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "sqlite", cfg.Store.Mode)
	assert.Equal(t, "/tmp/doko.db", cfg.Store.Path)
	assert.False(t, cfg.Table.WithNines)
	assert.True(t, cfg.Table.AllowExchange)
	assert.Equal(t, 5*time.Minute, cfg.Table.IdleTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DOKO3000_STORE_MODE", "postgres")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Mode)
}
