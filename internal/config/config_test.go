package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 7800, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 1000, cfg.Buffers.Capacity)
	assert.Equal(t, 10000, cfg.Bridge.DefaultTimeoutMs)
	require.NoError(t, cfg.validate())
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".tabbridge.toml")
	content := `
[server]
port = 9000

[buffers]
capacity = 250
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 250, cfg.Buffers.Capacity)
	// Untouched sections keep their defaults.
	assert.Equal(t, 10000, cfg.Bridge.DefaultTimeoutMs)
	assert.Equal(t, "screenshot", cfg.Screenshots.Prefix)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".tabbridge.toml")
	content := `
[server]
port = 99999
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port out of range")
}
