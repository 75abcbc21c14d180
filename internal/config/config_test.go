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
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.Equal(t, 300*time.Second, cfg.PickTimeout)
	assert.Equal(t, 32, cfg.BatchSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8090", cfg.GatewayAddr)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draftd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
poll_interval: 5s
pick_timeout: 30s
batch_size: 8
gateway_addr: ":9000"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.PickTimeout)
	assert.Equal(t, 8, cfg.BatchSize)
	assert.Equal(t, ":9000", cfg.GatewayAddr)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draftd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("poll_interval: 5s\n"), 0o644))

	t.Setenv("DRAFTD_POLL_INTERVAL", "90s")
	t.Setenv("DRAFTD_NATS_URL", "nats://localhost:4222")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.PollInterval)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("DRAFTD_POLL_INTERVAL", "0s")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
