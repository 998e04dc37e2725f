// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithNoPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Server.ListenAddr, cfg.Server.ListenAddr)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadOverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "obscura.yaml")

	content := `
server:
  listen_addr: "0.0.0.0:9000"
  max_sessions: 16
client:
  server_url: "wss://example.com/obscura"
logging:
  level: "debug"
  format: "json"
metrics:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.ListenAddr)
	assert.Equal(t, 16, cfg.Server.MaxSessions)
	assert.Equal(t, "wss://example.com/obscura", cfg.Client.ServerURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Metrics.Enabled)
	// Fields left out of the file keep their defaults.
	assert.Equal(t, Default().Server.HandshakeTimeout, cfg.Server.HandshakeTimeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/obscura.yaml")
	assert.Error(t, err)
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "verbose"
	errs := Validate(cfg)
	require.NotEmpty(t, errs)
}

func TestValidateRequiresMetricsAddrWhenEnabled(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Addr = ""
	errs := Validate(cfg)
	require.NotEmpty(t, errs)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("OBSCURA_LISTEN_ADDR", "127.0.0.1:7000")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.ListenAddr)
}
