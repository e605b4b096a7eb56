package wsconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pepnova/wsengine/internal/wslog"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, ":8080", cfg.ListenAddr)
	require.False(t, cfg.AllowHixie75)
	require.Equal(t, wslog.LevelInfo, cfg.LogLevel)
	require.Zero(t, cfg.PingInterval())
}

func TestLoad_EmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlDoc := "listen_addr: \":9000\"\nallow_hixie75: true\nsecure_ports: [443, 8443]\nping_interval_seconds: 30\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.ListenAddr)
	require.True(t, cfg.AllowHixie75)
	require.True(t, cfg.IsSecurePort(443))
	require.True(t, cfg.IsSecurePort(8443))
	require.False(t, cfg.IsSecurePort(80))
	require.Equal(t, int64(30), cfg.PingInterval().Nanoseconds()/1e9)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: [unterminated"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
