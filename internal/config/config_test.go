package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noediv/mediaplay/internal/player"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, v, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, "http://localhost:8000", cfg.Gateway.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 3, cfg.Gateway.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, "rich", cfg.Player.Engine)
	assert.Equal(t, 1500*time.Millisecond, cfg.Player.Settle)
	assert.False(t, cfg.Playback.AutoEngineFallback)
	assert.Zero(t, cfg.Playback.LoadTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.False(t, cfg.Advanced.Debug)
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	content := `gateway:
  base_url: https://media.example.com/
  timeout: 10s
player:
  engine: native
playback:
  auto_engine_fallback: true
  load_timeout: 45s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://media.example.com/", cfg.Gateway.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, player.EngineNative, cfg.Player.EngineKind())
	assert.True(t, cfg.Playback.AutoEngineFallback)
	assert.Equal(t, 45*time.Second, cfg.Playback.LoadTimeout)
	// Untouched keys keep their defaults
	assert.Equal(t, 5*time.Second, cfg.Probe.Timeout)
}

func TestLoad_DefaultLocation(t *testing.T) {
	isolate(t)
	require.NoError(t, InitializeDirs())
	path := filepath.Join(GetConfigDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("probe:\n  timeout: 2s\n"), 0644))

	cfg, v, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, path, v.ConfigFileUsed())
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("MEDIAPLAY_GATEWAY_BASE_URL", "http://10.0.0.2:9000")
	t.Setenv("MEDIAPLAY_PLAYER_ENGINE", "ffplay")

	cfg, _, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2:9000", cfg.Gateway.BaseURL)
	assert.Equal(t, player.EngineNative, cfg.Player.EngineKind())
}

func TestLoad_Invalid(t *testing.T) {
	dir := isolate(t)

	tests := map[string]string{
		"bad scheme":   "gateway:\n  base_url: ftp://host\n",
		"bad engine":   "player:\n  engine: vlc\n",
		"bad level":    "logging:\n  level: loud\n",
		"bad format":   "logging:\n  format: xml\n",
		"zero probe":   "probe:\n  timeout: 0s\n",
		"neg watchdog": "playback:\n  load_timeout: -1s\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))
			_, _, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_UnreadableFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gateway: [unclosed"), 0644))

	_, _, err := Load(path)
	assert.Error(t, err)
}

func TestSaveDefaultConfig_RoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, SaveDefaultConfig(path))

	fromFile, _, err := Load(path)
	require.NoError(t, err)

	v := viper.New()
	SetDefaults(v)
	var defaults Config
	require.NoError(t, v.Unmarshal(&defaults))

	assert.Equal(t, defaults, *fromFile)
}

func TestReload(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("probe:\n  timeout: 3s\n"), 0644))

	_, v, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("probe:\n  timeout: 7s\n"), 0644))
	require.NoError(t, v.ReadInConfig())
	cfg, err := Reload(v)
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, cfg.Probe.Timeout)
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "gateway.base_url")
	assert.Contains(t, keys, "playback.load_timeout")
	assert.IsIncreasing(t, keys)
}
