package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "NutriSync", cfg.Turn.AppName)
	assert.Equal(t, 120, cfg.Turn.TimeoutSeconds)
	assert.Equal(t, 20, cfg.Turn.HistoryLimit)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://quickchart.io/chart", cfg.Tools.QuickChartURL)
	assert.True(t, cfg.Logging.Redaction)
}

func TestLoader_MissingFileReturnsDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "does-not-exist.json"))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "NutriSync", cfg.Turn.AppName)
	assert.NotEmpty(t, cfg.DataDir)
	assert.NotEmpty(t, cfg.Logging.File)
}

func TestLoader_ReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nutrisync.json")
	body := `{
		"turn": {"app_name": "TestApp", "timeout_seconds": 30},
		"server": {"port": 9999},
		"data_dir": "` + dir + `"
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "TestApp", cfg.Turn.AppName)
	assert.Equal(t, 30, cfg.Turn.TimeoutSeconds)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, dir, cfg.DataDir)
}

func TestLoader_EnvOverridesProviderKeys(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-REDACTED")
	t.Setenv("TELEGRAM_BOT_TOKEN", "12345678:AAtesttesttesttesttesttesttest")

	cfg, err := NewLoader(filepath.Join(t.TempDir(), "none.json")).Load()
	require.NoError(t, err)

	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "anthropic", cfg.Providers[0].Provider)
	assert.Equal(t, "sk-ant-REDACTED", cfg.Providers[0].APIKey)
	assert.Equal(t, "12345678:AAtesttesttesttesttesttesttest", cfg.Telegram.BotToken)
}

func TestLoader_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nutrisync.json")
	loader := NewLoader(path)

	cfg := DefaultConfig()
	cfg.Turn.AppName = "RoundTrip"
	require.NoError(t, loader.Save(cfg))

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "RoundTrip", loaded.Turn.AppName)
}
