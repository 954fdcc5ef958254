package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectRuntimeNative(t *testing.T) {
	if detectMode() == DockerMode {
		t.Skip("running inside a container")
	}

	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	t.Setenv("XDG_DATA_HOME", "/custom/data")

	rt := DetectRuntime()
	assert.Equal(t, NativeMode, rt.Mode)
	assert.Equal(t, "/custom/config/aura/config.yml", rt.ConfigPath())
	assert.Equal(t, "/custom/data/aura/aura.db", rt.DBPath())
	assert.Equal(t, "/custom/data/aura/settings.json", rt.SettingsPath())
}

func TestDetectRuntimeContainerEnv(t *testing.T) {
	t.Setenv("AURA_CONTAINER", "true")

	rt := DetectRuntime()
	assert.Equal(t, DockerMode, rt.Mode)
	assert.Equal(t, "/data/aura.db", rt.DBPath())
}

func TestLoad(t *testing.T) {
	t.Run("yaml file then env overrides", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yml")
		require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9090"
dev: true
profile_cache_ttl: 30m
heuristics:
  weekend_warrior_threshold: 0.5
  top_languages: 3
provider_keys:
  gemini: from-file
`), 0o644))

		t.Setenv("GEMINI_API_KEY", "from-env")
		t.Setenv("SESSION_SECRET", "")

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, ":9090", cfg.Addr)
		assert.True(t, cfg.Dev)
		assert.Equal(t, 30*time.Minute, cfg.ProfileCacheTTL)
		assert.Equal(t, 0.5, cfg.Heuristics.WeekendWarriorThreshold)
		assert.Equal(t, 3, cfg.Heuristics.TopLanguages)
		// untouched defaults survive a partial heuristics block
		assert.Equal(t, 30000, cfg.Heuristics.AuditMaxChars)
		assert.Equal(t, "from-env", cfg.ProviderKeys.Gemini)
		key, err := cfg.SessionKey()
		require.NoError(t, err)
		assert.Equal(t, devSessionSecret, key)
	})

	t.Run("missing secret outside dev mode", func(t *testing.T) {
		t.Setenv("SESSION_SECRET", "")
		t.Setenv("AURA_DEV", "false")

		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
		require.NoError(t, err)
		_, err = cfg.SessionKey()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SESSION_SECRET")
	})

	t.Run("anthropic key wins over claude key", func(t *testing.T) {
		t.Setenv("SESSION_SECRET", "s3cret")
		t.Setenv("CLAUDE_API_KEY", "claude")
		t.Setenv("ANTHROPIC_API_KEY", "anthropic")

		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
		require.NoError(t, err)
		assert.Equal(t, "anthropic", cfg.ProviderKeys.Claude)
		assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yml")
		require.NoError(t, os.WriteFile(path, []byte("addr: [unterminated"), 0o644))

		_, err := Load(path)
		require.Error(t, err)
	})
}
