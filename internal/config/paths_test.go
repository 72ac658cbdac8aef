package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"vinsly/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataDir(t *testing.T) {
	t.Run("respects XDG_DATA_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/custom/data")

		assert.Equal(t, "/custom/data/vinsly", config.DataDir())
		assert.Equal(t, "/custom/data/vinsly/cache/agents.yaml", config.CachePath("agents"))
	})

	t.Run("falls back to ~/.local/share when XDG_DATA_HOME is empty", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "")

		home, err := os.UserHomeDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".local", "share", "vinsly"), config.DataDir())
	})

	t.Run("handles XDG_DATA_HOME with trailing slash", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/custom/data/")

		assert.Equal(t, "/custom/data/vinsly/cache", config.CacheDir())
	})
}

func TestDefaultSettingsPath(t *testing.T) {
	t.Run("respects XDG_CONFIG_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/etc/xdg")

		assert.Equal(t, "/etc/xdg/vinsly/settings.yaml", config.DefaultSettingsPath())
	})

	t.Run("falls back to ~/.config", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")

		home, err := os.UserHomeDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".config", "vinsly", "settings.yaml"), config.DefaultSettingsPath())
	})
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	t.Run("expands bare tilde", func(t *testing.T) {
		got, err := config.ExpandPath("~")

		require.NoError(t, err)
		assert.Equal(t, home, got)
	})

	t.Run("expands tilde prefix", func(t *testing.T) {
		got, err := config.ExpandPath("~/code/app")

		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "code", "app"), got)
	})

	t.Run("makes relative paths absolute", func(t *testing.T) {
		got, err := config.ExpandPath("some/dir")

		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got))
		assert.Equal(t, "dir", filepath.Base(got))
	})

	t.Run("leaves tilde in the middle alone", func(t *testing.T) {
		got, err := config.ExpandPath("/tmp/~user")

		require.NoError(t, err)
		assert.Equal(t, "/tmp/~user", got)
	})
}

func TestShortenPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, "~", config.ShortenPath(home))
	assert.Equal(t, "~/code/app", config.ShortenPath(filepath.Join(home, "code", "app")))
	assert.Equal(t, "/opt/tool", config.ShortenPath("/opt/tool"))
	assert.Equal(t, home+"x", config.ShortenPath(home+"x"))
}
