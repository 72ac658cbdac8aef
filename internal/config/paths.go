package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const appName = "vinsly"

func xdgDir(env string, fallback ...string) string {
	dir := os.Getenv(env)
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(append([]string{home}, fallback...)...)
	}
	return filepath.Join(dir, appName)
}

// DataDir is where collection caches live.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

func CacheDir() string {
	return filepath.Join(DataDir(), "cache")
}

// CachePath is the cache file of one collection.
func CachePath(collection string) string {
	return filepath.Join(CacheDir(), collection+".yaml")
}

func DefaultSettingsPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "settings.yaml")
}

func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot expand ~: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}

	return filepath.Abs(path)
}

// ShortenPath replaces the home directory prefix of path with ~.
func ShortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if rest, ok := strings.CutPrefix(path, home+string(filepath.Separator)); ok {
		return "~/" + filepath.ToSlash(rest)
	}
	return path
}
