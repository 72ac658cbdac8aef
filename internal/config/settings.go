package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"vinsly/internal/resource"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDiscoveryDepth = 12
	DefaultHistorySize    = 50
	DefaultLogLevel       = "warn"
	DefaultLogFormat      = "auto"
)

type Discovery struct {
	Depth            int      `yaml:"depth"`
	IncludeProtected bool     `yaml:"include_protected"`
	Exclude          []string `yaml:"exclude,omitempty"`
}

type Settings struct {
	ProjectPaths       []string  `yaml:"project_paths,omitempty"`
	WatchedDirectories []string  `yaml:"watched_directories,omitempty"`
	Discovery          Discovery `yaml:"discovery"`
	HistorySize        int       `yaml:"history_size"`
	LogLevel           string    `yaml:"log_level,omitempty"`
	LogFormat          string    `yaml:"log_format,omitempty"`
}

func Defaults() Settings {
	return Settings{
		Discovery:   Discovery{Depth: DefaultDiscoveryDepth},
		HistorySize: DefaultHistorySize,
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
	}
}

func (s *Settings) fill() {
	d := Defaults()
	if s.Discovery.Depth <= 0 {
		s.Discovery.Depth = d.Discovery.Depth
	}
	if s.HistorySize <= 0 {
		s.HistorySize = d.HistorySize
	}
	if s.LogLevel == "" {
		s.LogLevel = d.LogLevel
	}
	if s.LogFormat == "" {
		s.LogFormat = d.LogFormat
	}
}

// LoadSettings reads the settings file at path. A missing file yields the
// defaults.
func LoadSettings(path string) (Settings, error) {
	s := Defaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return Defaults(), fmt.Errorf("failed to parse settings file %q: %w", path, err)
	}
	s.fill()
	return s, nil
}

func (s Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// AddWatched records dir as a watched directory. It reports false when the
// directory is already watched.
func (s *Settings) AddWatched(dir string) bool {
	dir = resource.NormalizeRoot(dir)
	if slices.Contains(s.WatchedDirectories, dir) {
		return false
	}
	s.WatchedDirectories = append(s.WatchedDirectories, dir)
	return true
}

func (s *Settings) RemoveWatched(dir string) bool {
	dir = resource.NormalizeRoot(dir)
	n := len(s.WatchedDirectories)
	s.WatchedDirectories = slices.DeleteFunc(s.WatchedDirectories, func(d string) bool {
		return resource.NormalizeRoot(d) == dir
	})
	return len(s.WatchedDirectories) != n
}

// Env holds the VINSLY_* overrides.
type Env struct {
	Home        string
	Settings    string
	LogLevel    string `split_words:"true"`
	LogFormat   string `split_words:"true"`
	HistorySize int    `split_words:"true"`
}

func LoadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process(appName, &env); err != nil {
		return env, fmt.Errorf("invalid environment: %w", err)
	}
	return env, nil
}

// Apply overlays the non-empty environment values onto s.
func (e Env) Apply(s *Settings) {
	if e.LogLevel != "" {
		s.LogLevel = e.LogLevel
	}
	if e.LogFormat != "" {
		s.LogFormat = e.LogFormat
	}
	if e.HistorySize > 0 {
		s.HistorySize = e.HistorySize
	}
}

// HomeDir is VINSLY_HOME when set, the user's home directory otherwise.
func (e Env) HomeDir() (string, error) {
	if e.Home != "" {
		return ExpandPath(e.Home)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve home directory: %w", err)
	}
	return home, nil
}

func (e Env) SettingsPath() string {
	if e.Settings != "" {
		return e.Settings
	}
	return DefaultSettingsPath()
}
