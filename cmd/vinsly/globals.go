package main

import (
	"io"
	"os"
	"vinsly/cmd/vinsly/render"
	"vinsly/internal/backend"
	"vinsly/internal/config"
	"vinsly/internal/discovery"
	"vinsly/internal/resource"
	"vinsly/internal/workspace"

	"github.com/charmbracelet/log"
)

type Globals struct {
	WS           *workspace.Workspace
	FS           *backend.FS
	Discovery    *discovery.Scanner
	Settings     *config.Settings
	SettingsPath string
	Out          io.Writer
	In           io.Reader
	Render       render.Renderer
	Logger       *log.Logger
}

func newGlobals(home string, settings *config.Settings, settingsPath, cacheDir string, logger *log.Logger, out io.Writer) (*Globals, error) {
	fs := backend.New(home, logger)
	ws, err := workspace.New(workspace.Options{
		Backend: func(kinds ...resource.Kind) workspace.Backend {
			return fs.Collection(kinds...)
		},
		CacheDir:    cacheDir,
		Watched:     func() []string { return watchedDirs(settings, logger) },
		HistorySize: settings.HistorySize,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	return &Globals{
		WS:           ws,
		FS:           fs,
		Discovery:    discovery.New(home, settings.Discovery.Exclude, logger),
		Settings:     settings,
		SettingsPath: settingsPath,
		Out:          out,
		In:           os.Stdin,
		Render:       render.NewLipglossRenderer(out, 80),
		Logger:       logger,
	}, nil
}

// watchedDirs returns the watched directories as absolute paths. Entries
// that cannot be expanded are logged and skipped.
func watchedDirs(settings *config.Settings, logger *log.Logger) []string {
	out := make([]string, 0, len(settings.WatchedDirectories))
	for _, d := range settings.WatchedDirectories {
		abs, err := config.ExpandPath(d)
		if err != nil {
			logger.Warn("skipping watched directory", "dir", d, "err", err)
			continue
		}
		out = append(out, abs)
	}
	return out
}

func (g *Globals) saveSettings() error {
	return g.Settings.Save(g.SettingsPath)
}
