package main

import (
	"fmt"
	"os"
	"vinsly/internal/config"
)

type DirsCmd struct {
	Add DirsAddCmd `cmd:"" help:"Watch a directory"`
	Rm  DirsRmCmd  `cmd:"" help:"Stop watching a directory"`
	Ls  DirsLsCmd  `cmd:"" default:"1" help:"List watched directories"`
}

type DirsAddCmd struct {
	Path string `arg:"" type:"path" help:"Directory to watch"`
}

func (cmd *DirsAddCmd) Run(g *Globals) error {
	abs, err := config.ExpandPath(cmd.Path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", abs)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", abs)
	}

	if !g.Settings.AddWatched(abs) {
		fmt.Fprintf(g.Out, "Already watched: %s\n", config.ShortenPath(abs))
		return nil
	}
	if err := g.saveSettings(); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	fmt.Fprintf(g.Out, "Watching: %s\n", config.ShortenPath(abs))
	return nil
}

type DirsRmCmd struct {
	Path string `arg:"" help:"Watched directory to remove"`
}

func (cmd *DirsRmCmd) Run(g *Globals) error {
	abs, err := config.ExpandPath(cmd.Path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if !g.Settings.RemoveWatched(abs) {
		return fmt.Errorf("not a watched directory: %s", cmd.Path)
	}
	if err := g.saveSettings(); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	fmt.Fprintf(g.Out, "Stopped watching: %s\n", config.ShortenPath(abs))
	return nil
}

type DirsLsCmd struct{}

func (cmd *DirsLsCmd) Run(g *Globals) error {
	if len(g.Settings.WatchedDirectories) == 0 {
		fmt.Fprintln(g.Out, "No watched directories.")
		return nil
	}
	for _, dir := range g.Settings.WatchedDirectories {
		fmt.Fprintln(g.Out, config.ShortenPath(dir))
	}
	return nil
}
