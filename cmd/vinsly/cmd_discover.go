package main

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"vinsly/internal/config"
	"vinsly/internal/discovery"
)

type DiscoverCmd struct {
	Depth            int  `help:"Maximum directory depth below home (default from settings)"`
	IncludeProtected bool `help:"Descend into macOS protected folders"`
	Fresh            bool `help:"Ignore the cached result"`
	Save             bool `help:"Add the found directories to the project paths in settings"`
	JSON             bool `name:"json" help:"Output as JSON"`
}

func (cmd *DiscoverCmd) Run(g *Globals, ctx context.Context) error {
	opts := discovery.Options{
		Depth:            g.Settings.Discovery.Depth,
		IncludeProtected: g.Settings.Discovery.IncludeProtected || cmd.IncludeProtected,
	}
	if cmd.Depth > 0 {
		opts.Depth = cmd.Depth
	}
	if cmd.Fresh {
		g.Discovery.Invalidate()
	}

	found, err := g.Discovery.Discover(ctx, opts)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	if cmd.Save {
		added := 0
		for _, dir := range found {
			if !slices.Contains(g.Settings.ProjectPaths, dir) {
				g.Settings.ProjectPaths = append(g.Settings.ProjectPaths, dir)
				added++
			}
		}
		if added > 0 {
			if err := g.saveSettings(); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}
		}
		g.Logger.Info("project paths updated", "added", added)
	}

	if cmd.JSON {
		if found == nil {
			found = []string{}
		}
		enc := json.NewEncoder(g.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(found)
	}

	if len(found) == 0 {
		fmt.Fprintln(g.Out, "No projects found.")
		return nil
	}
	for _, dir := range found {
		fmt.Fprintln(g.Out, config.ShortenPath(dir))
	}
	return nil
}
