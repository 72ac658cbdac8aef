package main

import (
	"context"
	"encoding/json"
	"fmt"
	"vinsly/cmd/vinsly/render"
	"vinsly/internal/discovery"
	"vinsly/internal/scan"
	"vinsly/internal/workspace"
)

type ScanCmd struct {
	Global   bool     `default:"true" negatable:"" help:"Include global resources"`
	Project  []string `short:"p" help:"Project directory to scan (repeatable)"`
	Dir      []string `short:"d" help:"Additional directory to scan (repeatable)"`
	Watched  bool     `default:"true" negatable:"" help:"Include watched directories"`
	Discover bool     `help:"Also scan projects found under the home directory"`
	JSON     bool     `name:"json" help:"Output the result as JSON"`
}

func (cmd *ScanCmd) request(ctx context.Context, g *Globals) (scan.Request, error) {
	projects, err := expandPaths(append(append([]string{}, g.Settings.ProjectPaths...), cmd.Project...))
	if err != nil {
		return scan.Request{}, err
	}
	dirs, err := expandPaths(cmd.Dir)
	if err != nil {
		return scan.Request{}, err
	}

	if cmd.Discover {
		found, err := g.Discovery.Discover(ctx, discovery.Options{
			Depth:            g.Settings.Discovery.Depth,
			IncludeProtected: g.Settings.Discovery.IncludeProtected,
		})
		if err != nil {
			return scan.Request{}, fmt.Errorf("discovery failed: %w", err)
		}
		projects = append(projects, found...)
	}

	return scan.Request{
		IncludeGlobal:         cmd.Global,
		ProjectPaths:          projects,
		AdditionalDirectories: dirs,
		UseWatchedDirectories: cmd.Watched,
	}, nil
}

func (cmd *ScanCmd) Run(g *Globals, ctx context.Context) error {
	req, err := cmd.request(ctx, g)
	if err != nil {
		return err
	}

	g.WS.Hydrate()
	res, err := g.WS.FullScan(ctx, req)
	if err != nil {
		return fmt.Errorf("scan interrupted: %w", err)
	}

	if cmd.JSON {
		enc := json.NewEncoder(g.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprint(g.Out, g.Render.RenderScanSummary(scanSummary(res)))
	return nil
}

func scanSummary(res workspace.DetailedResult) render.ScanSummaryView {
	view := render.ScanSummaryView{Total: res.Total, New: res.New}
	for _, spec := range workspace.Specs() {
		b := res.Breakdown[spec.Name]
		view.Rows = append(view.Rows, render.ScanSummaryRow{
			Collection: spec.Name,
			Total:      b.Total,
			New:        b.New,
			Failed:     res.Failed[spec.Name],
		})
	}
	return view
}
