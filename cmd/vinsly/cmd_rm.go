package main

import (
	"context"
	"fmt"
	"vinsly/internal/resource"
)

type RmCmd struct {
	Queries []string `arg:"" name:"name" help:"Resource names or keys to delete"`
	Kind    []string `short:"k" help:"Restrict the lookup to these kinds"`
}

func (cmd *RmCmd) Run(g *Globals, ctx context.Context) error {
	kinds, err := parseKinds(cmd.Kind)
	if err != nil {
		return err
	}

	var targets []resource.Resource
	for _, q := range cmd.Queries {
		r, err := findResource(g.WS, q, kinds...)
		if err != nil {
			if handleFindError(g.Out, err) {
				return nil
			}
			return err
		}
		targets = append(targets, r)
	}

	keys := make([]string, len(targets))
	for i, r := range targets {
		keys[i] = r.Key
	}
	if err := g.WS.BulkDelete(ctx, keys); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	for _, r := range targets {
		fmt.Fprintf(g.Out, "Removed: %s\n", r.Name)
	}
	return nil
}
