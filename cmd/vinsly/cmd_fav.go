package main

import (
	"context"
	"fmt"
)

type FavCmd struct {
	Query string   `arg:"" help:"Resource name or key"`
	Kind  []string `short:"k" help:"Restrict the lookup to these kinds"`
}

func (cmd *FavCmd) Run(g *Globals, ctx context.Context) error {
	kinds, err := parseKinds(cmd.Kind)
	if err != nil {
		return err
	}
	r, err := findResource(g.WS, cmd.Query, kinds...)
	if err != nil {
		if handleFindError(g.Out, err) {
			return nil
		}
		return err
	}

	fav, err := g.WS.ToggleFavorite(ctx, r.Key)
	if err != nil {
		return fmt.Errorf("failed to update %q: %w", r.Name, err)
	}
	if fav {
		fmt.Fprintf(g.Out, "Favorited: %s\n", r.Name)
	} else {
		fmt.Fprintf(g.Out, "Unfavorited: %s\n", r.Name)
	}
	return nil
}
