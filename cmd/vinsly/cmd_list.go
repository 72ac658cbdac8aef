package main

import (
	"encoding/json"
	"fmt"
	"vinsly/cmd/vinsly/render"
	"vinsly/internal/resource"
)

type ListCmd struct {
	Kind      []string `short:"k" help:"Only list resources of these kinds"`
	Scope     string   `short:"s" enum:"all,global,project" default:"all" help:"Only list resources of this scope"`
	Favorites bool     `short:"f" help:"Only list favorites"`
	Names     bool     `short:"n" help:"Output only resource names (one per line)"`
	JSON      bool     `name:"json" help:"Output as JSON"`
}

type listedResource struct {
	Key         string `json:"key"`
	Kind        string `json:"kind"`
	Scope       string `json:"scope"`
	Name        string `json:"name"`
	Locator     string `json:"locator"`
	Description string `json:"description,omitempty"`
	Favorite    bool   `json:"favorite,omitempty"`
}

func (cmd *ListCmd) selected(g *Globals) ([]resource.Resource, error) {
	kinds, err := parseKinds(cmd.Kind)
	if err != nil {
		return nil, err
	}
	g.WS.Hydrate()

	var out []resource.Resource
	for _, r := range g.WS.Items(kinds...) {
		if cmd.Scope != "" && cmd.Scope != "all" && string(r.Scope) != cmd.Scope {
			continue
		}
		if cmd.Favorites && !r.Favorite {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (cmd *ListCmd) Run(g *Globals) error {
	items, err := cmd.selected(g)
	if err != nil {
		return err
	}

	switch {
	case cmd.Names:
		for _, r := range items {
			fmt.Fprintln(g.Out, r.Name)
		}
		return nil
	case cmd.JSON:
		listed := make([]listedResource, 0, len(items))
		for _, r := range items {
			listed = append(listed, listedResource{
				Key:         r.Key,
				Kind:        string(r.Kind),
				Scope:       string(r.Scope),
				Name:        r.Name,
				Locator:     r.Locator(),
				Description: r.Description,
				Favorite:    r.Favorite,
			})
		}
		enc := json.NewEncoder(g.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(listed)
	}

	view := render.ResourceListView{}
	for _, r := range items {
		view.Items = append(view.Items, render.ResourceListItem{
			Name:        r.Name,
			Kind:        string(r.Kind),
			Scope:       string(r.Scope),
			Locator:     r.Locator(),
			Description: r.Description,
			Favorite:    r.Favorite,
		})
	}
	fmt.Fprint(g.Out, g.Render.RenderResourceList(view))
	return nil
}
