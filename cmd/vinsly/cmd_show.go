package main

import (
	"fmt"
	"strings"
	"vinsly/internal/config"
	"vinsly/internal/resource"
)

type ShowCmd struct {
	Query   string   `arg:"" help:"Resource name or key"`
	Kind    []string `short:"k" help:"Restrict the lookup to these kinds"`
	Path    bool     `help:"Output only the path (for scripting)"`
	Content bool     `short:"c" help:"Print the resource content"`
}

func (cmd *ShowCmd) Run(g *Globals) error {
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

	if cmd.Path {
		fmt.Fprintln(g.Out, r.Locator())
		return nil
	}

	fmt.Fprintf(g.Out, "Name:     %s\n", r.Name)
	fmt.Fprintf(g.Out, "Kind:     %s\n", r.Kind)
	fmt.Fprintf(g.Out, "Scope:    %s\n", r.Scope)
	fmt.Fprintf(g.Out, "Location: %s\n", config.ShortenPath(r.Locator()))
	if r.Description != "" {
		fmt.Fprintf(g.Out, "About:    %s\n", r.Description)
	}
	if r.Favorite {
		fmt.Fprintln(g.Out, "Favorite: yes")
	}
	writeDetails(g, r)

	if cmd.Content && r.Content != "" {
		fmt.Fprintln(g.Out)
		fmt.Fprint(g.Out, r.Content)
		if !strings.HasSuffix(r.Content, "\n") {
			fmt.Fprintln(g.Out)
		}
	}
	return nil
}

func writeDetails(g *Globals, r resource.Resource) {
	switch {
	case r.Agent != nil:
		if r.Agent.Model != "" {
			fmt.Fprintf(g.Out, "Model:    %s\n", r.Agent.Model)
		}
		if len(r.Agent.Tools) > 0 {
			fmt.Fprintf(g.Out, "Tools:    %s\n", strings.Join(r.Agent.Tools, ", "))
		}
	case r.Skill != nil:
		if r.Skill.HasAssets {
			fmt.Fprintln(g.Out, "Assets:   yes")
		}
	case r.Command != nil:
		if r.Command.ArgumentHint != "" {
			fmt.Fprintf(g.Out, "Args:     %s\n", r.Command.ArgumentHint)
		}
		if len(r.Command.AllowedTools) > 0 {
			fmt.Fprintf(g.Out, "Tools:    %s\n", strings.Join(r.Command.AllowedTools, ", "))
		}
	case r.MCP != nil:
		if r.MCP.URL != "" {
			fmt.Fprintf(g.Out, "URL:      %s\n", r.MCP.URL)
		} else if r.MCP.Command != "" {
			fmt.Fprintf(g.Out, "Command:  %s\n", strings.Join(append([]string{r.MCP.Command}, r.MCP.Args...), " "))
		}
	case r.Hook != nil:
		if r.Hook.Matcher != "" {
			fmt.Fprintf(g.Out, "Matcher:  %s\n", r.Hook.Matcher)
		}
		fmt.Fprintf(g.Out, "Command:  %s\n", r.Hook.Command)
	case r.Memory != nil:
		if r.Memory.Title != "" {
			fmt.Fprintf(g.Out, "Title:    %s\n", r.Memory.Title)
		}
	}
}
