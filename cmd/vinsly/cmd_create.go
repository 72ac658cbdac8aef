package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"vinsly/internal/config"
	"vinsly/internal/frontmatter"
	"vinsly/internal/resource"
	"vinsly/internal/ui"

	"github.com/charmbracelet/huh"
)

type CreateCmd struct {
	Name        string   `arg:"" optional:"" help:"Resource name; omit to run the wizard"`
	Kind        string   `short:"k" enum:"agent,skill,command" default:"agent" help:"Kind of resource"`
	Scope       string   `short:"s" enum:"global,project" default:"global" help:"Where to create the resource"`
	Project     string   `short:"p" help:"Project directory for project scope (default: current directory)"`
	Description string   `short:"d" help:"One-line description"`
	Body        string   `short:"b" help:"Text following the header"`
	Model       string   `help:"Model for agents and commands"`
	Tools       []string `help:"Tools an agent may use, or allowed tools of a command"`
}

type agentFront struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Model       string `yaml:"model,omitempty"`
	Tools       string `yaml:"tools,omitempty"`
}

type skillFront struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

type commandFront struct {
	Description  string `yaml:"description,omitempty"`
	AllowedTools string `yaml:"allowed-tools,omitempty"`
	Model        string `yaml:"model,omitempty"`
}

func validateCreateName(kind string) func(string) error {
	return func(name string) error {
		name = strings.TrimSpace(name)
		if name == "" {
			return errors.New("Name cannot be empty")
		}
		if kind == string(resource.KindCommand) {
			for _, segment := range strings.Split(name, ":") {
				if err := resource.ValidateName(segment); err != nil {
					return err
				}
			}
			return nil
		}
		return resource.ValidateName(name)
	}
}

func (cmd *CreateCmd) input() (ui.CreateInput, error) {
	in := ui.CreateInput{
		Kind:        cmd.Kind,
		Scope:       cmd.Scope,
		Name:        cmd.Name,
		ProjectPath: cmd.Project,
		Description: cmd.Description,
	}
	if in.ProjectPath == "" && (in.Scope == string(resource.ScopeProject) || in.Name == "") {
		cwd, err := os.Getwd()
		if err != nil {
			return in, fmt.Errorf("getting working directory: %w", err)
		}
		in.ProjectPath = cwd
	}
	return in, nil
}

func (cmd *CreateCmd) Run(g *Globals, ctx context.Context) error {
	in, err := cmd.input()
	if err != nil {
		return err
	}

	if strings.TrimSpace(in.Name) == "" {
		form := ui.CreateForm(&in, func(name string) error {
			return validateCreateName(in.Kind)(name)
		})
		if err := form.Run(); err != nil {
			return handleCreateFormError(err)
		}
		fmt.Fprint(g.Out, ui.RenderWizard("Create new "+in.Kind, in.Fields(), -1))
	} else if err := validateCreateName(in.Kind)(in.Name); err != nil {
		return err
	}

	d, err := cmd.draft(in)
	if err != nil {
		return err
	}
	r, err := g.WS.Save(ctx, d)
	if err != nil {
		return fmt.Errorf("failed to create %s %q: %w", d.Kind, d.Name, err)
	}

	fmt.Fprint(g.Out, ui.RenderSaved(string(r.Kind), r.Name, config.ShortenPath(r.Locator()), nil))
	return nil
}

func (cmd *CreateCmd) draft(in ui.CreateInput) (resource.Draft, error) {
	scope, err := resource.ParseScope(in.Scope)
	if err != nil {
		return resource.Draft{}, err
	}
	name := strings.TrimSpace(in.Name)
	desc := strings.TrimSpace(in.Description)
	tools := strings.Join(cmd.Tools, ", ")

	var front any
	switch resource.Kind(in.Kind) {
	case resource.KindAgent:
		front = agentFront{Name: name, Description: desc, Model: cmd.Model, Tools: tools}
	case resource.KindSkill:
		front = skillFront{Name: name, Description: desc}
	case resource.KindCommand:
		front = commandFront{Description: desc, AllowedTools: tools, Model: cmd.Model}
	default:
		return resource.Draft{}, fmt.Errorf("cannot create resources of kind %q", in.Kind)
	}

	content, err := frontmatter.Compose(front, cmd.Body)
	if err != nil {
		return resource.Draft{}, err
	}
	d := resource.Draft{
		Kind:    resource.Kind(in.Kind),
		Scope:   scope,
		Name:    name,
		Content: content,
	}
	if scope == resource.ScopeProject {
		project, err := config.ExpandPath(strings.TrimSpace(in.ProjectPath))
		if err != nil {
			return resource.Draft{}, fmt.Errorf("invalid project path: %w", err)
		}
		d.ProjectPath = project
	}
	return d, nil
}

func handleCreateFormError(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return nil
	}
	return err
}
