package main

import (
	"context"
	"fmt"
	"vinsly/internal/config"
	"vinsly/internal/resource"
)

type SkillCmd struct {
	Export SkillExportCmd `cmd:"" help:"Zip skills into an archive"`
	Import SkillImportCmd `cmd:"" help:"Unpack a skill archive"`
}

type SkillExportCmd struct {
	Names  []string `arg:"" name:"name" help:"Skills to export"`
	Output string   `short:"o" required:"" type:"path" help:"Archive to write"`
}

func (cmd *SkillExportCmd) Run(g *Globals, ctx context.Context) error {
	var dirs []string
	for _, name := range cmd.Names {
		r, err := findResource(g.WS, name, resource.KindSkill)
		if err != nil {
			if handleFindError(g.Out, err) {
				return nil
			}
			return err
		}
		if r.Skill == nil || r.Skill.Directory == "" {
			return fmt.Errorf("skill %q has no directory", r.Name)
		}
		dirs = append(dirs, r.Skill.Directory)
	}

	var err error
	if len(dirs) == 1 {
		err = g.FS.ExportSkill(ctx, dirs[0], cmd.Output)
	} else {
		err = g.FS.ExportSkills(ctx, dirs, cmd.Output)
	}
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	fmt.Fprintf(g.Out, "Exported %d skill(s) to %s\n", len(dirs), config.ShortenPath(cmd.Output))
	return nil
}

type SkillImportCmd struct {
	Archive string `arg:"" type:"existingfile" help:"Skill archive to import"`
	Scope   string `short:"s" enum:"global,project" default:"global" help:"Where to install the skill"`
	Project string `short:"p" type:"path" help:"Project directory for project scope"`
}

func (cmd *SkillImportCmd) Run(g *Globals, ctx context.Context) error {
	scope, err := resource.ParseScope(cmd.Scope)
	if err != nil {
		return err
	}
	if scope == resource.ScopeProject && cmd.Project == "" {
		return fmt.Errorf("--project is required for project scope")
	}

	dir, err := g.FS.ImportSkill(ctx, cmd.Archive, scope, cmd.Project)
	if err != nil {
		return fmt.Errorf("failed to import: %w", err)
	}
	fmt.Fprintf(g.Out, "Imported: %s\n", config.ShortenPath(dir))
	return nil
}
