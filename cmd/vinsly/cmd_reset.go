package main

import (
	"errors"
	"fmt"
	"vinsly/internal/ui"

	"github.com/charmbracelet/huh"
)

type ResetCmd struct {
	Force bool `short:"f" help:"Do not ask for confirmation"`
}

func (cmd *ResetCmd) Run(g *Globals) error {
	if !cmd.Force {
		confirmed := false
		err := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title("Forget all cached resources and history?").
				Value(&confirmed),
		)).WithTheme(ui.WizardTheme()).Run()
		if errors.Is(err, huh.ErrUserAborted) || (err == nil && !confirmed) {
			fmt.Fprintln(g.Out, "Reset cancelled.")
			return nil
		}
		if err != nil {
			return err
		}
	}

	if err := g.WS.Reset(); err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}
	g.Discovery.Invalidate()
	fmt.Fprintln(g.Out, "Workspace reset.")
	return nil
}
