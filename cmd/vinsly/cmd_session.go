package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
)

var errQuit = errors.New("quit")

// sessionCLI is the grammar of one session line.
type sessionCLI struct {
	Scan    ScanCmd    `cmd:"" aliases:"s" help:"Scan global, project and watched locations"`
	List    ListCmd    `cmd:"" aliases:"ls" help:"List known resources"`
	Show    ShowCmd    `cmd:"" help:"Show resource details"`
	Fav     FavCmd     `cmd:"" help:"Toggle the favorite flag of a resource"`
	Rm      RmCmd      `cmd:"" help:"Delete resources from disk"`
	Create  CreateCmd  `cmd:"" aliases:"new" help:"Create an agent, skill or slash command"`
	Undo    UndoCmd    `cmd:"" aliases:"u" help:"Revert the last change"`
	Redo    RedoCmd    `cmd:"" help:"Reapply the last undone change"`
	History HistoryCmd `cmd:"" help:"Show the undo history"`
	Quit    QuitCmd    `cmd:"" aliases:"exit,q" help:"Leave the session"`
}

type SessionCmd struct {
	Prompt string `default:"vinsly> " help:"Prompt shown before each line"`
}

func (cmd *SessionCmd) Run(g *Globals, ctx context.Context) error {
	g.WS.Hydrate()
	in := bufio.NewScanner(g.In)
	for {
		fmt.Fprint(g.Out, cmd.Prompt)
		if !in.Scan() {
			fmt.Fprintln(g.Out)
			return in.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		err := runSessionLine(g, ctx, in.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(g.Out, "error: %v\n", err)
		}
	}
}

// runSessionLine parses and runs one line with a fresh grammar so no flag
// value carries over between lines.
func runSessionLine(g *Globals, ctx context.Context, line string) error {
	args := splitCommand(strings.TrimSpace(line))
	if len(args) == 0 {
		return nil
	}

	var grammar sessionCLI
	exited := false
	parser, err := kong.New(&grammar,
		kong.Name("vinsly"),
		kong.Writers(g.Out, g.Out),
		kong.Exit(func(int) { exited = true }),
		kong.Bind(g),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if exited {
		return nil
	}
	if err != nil {
		return err
	}
	return kctx.Run()
}

type UndoCmd struct{}

func (cmd *UndoCmd) Run(g *Globals, ctx context.Context) error {
	if !g.WS.History().CanUndo() {
		fmt.Fprintln(g.Out, "Nothing to undo.")
		return nil
	}
	next, _ := g.WS.History().Peek()
	desc, ok := g.WS.Undo(ctx)
	if !ok {
		return fmt.Errorf("undo of %q failed", next)
	}
	fmt.Fprintf(g.Out, "Undone: %s\n", desc)
	return nil
}

type RedoCmd struct{}

func (cmd *RedoCmd) Run(g *Globals, ctx context.Context) error {
	if !g.WS.History().CanRedo() {
		fmt.Fprintln(g.Out, "Nothing to redo.")
		return nil
	}
	_, next := g.WS.History().Peek()
	desc, ok := g.WS.Redo(ctx)
	if !ok {
		return fmt.Errorf("redo of %q failed", next)
	}
	fmt.Fprintf(g.Out, "Redone: %s\n", desc)
	return nil
}

type HistoryCmd struct{}

func (cmd *HistoryCmd) Run(g *Globals) error {
	h := g.WS.History()
	undo, redo := h.Peek()
	nUndo, nRedo := h.Len()
	if undo == "" {
		undo = "-"
	}
	if redo == "" {
		redo = "-"
	}
	fmt.Fprintf(g.Out, "Undo: %s (%d)\n", undo, nUndo)
	fmt.Fprintf(g.Out, "Redo: %s (%d)\n", redo, nRedo)
	return nil
}

type QuitCmd struct{}

func (cmd *QuitCmd) Run() error {
	return errQuit
}
