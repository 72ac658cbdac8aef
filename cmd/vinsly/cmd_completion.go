package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/alecthomas/kong"
)

// Commands whose first argument is a resource name.
var resourceArgCommands = []string{"show", "fav", "rm"}

type CompletionCmd struct {
	Shell string `arg:"" enum:"bash,zsh,fish" help:"Shell type (bash, zsh, fish)"`
}

func (cmd *CompletionCmd) Run(g *Globals) error {
	cli := CLI{}
	parser, err := kong.New(&cli,
		kong.Name("vinsly"),
		kong.Description("Manage agents, skills, commands, MCP servers, hooks and memory files"),
	)
	if err != nil {
		return err
	}
	node := parser.Model.Node

	switch cmd.Shell {
	case "bash":
		return writeBash(g.Out, node)
	case "zsh":
		return writeZsh(g.Out, node)
	case "fish":
		return writeFish(g.Out, node)
	}
	return fmt.Errorf("unsupported shell: %s", cmd.Shell)
}

func visibleCommands(node *kong.Node) []*kong.Node {
	var out []*kong.Node
	for _, c := range node.Children {
		if c.Type == kong.CommandNode && !c.Hidden {
			out = append(out, c)
		}
	}
	return out
}

func flagWords(node *kong.Node) []string {
	var words []string
	for _, f := range node.Flags {
		if f.Hidden {
			continue
		}
		words = append(words, "--"+f.Name)
		if f.Short != 0 {
			words = append(words, "-"+string(f.Short))
		}
	}
	return words
}

func commandNames(node *kong.Node) []string {
	var names []string
	for _, c := range visibleCommands(node) {
		names = append(names, c.Name)
		names = append(names, c.Aliases...)
	}
	return names
}

func writeBash(w io.Writer, root *kong.Node) error {
	var b strings.Builder
	b.WriteString("_vinsly() {\n")
	b.WriteString("  local cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	b.WriteString("  if [ \"$COMP_CWORD\" -eq 1 ]; then\n")
	fmt.Fprintf(&b, "    COMPREPLY=($(compgen -W %q -- \"$cur\"))\n", strings.Join(append(commandNames(root), flagWords(root)...), " "))
	b.WriteString("    return\n  fi\n")
	b.WriteString("  case \"${COMP_WORDS[1]}\" in\n")
	for _, c := range visibleCommands(root) {
		words := append(commandNames(c), flagWords(c)...)
		pattern := strings.Join(append([]string{c.Name}, c.Aliases...), "|")
		if slices.Contains(resourceArgCommands, c.Name) {
			fmt.Fprintf(&b, "    %s) COMPREPLY=($(compgen -W \"%s $(vinsly list -n 2>/dev/null)\" -- \"$cur\")) ;;\n", pattern, strings.Join(words, " "))
			continue
		}
		fmt.Fprintf(&b, "    %s) COMPREPLY=($(compgen -W %q -- \"$cur\")) ;;\n", pattern, strings.Join(words, " "))
	}
	b.WriteString("  esac\n}\n")
	b.WriteString("complete -F _vinsly vinsly\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeZsh(w io.Writer, root *kong.Node) error {
	var b strings.Builder
	b.WriteString("#compdef vinsly\n\n")
	b.WriteString("_vinsly() {\n")
	b.WriteString("  local -a commands\n  commands=(\n")
	for _, c := range visibleCommands(root) {
		fmt.Fprintf(&b, "    %q\n", c.Name+":"+c.Help)
	}
	b.WriteString("  )\n")
	b.WriteString("  if (( CURRENT == 2 )); then\n")
	b.WriteString("    _describe 'command' commands\n    return\n  fi\n")
	b.WriteString("  case \"$words[2]\" in\n")
	for _, c := range visibleCommands(root) {
		words := append(commandNames(c), flagWords(c)...)
		if slices.Contains(resourceArgCommands, c.Name) {
			fmt.Fprintf(&b, "    %s) compadd -- %s ${(f)\"$(vinsly list -n 2>/dev/null)\"} ;;\n", c.Name, strings.Join(words, " "))
			continue
		}
		if len(words) > 0 {
			fmt.Fprintf(&b, "    %s) compadd -- %s ;;\n", c.Name, strings.Join(words, " "))
		}
	}
	b.WriteString("  esac\n}\n\n")
	b.WriteString("compdef _vinsly vinsly\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeFish(w io.Writer, root *kong.Node) error {
	var b strings.Builder
	b.WriteString("complete -c vinsly -f\n")
	for _, c := range visibleCommands(root) {
		fmt.Fprintf(&b, "complete -c vinsly -n __fish_use_subcommand -a %s -d %q\n", c.Name, c.Help)
	}
	for _, c := range visibleCommands(root) {
		cond := fmt.Sprintf("\"__fish_seen_subcommand_from %s\"", c.Name)
		for _, sub := range visibleCommands(c) {
			fmt.Fprintf(&b, "complete -c vinsly -n %s -a %s -d %q\n", cond, sub.Name, sub.Help)
		}
		for _, f := range c.Flags {
			if f.Hidden {
				continue
			}
			line := fmt.Sprintf("complete -c vinsly -n %s -l %s", cond, f.Name)
			if f.Short != 0 {
				line += " -s " + string(f.Short)
			}
			fmt.Fprintf(&b, "%s -d %q\n", line, f.Help)
		}
		if slices.Contains(resourceArgCommands, c.Name) {
			fmt.Fprintf(&b, "complete -c vinsly -n %s -a \"(vinsly list -n 2>/dev/null)\"\n", cond)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
