package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"vinsly/internal/config"
	"vinsly/internal/logging"
	"vinsly/internal/resource"
	"vinsly/internal/scan"
	"vinsly/internal/workspace"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	home     string
	cacheDir string
	settings string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	home := filepath.Join(dir, "home")
	require.NoError(t, os.MkdirAll(home, 0o755))
	return testEnv{
		home:     home,
		cacheDir: filepath.Join(dir, "cache"),
		settings: filepath.Join(dir, "settings.yaml"),
	}
}

func (e testEnv) globals(t *testing.T) (*Globals, *bytes.Buffer) {
	t.Helper()
	settings, err := config.LoadSettings(e.settings)
	require.NoError(t, err)
	buf := &bytes.Buffer{}
	g, err := newGlobals(e.home, &settings, e.settings, e.cacheDir, logging.Discard(), buf)
	require.NoError(t, err)
	return g, buf
}

func newTestGlobals(t *testing.T) (*Globals, *bytes.Buffer, string) {
	t.Helper()
	env := newTestEnv(t)
	g, buf := env.globals(t)
	return g, buf, env.home
}

func writeFile(t *testing.T, p, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func writeAgent(t *testing.T, root, name, desc string) string {
	t.Helper()
	p := filepath.Join(root, ".claude", "agents", name+".md")
	writeFile(t, p, "---\nname: "+name+"\ndescription: "+desc+"\n---\nYou review code.\n")
	return p
}

func runScan(t *testing.T, g *Globals) {
	t.Helper()
	cmd := ScanCmd{Global: true, Watched: true}
	require.NoError(t, cmd.Run(g, context.Background()))
}

func TestScanCmd_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("reports totals and new resources", func(t *testing.T) {
		g, out, home := newTestGlobals(t)
		writeAgent(t, home, "reviewer", "Reviews code")

		cmd := ScanCmd{Global: true, Watched: true}
		require.NoError(t, cmd.Run(g, ctx))

		assert.Contains(t, out.String(), "Scanned 1 resources, 1 new")
		assert.Contains(t, out.String(), "agents")
	})

	t.Run("second scan reports nothing new", func(t *testing.T) {
		g, out, home := newTestGlobals(t)
		writeAgent(t, home, "reviewer", "Reviews code")
		runScan(t, g)

		out.Reset()
		runScan(t, g)

		assert.Contains(t, out.String(), "Scanned 1 resources\n")
		assert.NotContains(t, out.String(), "new")
	})

	t.Run("seen resources survive a restart", func(t *testing.T) {
		env := newTestEnv(t)
		writeAgent(t, env.home, "reviewer", "Reviews code")
		first, _ := env.globals(t)
		runScan(t, first)

		second, out := env.globals(t)
		runScan(t, second)

		assert.Contains(t, out.String(), "Scanned 1 resources\n")
	})

	t.Run("project directories are scanned", func(t *testing.T) {
		g, out, _ := newTestGlobals(t)
		project := t.TempDir()
		writeFile(t, filepath.Join(project, ".claude", "commands", "deploy.md"), "---\ndescription: Ship it\n---\n")

		cmd := ScanCmd{Global: true, Project: []string{project}, JSON: true}
		require.NoError(t, cmd.Run(g, ctx))

		var res workspace.DetailedResult
		require.NoError(t, json.Unmarshal(out.Bytes(), &res))
		assert.Equal(t, 1, res.Total)
		assert.Equal(t, 1, res.Breakdown["commands"].Total)
		assert.Empty(t, res.Failed)
	})

	t.Run("watched directories come from settings", func(t *testing.T) {
		g, out, _ := newTestGlobals(t)
		watched := t.TempDir()
		writeAgent(t, watched, "watcher", "Watches")
		g.Settings.AddWatched(watched)

		cmd := ScanCmd{Global: true, Watched: true, JSON: true}
		require.NoError(t, cmd.Run(g, ctx))

		var res workspace.DetailedResult
		require.NoError(t, json.Unmarshal(out.Bytes(), &res))
		assert.Equal(t, 1, res.Breakdown["agents"].Total)
	})

	t.Run("hand-edited watched directory picks up edits", func(t *testing.T) {
		g, _, _ := newTestGlobals(t)
		watched := t.TempDir()
		writeAgent(t, watched, "a", "v1")
		g.Settings.WatchedDirectories = []string{filepath.Dir(watched) + "//" + filepath.Base(watched) + "/"}
		runScan(t, g)

		writeAgent(t, watched, "a", "v2")
		runScan(t, g)

		items := g.WS.Items(resource.KindAgent)
		require.Len(t, items, 1)
		assert.Equal(t, "v2", items[0].Description)
	})

	t.Run("non-canonical project root drops deleted files", func(t *testing.T) {
		g, _, _ := newTestGlobals(t)
		project := t.TempDir()
		p := writeAgent(t, project, "a", "v1")
		req := scan.Request{ProjectPaths: []string{filepath.Dir(project) + "/./" + filepath.Base(project)}}
		_, err := g.WS.FullScan(ctx, req)
		require.NoError(t, err)

		require.NoError(t, os.Remove(p))
		res, err := g.WS.FullScan(ctx, req)

		require.NoError(t, err)
		assert.Equal(t, 0, res.Total)
		assert.Empty(t, g.WS.Items())
	})

	t.Run("discovered projects are included", func(t *testing.T) {
		g, out, home := newTestGlobals(t)
		writeAgent(t, filepath.Join(home, "code", "app"), "local", "Project agent")

		cmd := ScanCmd{Global: true, Discover: true, JSON: true}
		require.NoError(t, cmd.Run(g, ctx))

		var res workspace.DetailedResult
		require.NoError(t, json.Unmarshal(out.Bytes(), &res))
		assert.Equal(t, 1, res.Breakdown["agents"].Total)
	})

	t.Run("cancelled context is an error", func(t *testing.T) {
		g, _, _ := newTestGlobals(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		cmd := ScanCmd{Global: true}
		err := cmd.Run(g, cctx)

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWatchedDirs(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	cwd, err := os.Getwd()
	require.NoError(t, err)
	settings := &config.Settings{WatchedDirectories: []string{"~/notes", "rel/dir", "/abs//x/"}}

	got := watchedDirs(settings, logging.Discard())

	assert.Equal(t, []string{filepath.Join(home, "notes"), filepath.Join(cwd, "rel", "dir"), "/abs/x"}, got)
}

func TestListCmd_Run(t *testing.T) {
	t.Run("empty workspace", func(t *testing.T) {
		g, out, _ := newTestGlobals(t)

		cmd := ListCmd{}
		require.NoError(t, cmd.Run(g))

		assert.Equal(t, "No resources found.\n", out.String())
	})

	t.Run("lists scanned resources", func(t *testing.T) {
		g, out, home := newTestGlobals(t)
		writeAgent(t, home, "reviewer", "Reviews code")
		runScan(t, g)

		out.Reset()
		cmd := ListCmd{}
		require.NoError(t, cmd.Run(g))

		assert.Contains(t, out.String(), "reviewer")
		assert.Contains(t, out.String(), "agent · global")
		assert.Contains(t, out.String(), "Reviews code")
	})

	t.Run("reads the cache without scanning", func(t *testing.T) {
		env := newTestEnv(t)
		writeAgent(t, env.home, "reviewer", "Reviews code")
		first, _ := env.globals(t)
		runScan(t, first)

		second, out := env.globals(t)
		cmd := ListCmd{Names: true}
		require.NoError(t, cmd.Run(second))

		assert.Equal(t, "reviewer\n", out.String())
	})

	t.Run("filters by kind scope and favorite", func(t *testing.T) {
		g, out, home := newTestGlobals(t)
		writeAgent(t, home, "reviewer", "Reviews code")
		writeFile(t, filepath.Join(home, ".claude", "commands", "deploy.md"), "---\ndescription: Ship it\n---\n")
		runScan(t, g)

		out.Reset()
		require.NoError(t, (&ListCmd{Kind: []string{"command"}, Names: true}).Run(g))
		assert.Equal(t, "deploy\n", out.String())

		out.Reset()
		require.NoError(t, (&ListCmd{Scope: "project", Names: true}).Run(g))
		assert.Empty(t, out.String())

		require.NoError(t, (&FavCmd{Query: "reviewer"}).Run(g, context.Background()))
		out.Reset()
		require.NoError(t, (&ListCmd{Favorites: true, Names: true}).Run(g))
		assert.Equal(t, "reviewer\n", out.String())
	})

	t.Run("json output", func(t *testing.T) {
		g, out, home := newTestGlobals(t)
		p := writeAgent(t, home, "reviewer", "Reviews code")
		runScan(t, g)

		out.Reset()
		require.NoError(t, (&ListCmd{JSON: true}).Run(g))

		var listed []listedResource
		require.NoError(t, json.Unmarshal(out.Bytes(), &listed))
		require.Len(t, listed, 1)
		assert.Equal(t, "global:"+p, listed[0].Key)
		assert.Equal(t, p, listed[0].Locator)
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		g, _, _ := newTestGlobals(t)

		err := (&ListCmd{Kind: []string{"widget"}}).Run(g)

		assert.ErrorContains(t, err, "unknown kind")
	})
}

func TestShowCmd_Run(t *testing.T) {
	t.Run("displays resource fields", func(t *testing.T) {
		g, out, home := newTestGlobals(t)
		writeAgent(t, home, "reviewer", "Reviews code")
		runScan(t, g)

		out.Reset()
		require.NoError(t, (&ShowCmd{Query: "reviewer", Content: true}).Run(g))

		output := out.String()
		assert.Contains(t, output, "Name:     reviewer")
		assert.Contains(t, output, "Kind:     agent")
		assert.Contains(t, output, "About:    Reviews code")
		assert.Contains(t, output, "You review code.")
	})

	t.Run("path only", func(t *testing.T) {
		g, out, home := newTestGlobals(t)
		p := writeAgent(t, home, "reviewer", "Reviews code")
		runScan(t, g)

		out.Reset()
		require.NoError(t, (&ShowCmd{Query: "REVIEWER", Path: true}).Run(g))

		assert.Equal(t, p+"\n", out.String())
	})

	t.Run("ambiguous query lists matches", func(t *testing.T) {
		g, out, home := newTestGlobals(t)
		writeAgent(t, home, "rev-a", "A")
		writeAgent(t, home, "rev-b", "B")
		runScan(t, g)

		out.Reset()
		require.NoError(t, (&ShowCmd{Query: "rev"}).Run(g))

		assert.Contains(t, out.String(), "Multiple resources match")
		assert.Contains(t, out.String(), "rev-a [agent, global]")
		assert.Contains(t, out.String(), "rev-b [agent, global]")
	})

	t.Run("exact name wins over partial matches", func(t *testing.T) {
		g, out, home := newTestGlobals(t)
		writeAgent(t, home, "rev", "Exact")
		writeAgent(t, home, "rev-b", "B")
		runScan(t, g)

		out.Reset()
		require.NoError(t, (&ShowCmd{Query: "rev"}).Run(g))

		assert.Contains(t, out.String(), "About:    Exact")
	})

	t.Run("no match is an error", func(t *testing.T) {
		g, _, _ := newTestGlobals(t)

		err := (&ShowCmd{Query: "ghost"}).Run(g)

		assert.ErrorContains(t, err, "no resource found matching: ghost")
	})
}

func TestFavCmd_Run(t *testing.T) {
	g, out, home := newTestGlobals(t)
	writeAgent(t, home, "reviewer", "Reviews code")
	runScan(t, g)
	ctx := context.Background()

	out.Reset()
	require.NoError(t, (&FavCmd{Query: "reviewer"}).Run(g, ctx))
	assert.Equal(t, "Favorited: reviewer\n", out.String())

	out.Reset()
	require.NoError(t, (&FavCmd{Query: "reviewer"}).Run(g, ctx))
	assert.Equal(t, "Unfavorited: reviewer\n", out.String())
}

func TestRmCmd_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes files", func(t *testing.T) {
		g, out, home := newTestGlobals(t)
		a := writeAgent(t, home, "alpha", "A")
		b := writeAgent(t, home, "beta", "B")
		runScan(t, g)

		out.Reset()
		require.NoError(t, (&RmCmd{Queries: []string{"alpha", "beta"}}).Run(g, ctx))

		assert.Equal(t, "Removed: alpha\nRemoved: beta\n", out.String())
		assert.NoFileExists(t, a)
		assert.NoFileExists(t, b)
		assert.Empty(t, g.WS.Items())
	})

	t.Run("unknown name deletes nothing", func(t *testing.T) {
		g, _, home := newTestGlobals(t)
		a := writeAgent(t, home, "alpha", "A")
		runScan(t, g)

		err := (&RmCmd{Queries: []string{"alpha", "ghost"}}).Run(g, ctx)

		assert.Error(t, err)
		assert.FileExists(t, a)
	})
}

func TestCreateCmd_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a global agent", func(t *testing.T) {
		g, out, home := newTestGlobals(t)

		cmd := CreateCmd{Name: "helper", Kind: "agent", Scope: "global", Description: "Helps review", Tools: []string{"Read", "Grep"}}
		require.NoError(t, cmd.Run(g, ctx))

		p := filepath.Join(home, ".claude", "agents", "helper.md")
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "---\nname: helper\n"))
		assert.Contains(t, string(data), "description: Helps review")
		assert.Contains(t, out.String(), "Saved agent helper")

		out.Reset()
		require.NoError(t, (&ShowCmd{Query: "helper"}).Run(g))
		assert.Contains(t, out.String(), "Tools:    Read, Grep")
	})

	t.Run("namespaced command", func(t *testing.T) {
		g, _, home := newTestGlobals(t)

		cmd := CreateCmd{Name: "git:commit", Kind: "command", Scope: "global", Body: "Write a commit message."}
		require.NoError(t, cmd.Run(g, ctx))

		assert.FileExists(t, filepath.Join(home, ".claude", "commands", "git", "commit.md"))
	})

	t.Run("project skill", func(t *testing.T) {
		g, _, _ := newTestGlobals(t)
		project := t.TempDir()

		cmd := CreateCmd{Name: "pdf", Kind: "skill", Scope: "project", Project: project}
		require.NoError(t, cmd.Run(g, ctx))

		assert.FileExists(t, filepath.Join(project, ".claude", "skills", "pdf", "SKILL.md"))
		items := g.WS.Items(resource.KindSkill)
		require.Len(t, items, 1)
		assert.Equal(t, resource.ScopeProject, items[0].Scope)
	})

	t.Run("invalid name", func(t *testing.T) {
		g, _, _ := newTestGlobals(t)

		err := (&CreateCmd{Name: "a/b", Kind: "agent", Scope: "global"}).Run(g, ctx)

		assert.ErrorIs(t, err, resource.ErrInvalidName)
	})
}

func TestValidateCreateName(t *testing.T) {
	assert.EqualError(t, validateCreateName("agent")("  "), "Name cannot be empty")
	assert.NoError(t, validateCreateName("command")("git:commit"))
	assert.ErrorIs(t, validateCreateName("agent")("git:commit/x"), resource.ErrInvalidName)
	assert.ErrorIs(t, validateCreateName("command")("git:.."), resource.ErrInvalidName)
}

func TestDiscoverCmd_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("prints and saves found projects", func(t *testing.T) {
		g, out, home := newTestGlobals(t)
		project := filepath.Join(home, "code", "app")
		writeAgent(t, project, "local", "Project agent")
		writeAgent(t, home, "global", "Global agent")

		require.NoError(t, (&DiscoverCmd{Save: true}).Run(g, ctx))

		assert.Contains(t, out.String(), project)
		saved, err := config.LoadSettings(g.SettingsPath)
		require.NoError(t, err)
		assert.Equal(t, []string{project}, saved.ProjectPaths)
	})

	t.Run("json output with nothing found", func(t *testing.T) {
		g, out, _ := newTestGlobals(t)

		require.NoError(t, (&DiscoverCmd{JSON: true, Fresh: true}).Run(g, ctx))

		assert.JSONEq(t, "[]", out.String())
	})
}

func TestDirsCmd_Run(t *testing.T) {
	g, out, _ := newTestGlobals(t)
	dir := t.TempDir()

	require.NoError(t, (&DirsAddCmd{Path: dir}).Run(g))
	assert.Contains(t, out.String(), "Watching: ")

	out.Reset()
	require.NoError(t, (&DirsAddCmd{Path: dir}).Run(g))
	assert.Contains(t, out.String(), "Already watched: ")

	out.Reset()
	require.NoError(t, (&DirsLsCmd{}).Run(g))
	assert.Contains(t, out.String(), config.ShortenPath(dir))

	saved, err := config.LoadSettings(g.SettingsPath)
	require.NoError(t, err)
	assert.Equal(t, []string{dir}, saved.WatchedDirectories)

	require.NoError(t, (&DirsRmCmd{Path: dir}).Run(g))
	assert.Error(t, (&DirsRmCmd{Path: dir}).Run(g))

	out.Reset()
	require.NoError(t, (&DirsLsCmd{}).Run(g))
	assert.Equal(t, "No watched directories.\n", out.String())

	assert.ErrorContains(t, (&DirsAddCmd{Path: filepath.Join(dir, "missing")}).Run(g), "path does not exist")
}

func TestSkillCmd_Run(t *testing.T) {
	ctx := context.Background()
	g, out, home := newTestGlobals(t)
	skillDir := filepath.Join(home, ".claude", "skills", "pdf")
	writeFile(t, filepath.Join(skillDir, "SKILL.md"), "---\nname: pdf\ndescription: Reads PDFs\n---\n")
	writeFile(t, filepath.Join(skillDir, "scripts", "extract.py"), "print('hi')\n")
	runScan(t, g)

	archive := filepath.Join(t.TempDir(), "pdf.zip")
	require.NoError(t, (&SkillExportCmd{Names: []string{"pdf"}, Output: archive}).Run(g, ctx))
	assert.Contains(t, out.String(), "Exported 1 skill(s)")
	require.FileExists(t, archive)

	project := t.TempDir()
	require.NoError(t, (&SkillImportCmd{Archive: archive, Scope: "project", Project: project}).Run(g, ctx))
	assert.FileExists(t, filepath.Join(project, ".claude", "skills", "pdf", "scripts", "extract.py"))

	err := (&SkillImportCmd{Archive: archive, Scope: "project"}).Run(g, ctx)
	assert.ErrorContains(t, err, "--project is required")
}

func TestSessionCmd_Run(t *testing.T) {
	g, out, home := newTestGlobals(t)
	p := writeAgent(t, home, "reviewer", "Reviews code")
	g.In = strings.NewReader(strings.Join([]string{
		"scan",
		"undo",
		"rm reviewer",
		"undo",
		"redo",
		"undo",
		"history",
		"bogus",
		"",
		"quit",
		"rm reviewer",
	}, "\n"))

	require.NoError(t, (&SessionCmd{Prompt: "> "}).Run(g, context.Background()))

	output := out.String()
	assert.Contains(t, output, "Scanned 1 resources, 1 new")
	assert.Contains(t, output, "Nothing to undo.")
	assert.Contains(t, output, "Removed: reviewer")
	assert.Contains(t, output, "Undone: delete 1 resources")
	assert.Contains(t, output, "Redone: delete 1 resources")
	assert.Contains(t, output, "Undo: - (0)")
	assert.Contains(t, output, "Redo: delete 1 resources (1)")
	assert.Contains(t, output, "error: ")
	assert.FileExists(t, p)
}

func TestSessionCmd_EndOfInput(t *testing.T) {
	g, out, _ := newTestGlobals(t)
	g.In = strings.NewReader("list\n")

	require.NoError(t, (&SessionCmd{Prompt: "> "}).Run(g, context.Background()))

	assert.Contains(t, out.String(), "No resources found.")
}

func TestResetCmd_Run(t *testing.T) {
	env := newTestEnv(t)
	writeAgent(t, env.home, "reviewer", "Reviews code")
	g, out := env.globals(t)
	runScan(t, g)

	require.NoError(t, (&ResetCmd{Force: true}).Run(g))
	assert.Contains(t, out.String(), "Workspace reset.")

	fresh, freshOut := env.globals(t)
	require.NoError(t, (&ListCmd{}).Run(fresh))
	assert.Equal(t, "No resources found.\n", freshOut.String())
}

func TestCompletionCmd_Run(t *testing.T) {
	for _, tc := range []struct {
		shell string
		want  []string
	}{
		{"bash", []string{"complete -F _vinsly vinsly", "scan|s)", "vinsly list -n"}},
		{"zsh", []string{"#compdef vinsly", "\"scan:Scan global, project and watched locations\""}},
		{"fish", []string{"-n __fish_use_subcommand -a scan", "-l favorites -s f"}},
	} {
		t.Run(tc.shell, func(t *testing.T) {
			g, buf, _ := newTestGlobals(t)

			require.NoError(t, (&CompletionCmd{Shell: tc.shell}).Run(g))

			for _, want := range tc.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func newParser(t *testing.T, cli *CLI) *kong.Kong {
	t.Helper()
	env := newTestEnv(t)
	t.Setenv("VINSLY_HOME", env.home)
	t.Setenv("VINSLY_SETTINGS", env.settings)
	t.Setenv("XDG_DATA_HOME", filepath.Join(env.home, ".local", "share"))
	parser, err := kong.New(cli,
		kong.Name("vinsly"),
		kong.Exit(func(int) {}),
		kong.BindTo(context.Background(), (*context.Context)(nil)),
	)
	require.NoError(t, err)
	return parser
}

func TestCLI_Parse(t *testing.T) {
	t.Run("scan flags", func(t *testing.T) {
		cli := CLI{}
		parser := newParser(t, &cli)

		_, err := parser.Parse([]string{"scan", "--no-global", "-p", "/work/app", "--json"})

		require.NoError(t, err)
		assert.False(t, cli.Scan.Global)
		assert.True(t, cli.Scan.Watched)
		assert.Equal(t, []string{"/work/app"}, cli.Scan.Project)
		assert.True(t, cli.Scan.JSON)
	})

	t.Run("global flags", func(t *testing.T) {
		cli := CLI{}
		parser := newParser(t, &cli)

		_, err := parser.Parse([]string{"--log-level=debug", "--no-cache", "list"})

		require.NoError(t, err)
		assert.Equal(t, "debug", cli.LogLevel)
		assert.True(t, cli.NoCache)
	})

	t.Run("dirs defaults to ls", func(t *testing.T) {
		cli := CLI{}
		parser := newParser(t, &cli)

		_, err := parser.Parse([]string{"dirs"})

		assert.NoError(t, err)
	})

	t.Run("bad log level fails", func(t *testing.T) {
		cli := CLI{}
		parser := newParser(t, &cli)

		_, err := parser.Parse([]string{"--log-level=loud", "list"})

		assert.Error(t, err)
	})
}

func TestCommandAliases(t *testing.T) {
	for _, alias := range []string{"s", "ls", "new"} {
		t.Run(alias, func(t *testing.T) {
			cli := CLI{}
			parser := newParser(t, &cli)

			require.NotPanics(t, func() {
				_, _ = parser.Parse([]string{alias, "--help"})
			})
		})
	}
}
