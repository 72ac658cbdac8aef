package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"vinsly/cmd/vinsly/render"
	"vinsly/internal/config"
	"vinsly/internal/logging"

	"github.com/alecthomas/kong"
)

type CLI struct {
	Scan       ScanCmd       `cmd:"" aliases:"s" help:"Scan global, project and watched locations"`
	List       ListCmd       `cmd:"" aliases:"ls" help:"List known resources"`
	Show       ShowCmd       `cmd:"" help:"Show resource details"`
	Fav        FavCmd        `cmd:"" help:"Toggle the favorite flag of a resource"`
	Rm         RmCmd         `cmd:"" help:"Delete resources from disk"`
	Create     CreateCmd     `cmd:"" aliases:"new" help:"Create an agent, skill or slash command"`
	Discover   DiscoverCmd   `cmd:"" help:"Find project directories under the home directory"`
	Dirs       DirsCmd       `cmd:"" help:"Manage watched directories"`
	Skill      SkillCmd      `cmd:"" help:"Export and import skills"`
	Session    SessionCmd    `cmd:"" help:"Interactive session with undo and redo"`
	Reset      ResetCmd      `cmd:"" help:"Forget cached resources and history"`
	Completion CompletionCmd `cmd:"" help:"Generate shell completions"`

	SettingsPath string `name:"settings" help:"Path to settings file"`
	CacheDir     string `name:"cache-dir" help:"Directory holding collection caches"`
	NoCache      bool   `name:"no-cache" help:"Do not read or write collection caches"`
	LogLevel     string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFormat    string `name:"log-format" help:"Log format (auto, text, json, logfmt)"`
}

func (c *CLI) AfterApply(ctx *kong.Context) error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	home, err := env.HomeDir()
	if err != nil {
		return err
	}

	settingsPath := c.SettingsPath
	if settingsPath == "" {
		settingsPath = env.SettingsPath()
	}
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	env.Apply(&settings)
	if c.LogLevel != "" {
		settings.LogLevel = c.LogLevel
	}
	if c.LogFormat != "" {
		settings.LogFormat = c.LogFormat
	}

	logger, err := logging.New(os.Stderr, logging.Options{
		Level:  settings.LogLevel,
		Format: settings.LogFormat,
		Prefix: "vinsly",
	})
	if err != nil {
		return fmt.Errorf("invalid logging settings: %w", err)
	}

	cacheDir := c.CacheDir
	if cacheDir == "" {
		cacheDir = config.CacheDir()
	}
	if c.NoCache {
		cacheDir = ""
	}

	globals, err := newGlobals(home, &settings, settingsPath, cacheDir, logger, os.Stdout)
	if err != nil {
		return err
	}
	globals.In = os.Stdin
	globals.Render = render.NewLipglossRendererAuto(os.Stdout)
	ctx.Bind(globals)
	return nil
}

func main() {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("vinsly"),
		kong.Description("Manage agents, skills, commands, MCP servers, hooks and memory files"),
		kong.UsageOnError(),
		kong.BindTo(sigCtx, (*context.Context)(nil)),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
