// Command scan-helper walks a home directory for project folders holding
// agent definitions and prints them as a JSON array.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"vinsly/internal/config"
	"vinsly/internal/discovery"
	"vinsly/internal/logging"

	"github.com/alecthomas/kong"
)

type CLI struct {
	Home             string   `help:"Directory to walk (default: the user's home)"`
	Depth            int      `default:"12" help:"Maximum depth below home"`
	IncludeProtected bool     `help:"Descend into macOS protected folders"`
	Exclude          []string `short:"x" help:"Patterns relative to home to skip"`
	LogLevel         string   `name:"log-level" default:"warn" help:"Log level"`
}

func (c *CLI) Run(ctx context.Context, out io.Writer) error {
	home := c.Home
	if home == "" {
		env, err := config.LoadEnv()
		if err != nil {
			return err
		}
		if home, err = env.HomeDir(); err != nil {
			return err
		}
	}

	logger, err := logging.New(os.Stderr, logging.Options{Level: c.LogLevel, Prefix: "scan-helper"})
	if err != nil {
		return err
	}

	found, err := discovery.New(home, c.Exclude, logger).Discover(ctx, discovery.Options{
		Depth:            c.Depth,
		IncludeProtected: c.IncludeProtected,
	})
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	if found == nil {
		found = []string{}
	}
	return json.NewEncoder(out).Encode(found)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("scan-helper"),
		kong.Description("Print project directories with agent definitions as JSON"),
		kong.UsageOnError(),
	)
	err := cli.Run(ctx, os.Stdout)
	kctx.FatalIfErrorf(err)
}
