// Package logging builds the structured logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
)

const (
	FormatAuto   = "auto"
	FormatText   = "text"
	FormatJSON   = "json"
	FormatLogfmt = "logfmt"
)

type Options struct {
	Level  string
	Format string
	Prefix string
}

func formatter(w io.Writer, format string) (log.Formatter, error) {
	switch strings.ToLower(format) {
	case "", FormatAuto:
		if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			return log.TextFormatter, nil
		}
		return log.LogfmtFormatter, nil
	case FormatText:
		return log.TextFormatter, nil
	case FormatJSON:
		return log.JSONFormatter, nil
	case FormatLogfmt:
		return log.LogfmtFormatter, nil
	default:
		return 0, fmt.Errorf("unknown log format %q", format)
	}
}

// New returns a logger writing to w. An empty level means warn.
func New(w io.Writer, opts Options) (*log.Logger, error) {
	level := log.WarnLevel
	if opts.Level != "" {
		l, err := log.ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		level = l
	}

	f, err := formatter(w, opts.Format)
	if err != nil {
		return nil, err
	}

	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       f,
		Prefix:          opts.Prefix,
		ReportTimestamp: f != log.TextFormatter,
	}), nil
}

// Discard is a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
