// Package discovery finds project directories below the home directory that
// carry their own .claude/agents folder.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/moby/patternmatcher"
)

const (
	DefaultDepth = 12
	CacheTTL     = 120 * time.Second
)

var skipNames = []string{".Trash", "node_modules", ".git", ".cache", ".npm"}

type Options struct {
	Depth            int
	IncludeProtected bool
}

func (o Options) normalized() Options {
	if o.Depth == 0 {
		o.Depth = DefaultDepth
	}
	o.Depth = max(o.Depth, 1)
	return o
}

// protectedDirs lists the folders macOS guards behind privacy prompts.
// Walking into them without Full Disk Access stalls on permission dialogs.
func protectedDirs(home, goos string) []string {
	if goos != "darwin" {
		return nil
	}
	dirs := []string{}
	for _, name := range []string{
		"Applications", "Desktop", "Documents", "Downloads", "Movies",
		"Music", "Pictures", "Public", "Library",
	} {
		dirs = append(dirs, filepath.Join(home, name))
	}
	lib := filepath.Join(home, "Library")
	return append(dirs,
		filepath.Join(lib, "Mobile Documents"),
		filepath.Join(lib, "CloudStorage"),
		filepath.Join(lib, "Containers"),
	)
}

func within(p, dir string) bool {
	return p == dir || strings.HasPrefix(p, dir+string(filepath.Separator))
}

// Walk searches home for project roots. Exclude holds gitignore-style
// patterns relative to home; matching directories are not entered.
func Walk(ctx context.Context, home string, opts Options, exclude []string) ([]string, error) {
	opts = opts.normalized()
	home = filepath.Clean(home)

	pm, err := patternmatcher.New(exclude)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude pattern: %w", err)
	}

	var protected []string
	if !opts.IncludeProtected {
		protected = protectedDirs(home, runtime.GOOS)
	}
	global := filepath.Join(home, ".claude")

	var dirs []string
	err = filepath.WalkDir(home, func(p string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		if p != home {
			if slices.Contains(skipNames, d.Name()) {
				return filepath.SkipDir
			}
			if slices.ContainsFunc(protected, func(dir string) bool { return within(p, dir) }) {
				return filepath.SkipDir
			}
			rel, _ := filepath.Rel(home, p)
			if ok, _ := pm.MatchesOrParentMatches(filepath.ToSlash(rel)); ok {
				return filepath.SkipDir
			}
		}

		if d.Name() == ".claude" && p != global {
			if _, err := os.Stat(filepath.Join(p, "agents")); err == nil {
				dirs = append(dirs, filepath.Dir(p))
			}
		}

		if depthOf(home, p) >= opts.Depth {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(dirs)
	return slices.Compact(dirs), nil
}

func depthOf(home, p string) int {
	if p == home {
		return 0
	}
	rel, err := filepath.Rel(home, p)
	if err != nil {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

type entry struct {
	opts  Options
	at    time.Time
	found []string
}

// Scanner caches the last walk for CacheTTL. Concurrent callers asking for
// the same options share one walk.
type Scanner struct {
	home    string
	exclude []string
	logger  *log.Logger
	now     func() time.Time

	walkMu sync.Mutex

	mu   sync.Mutex
	last *entry

	walks int
}

func New(home string, exclude []string, logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Scanner{
		home:    home,
		exclude: exclude,
		logger:  logger.With("component", "discovery"),
		now:     time.Now,
	}
}

func (s *Scanner) lookup(opts Options) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || s.last.opts != opts || s.now().Sub(s.last.at) >= CacheTTL {
		return nil, false
	}
	return slices.Clone(s.last.found), true
}

func (s *Scanner) Discover(ctx context.Context, opts Options) ([]string, error) {
	opts = opts.normalized()
	if found, ok := s.lookup(opts); ok {
		return found, nil
	}

	s.walkMu.Lock()
	defer s.walkMu.Unlock()
	if found, ok := s.lookup(opts); ok {
		return found, nil
	}

	start := s.now()
	found, err := Walk(ctx, s.home, opts, s.exclude)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("discovery failed", "home", s.home, "err", err)
		}
		return nil, err
	}
	s.logger.Debug("discovery finished", "found", len(found), "depth", opts.Depth, "took", s.now().Sub(start))

	s.mu.Lock()
	s.last = &entry{opts: opts, at: s.now(), found: found}
	s.walks++
	s.mu.Unlock()
	return slices.Clone(found), nil
}

// Invalidate drops the cached result.
func (s *Scanner) Invalidate() {
	s.mu.Lock()
	s.last = nil
	s.mu.Unlock()
}
