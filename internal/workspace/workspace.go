// Package workspace composes one scan coordinator per resource collection and
// routes mutations through a shared undo history.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"vinsly/internal/cache"
	"vinsly/internal/history"
	"vinsly/internal/parse"
	"vinsly/internal/resource"
	"vinsly/internal/scan"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

var ErrUnknownCollection = errors.New("unknown collection")

// Backend lists and mutates the resources of one collection.
type Backend interface {
	scan.Lister
	Write(ctx context.Context, d resource.Draft) (string, error)
	Delete(ctx context.Context, r resource.Resource) error
}

// Snapshotter is implemented by backends that can preserve what a delete
// removes beyond the resource content itself, such as skill assets.
type Snapshotter interface {
	Snapshot(ctx context.Context, r resource.Resource) (string, error)
	Restore(ctx context.Context, snapshot string, r resource.Resource) error
	Discard(snapshot string) error
}

type Spec struct {
	Name  string
	Kinds []resource.Kind
}

// Specs lists the collections of a workspace in display order.
func Specs() []Spec {
	return []Spec{
		{Name: "agents", Kinds: []resource.Kind{resource.KindAgent, resource.KindSkill}},
		{Name: "commands", Kinds: []resource.Kind{resource.KindCommand}},
		{Name: "mcp", Kinds: []resource.Kind{resource.KindMCP}},
		{Name: "hooks", Kinds: []resource.Kind{resource.KindHook}},
		{Name: "memory", Kinds: []resource.Kind{resource.KindMemory}},
	}
}

type Collection struct {
	*scan.Coordinator
	kinds   []resource.Kind
	backend Backend
	parse   scan.ParseFunc
}

func (c *Collection) Kinds() []resource.Kind {
	return slices.Clone(c.kinds)
}

func (c *Collection) Handles(k resource.Kind) bool {
	return slices.Contains(c.kinds, k)
}

type Options struct {
	// Backend returns the backend serving the given kinds.
	Backend func(kinds ...resource.Kind) Backend
	// Parse defaults to parse.Any.
	Parse scan.ParseFunc
	// CacheDir holds one cache file per collection. Empty disables
	// persistence.
	CacheDir    string
	Watched     func() []string
	HistorySize int
	Logger      *log.Logger
}

type Workspace struct {
	collections []*Collection
	history     *history.Manager
	logger      *log.Logger
}

func New(opts Options) (*Workspace, error) {
	if opts.Backend == nil {
		return nil, errors.New("workspace: no backend")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	parseFn := opts.Parse
	if parseFn == nil {
		parseFn = parse.Any
	}

	w := &Workspace{
		history: history.New(opts.HistorySize, logger),
		logger:  logger.With("component", "workspace"),
	}
	for _, spec := range Specs() {
		var store *cache.Store
		if opts.CacheDir != "" {
			s, err := cache.NewStore(filepath.Join(opts.CacheDir, spec.Name+".yaml"))
			if err != nil {
				return nil, fmt.Errorf("failed to open %s cache: %w", spec.Name, err)
			}
			store = s
		}
		b := opts.Backend(spec.Kinds...)
		w.collections = append(w.collections, &Collection{
			Coordinator: scan.New(scan.Options{
				Name:    spec.Name,
				Lister:  b,
				Parse:   parseFn,
				Store:   store,
				Watched: opts.Watched,
				Logger:  logger,
			}),
			kinds:   spec.Kinds,
			backend: b,
			parse:   parseFn,
		})
	}
	return w, nil
}

func (w *Workspace) Collections() []*Collection {
	return slices.Clone(w.collections)
}

func (w *Workspace) Collection(name string) (*Collection, error) {
	for _, c := range w.collections {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
}

// For returns the collection holding kind.
func (w *Workspace) For(kind resource.Kind) (*Collection, error) {
	for _, c := range w.collections {
		if c.Handles(kind) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: no collection for kind %q", ErrUnknownCollection, kind)
}

func (w *Workspace) History() *history.Manager {
	return w.history
}

// Hydrate warms every collection from its cache.
func (w *Workspace) Hydrate() {
	var g errgroup.Group
	for _, c := range w.collections {
		g.Go(func() error {
			c.Hydrate()
			return nil
		})
	}
	_ = g.Wait()
}

// Items returns the resources of every collection, optionally restricted to
// kinds.
func (w *Workspace) Items(kinds ...resource.Kind) []resource.Resource {
	var out []resource.Resource
	for _, c := range w.collections {
		for _, r := range c.Items() {
			if len(kinds) == 0 || slices.Contains(kinds, r.Kind) {
				out = append(out, r)
			}
		}
	}
	return out
}

// Find locates a resource by identity key across all collections.
func (w *Workspace) Find(key string) (*Collection, resource.Resource, bool) {
	for _, c := range w.collections {
		if r, ok := c.Get(key); ok {
			return c, r, true
		}
	}
	return nil, resource.Resource{}, false
}

type DetailedResult struct {
	Total     int                    `json:"total"`
	New       int                    `json:"new"`
	Breakdown map[string]scan.Result `json:"breakdown"`
	Failed    map[string]string      `json:"failed,omitempty"`
}

// FullScan runs req against every collection concurrently and waits for all
// of them. A collection that fails contributes nothing to the totals and is
// reported in Failed. The error is non-nil only when ctx is cancelled.
func (w *Workspace) FullScan(ctx context.Context, req scan.Request) (DetailedResult, error) {
	type settled struct {
		res scan.Result
		err error
	}
	results := make([]settled, len(w.collections))

	var g errgroup.Group
	for i, c := range w.collections {
		g.Go(func() error {
			res, err := c.Scan(ctx, req)
			results[i] = settled{res: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := DetailedResult{Breakdown: make(map[string]scan.Result, len(w.collections))}
	for i, c := range w.collections {
		r := results[i]
		if r.err != nil {
			w.logger.Error("collection scan failed", "collection", c.Name(), "err", r.err)
			if out.Failed == nil {
				out.Failed = make(map[string]string)
			}
			out.Failed[c.Name()] = r.err.Error()
			out.Breakdown[c.Name()] = scan.Result{}
			continue
		}
		out.Breakdown[c.Name()] = r.res
		out.Total += r.res.Total
		out.New += r.res.New
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

// Cancel aborts in-flight scans of every collection.
func (w *Workspace) Cancel() {
	for _, c := range w.collections {
		c.Cancel()
	}
}

// Reset forgets everything: held collections, caches, seen-ledgers and the
// undo history.
func (w *Workspace) Reset() error {
	w.history.Clear()

	var errs []error
	for _, c := range w.collections {
		if err := c.Reset(); err != nil {
			errs = append(errs, err)
		}
	}
	w.logger.Info("workspace reset")
	return errors.Join(errs...)
}
