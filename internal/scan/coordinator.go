// Package scan owns one resource collection: it runs listing passes against a
// backend, merges them into the held collection and keeps the held state in
// step with a warm-start cache.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"vinsly/internal/cache"
	"vinsly/internal/resource"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")

const (
	entryVersion  = 1
	collectionKey = "collection"
	seenKey       = "seen"
)

// Lister is the read side of a backend.
type Lister interface {
	ListGlobal(ctx context.Context) ([]resource.Raw, error)
	ListForProject(ctx context.Context, path string) ([]resource.Raw, error)
	ListForDirectory(ctx context.Context, dir string) ([]resource.Raw, error)
}

type ParseFunc func(resource.Raw) (resource.Resource, error)

type Request struct {
	IncludeGlobal         bool     `json:"include_global"`
	ProjectPaths          []string `json:"project_paths,omitempty"`
	AdditionalDirectories []string `json:"additional_directories,omitempty"`
	UseWatchedDirectories bool     `json:"use_watched_directories"`
}

type Result struct {
	Total int `json:"total"`
	New   int `json:"new"`
}

// Entry is the cached form of a collection.
type Entry struct {
	Version int                 `yaml:"version"`
	Items   []resource.Resource `yaml:"items"`
}

type Options struct {
	Name   string
	Lister Lister
	Parse  ParseFunc
	// Store is optional; without it nothing is persisted.
	Store   *cache.Store
	Watched func() []string
	Logger  *log.Logger
}

type Coordinator struct {
	name    string
	lister  Lister
	parse   ParseFunc
	store   *cache.Store
	watched func() []string
	logger  *log.Logger

	hydrateOnce sync.Once

	mu       sync.Mutex
	items    []resource.Resource
	ledger   Ledger
	hydrated bool
	busy     bool
	pending  *Request
	cancel   context.CancelFunc
	commits  uint64
}

func New(opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	watched := opts.Watched
	if watched == nil {
		watched = func() []string { return nil }
	}
	return &Coordinator{
		name:    opts.Name,
		lister:  opts.Lister,
		parse:   opts.Parse,
		store:   opts.Store,
		watched: watched,
		logger:  logger.With("collection", opts.Name),
		ledger:  NewLedger(),
	}
}

func (c *Coordinator) Name() string {
	return c.name
}

// Hydrate adopts the cached collection and ledger. It runs at most once; later
// calls return immediately. A cached collection is only adopted while the held
// collection is still empty.
func (c *Coordinator) Hydrate() {
	c.hydrateOnce.Do(func() {
		entry, seen := c.readCache()

		c.mu.Lock()
		defer c.mu.Unlock()

		if len(entry.Items) > 0 && len(c.items) == 0 {
			c.items = Dedupe(entry.Items)
		}
		for _, k := range seen {
			c.ledger[k] = struct{}{}
		}
		c.ledger.Observe(c.items)
		c.hydrated = true
		c.logger.Debug("hydrated", "items", len(c.items), "seen", len(c.ledger))
	})
}

func (c *Coordinator) readCache() (Entry, []string) {
	if c.store == nil {
		return Entry{}, nil
	}
	if !c.store.Loaded() {
		if err := c.store.Load(); err != nil {
			c.logger.Warn("cache hydration failed", "err", err)
			return Entry{}, nil
		}
	}

	entry, _, err := cache.Get[Entry](c.store, collectionKey)
	if err != nil {
		c.logger.Warn("cached collection unreadable", "err", err)
		entry = Entry{}
	}
	seen, _, err := cache.Get[[]string](c.store, seenKey)
	if err != nil {
		c.logger.Warn("cached seen-ledger unreadable", "err", err)
		seen = nil
	}
	return entry, seen
}

// Scan runs req unless a scan is already in flight. In that case req takes
// the single pending slot, the in-flight scan is cancelled, and Scan returns a
// zero Result at once; the caller already running drains the slot.
//
// The returned error is non-nil only when ctx itself is cancelled.
func (c *Coordinator) Scan(ctx context.Context, req Request) (Result, error) {
	c.Hydrate()

	c.mu.Lock()
	if c.busy {
		c.pending = &req
		if c.cancel != nil {
			c.cancel()
		}
		c.mu.Unlock()
		c.logger.Debug("scan superseded by newer request")
		return Result{}, nil
	}
	c.busy = true
	c.mu.Unlock()

	runCtx := ctx
	for {
		res, err := c.run(runCtx, req)

		c.mu.Lock()
		if c.pending == nil {
			c.busy = false
			c.cancel = nil
			c.mu.Unlock()
			return res, err
		}
		req = *c.pending
		c.pending = nil
		c.mu.Unlock()

		// The pending request belongs to a caller that already returned.
		runCtx = context.WithoutCancel(ctx)
	}
}

// Cancel aborts the in-flight scan, if any, and drops the pending request.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
	if c.cancel != nil {
		c.cancel()
	}
}

type target struct {
	path    string
	project bool
}

func (c *Coordinator) targets(req Request) []target {
	seen := make(map[string]struct{})
	var out []target
	add := func(p string, project bool) {
		root := resource.NormalizeRoot(p)
		if root == "" {
			return
		}
		if _, dup := seen[root]; dup {
			return
		}
		seen[root] = struct{}{}
		out = append(out, target{path: p, project: project})
	}

	for _, p := range req.ProjectPaths {
		add(p, true)
	}
	for _, d := range req.AdditionalDirectories {
		add(d, false)
	}
	if req.UseWatchedDirectories {
		for _, d := range c.watched() {
			add(d, false)
		}
	}
	return out
}

func (c *Coordinator) run(ctx context.Context, req Request) (Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	logger := c.logger.With("scan", uuid.NewString()[:8])
	targets := c.targets(req)
	plan := Plan{IncludeGlobal: req.IncludeGlobal, Roots: make(map[string]struct{}, len(targets))}
	for _, t := range targets {
		plan.Roots[resource.NormalizeRoot(t.path)] = struct{}{}
	}
	var fresh []resource.Resource

	if req.IncludeGlobal {
		if c.interrupted(runCtx) {
			return c.discard(ctx, logger)
		}
		raws, err := c.lister.ListGlobal(runCtx)
		if err != nil {
			logger.Warn("global listing failed", "err", err)
		} else {
			fresh = append(fresh, c.parseAll(raws, logger)...)
		}
	}

	for _, t := range targets {
		if c.interrupted(runCtx) {
			return c.discard(ctx, logger)
		}
		var (
			raws []resource.Raw
			err  error
		)
		if t.project {
			raws, err = c.lister.ListForProject(runCtx, t.path)
		} else {
			raws, err = c.lister.ListForDirectory(runCtx, t.path)
		}
		if err != nil {
			logger.Warn("directory listing failed", "dir", t.path, "err", err)
			continue
		}
		fresh = append(fresh, c.parseAll(raws, logger)...)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if runCtx.Err() != nil || c.pending != nil {
		return c.discardLocked(ctx, logger)
	}

	merged := Merge(c.items, fresh, plan)
	newKeys := c.ledger.Unseen(merged)
	c.ledger.Observe(merged)
	c.items = merged
	c.commits++
	c.persistLocked()

	logger.Debug("committed", "total", len(merged), "new", len(newKeys))
	return Result{Total: len(merged), New: len(newKeys)}, nil
}

func (c *Coordinator) interrupted(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

func (c *Coordinator) discard(parent context.Context, logger *log.Logger) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discardLocked(parent, logger)
}

func (c *Coordinator) discardLocked(parent context.Context, logger *log.Logger) (Result, error) {
	if err := parent.Err(); err != nil {
		logger.Debug("scan cancelled", "err", err)
		return Result{}, fmt.Errorf("scan %s cancelled: %w", c.name, err)
	}
	logger.Debug("scan discarded")
	return Result{}, nil
}

func (c *Coordinator) parseAll(raws []resource.Raw, logger *log.Logger) []resource.Resource {
	out := make([]resource.Resource, 0, len(raws))
	for _, raw := range raws {
		r, err := c.parse(raw)
		if err != nil {
			logger.Warn("skipping unparsable resource", "name", raw.Name, "path", raw.Path, "err", err)
			continue
		}
		r.Key = resource.IdentityKey(r)
		out = append(out, r)
	}
	return out
}

func (c *Coordinator) persistLocked() {
	if c.store == nil || !c.hydrated {
		return
	}
	if err := cache.Set(c.store, collectionKey, Entry{Version: entryVersion, Items: c.items}); err != nil {
		c.logger.Warn("failed to persist collection", "err", err)
	}
	if err := cache.Set(c.store, seenKey, c.ledger.Keys()); err != nil {
		c.logger.Warn("failed to persist seen-ledger", "err", err)
	}
}

// Items returns a copy of the held collection.
func (c *Coordinator) Items() []resource.Resource {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]resource.Resource, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Coordinator) Get(key string) (resource.Resource, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(key)
	if i < 0 {
		return resource.Resource{}, false
	}
	return c.items[i], true
}

func (c *Coordinator) indexLocked(key string) int {
	for i, r := range c.items {
		if r.Key == key {
			return i
		}
	}
	return -1
}

// Upsert puts r into the collection, replacing the resource with the same
// identity in place, or appending it. It returns the replaced resource.
func (c *Coordinator) Upsert(r resource.Resource) (prev resource.Resource, existed bool) {
	r.Key = resource.IdentityKey(r)

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexLocked(r.Key); i >= 0 {
		prev, existed = c.items[i], true
		c.items[i] = r
	} else {
		c.items = append(c.items, r)
	}
	c.ledger[r.Key] = struct{}{}
	c.persistLocked()
	return prev, existed
}

// Insert places r at index i, clamped to the collection bounds. A resource
// with the same identity is replaced instead.
func (c *Coordinator) Insert(i int, r resource.Resource) {
	r.Key = resource.IdentityKey(r)

	c.mu.Lock()
	defer c.mu.Unlock()

	if j := c.indexLocked(r.Key); j >= 0 {
		c.items[j] = r
	} else {
		i = max(0, min(i, len(c.items)))
		c.items = append(c.items, resource.Resource{})
		copy(c.items[i+1:], c.items[i:])
		c.items[i] = r
	}
	c.ledger[r.Key] = struct{}{}
	c.persistLocked()
}

// Remove drops the resource with key and reports its former index.
func (c *Coordinator) Remove(key string) (resource.Resource, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(key)
	if i < 0 {
		return resource.Resource{}, -1, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	r := c.items[i]
	c.items = append(c.items[:i], c.items[i+1:]...)
	c.persistLocked()
	return r, i, nil
}

func (c *Coordinator) SetFavorite(key string, fav bool) (resource.Resource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(key)
	if i < 0 {
		return resource.Resource{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	c.items[i] = c.items[i].WithFavorite(fav)
	c.persistLocked()
	return c.items[i], nil
}

// Seen reports whether key has ever been observed by this collection.
func (c *Coordinator) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Has(key)
}

func (c *Coordinator) SeenKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Keys()
}

// Commits counts merged scans committed since construction.
func (c *Coordinator) Commits() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commits
}

// Reset drops the held collection, the ledger and the cache file.
func (c *Coordinator) Reset() error {
	c.Cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	c.ledger = NewLedger()
	if c.store == nil {
		return nil
	}
	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear %s cache: %w", c.name, err)
	}
	return nil
}
