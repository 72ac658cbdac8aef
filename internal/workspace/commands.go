package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"vinsly/internal/history"
	"vinsly/internal/resource"
	"vinsly/internal/scan"

	"github.com/tidwall/jsonc"
)

// failure keeps the error of a command's last run; the history only reports
// whether it succeeded.
type failure struct {
	err error
}

func (f *failure) record(err error) error {
	f.err = err
	return err
}

func (f *failure) lastErr() error {
	return f.err
}

type command interface {
	history.Command
	lastErr() error
}

func (w *Workspace) execute(ctx context.Context, cmd command) error {
	if w.history.Execute(ctx, cmd) {
		return nil
	}
	if err := cmd.lastErr(); err != nil {
		return err
	}
	return history.ErrBusy
}

// Undo reverts the last mutation and returns its description.
func (w *Workspace) Undo(ctx context.Context) (string, bool) {
	return w.history.Undo(ctx)
}

func (w *Workspace) Redo(ctx context.Context) (string, bool) {
	return w.history.Redo(ctx)
}

// rawFor rebuilds the listing form of a freshly written draft.
func rawFor(d resource.Draft, written string) (resource.Raw, error) {
	raw := resource.Raw{
		Kind:    d.Kind,
		Scope:   d.Scope,
		Name:    d.Name,
		Content: d.Content,
	}
	switch d.Kind {
	case resource.KindMCP, resource.KindHook:
		raw.Source = written
		if err := json.Unmarshal(jsonc.ToJSON([]byte(d.Content)), &raw.Fields); err != nil {
			return raw, fmt.Errorf("%w: %s entry is not a JSON object: %v", resource.ErrInvalidName, d.Kind, err)
		}
	case resource.KindSkill:
		raw.Path = written
		raw.Directory = filepath.Dir(written)
	default:
		raw.Path = written
	}
	return raw, nil
}

type saveCommand struct {
	failure
	coll  *Collection
	draft resource.Draft

	ran     bool
	prev    resource.Resource
	existed bool
	saved   resource.Resource
}

func (c *saveCommand) Description() string {
	return fmt.Sprintf("save %s %s", c.draft.Kind, c.draft.Name)
}

func (c *saveCommand) Execute(ctx context.Context) error {
	p, err := c.coll.backend.Write(ctx, c.draft)
	if err != nil {
		return c.record(fmt.Errorf("failed to write %s %s: %w", c.draft.Kind, c.draft.Name, err))
	}
	raw, err := rawFor(c.draft, p)
	if err != nil {
		return c.record(err)
	}
	r, err := c.coll.parse(raw)
	if err != nil {
		return c.record(fmt.Errorf("saved %s does not parse: %w", c.draft.Name, err))
	}
	r.Key = resource.IdentityKey(r)

	if !c.ran {
		c.prev, c.existed = c.coll.Get(r.Key)
		c.ran = true
	}
	if c.existed {
		r.Favorite = c.prev.Favorite
	}
	c.coll.Upsert(r)
	c.saved = r
	return c.record(nil)
}

func (c *saveCommand) Undo(ctx context.Context) error {
	if c.existed {
		if _, err := c.coll.backend.Write(ctx, resource.DraftOf(c.prev)); err != nil {
			return c.record(fmt.Errorf("failed to restore %s: %w", c.prev.Name, err))
		}
		c.coll.Upsert(c.prev)
		return c.record(nil)
	}

	if err := c.coll.backend.Delete(ctx, c.saved); err != nil {
		return c.record(fmt.Errorf("failed to remove %s: %w", c.saved.Name, err))
	}
	if _, _, err := c.coll.Remove(c.saved.Key); err != nil && !errors.Is(err, scan.ErrNotFound) {
		return c.record(err)
	}
	return c.record(nil)
}

// Save writes d through the backend of its collection and records the change
// in the history. It returns the saved resource.
func (w *Workspace) Save(ctx context.Context, d resource.Draft) (resource.Resource, error) {
	coll, err := w.For(d.Kind)
	if err != nil {
		return resource.Resource{}, err
	}
	coll.Hydrate()
	cmd := &saveCommand{coll: coll, draft: d}
	if err := w.execute(ctx, cmd); err != nil {
		return resource.Resource{}, err
	}
	return cmd.saved, nil
}

type deleteCommand struct {
	failure
	coll   *Collection
	target resource.Resource
	index  int

	snapshot string
}

func (c *deleteCommand) Description() string {
	return fmt.Sprintf("delete %s %s", c.target.Kind, c.target.Name)
}

func (c *deleteCommand) snapshotter() (Snapshotter, bool) {
	if c.target.Skill == nil || !c.target.Skill.HasAssets {
		return nil, false
	}
	s, ok := c.coll.backend.(Snapshotter)
	return s, ok
}

func (c *deleteCommand) Execute(ctx context.Context) error {
	fresh := false
	if s, ok := c.snapshotter(); ok && c.snapshot == "" {
		snap, err := s.Snapshot(ctx, c.target)
		if err != nil {
			return c.record(fmt.Errorf("failed to snapshot %s: %w", c.target.Name, err))
		}
		c.snapshot, fresh = snap, true
	}

	if err := c.coll.backend.Delete(ctx, c.target); err != nil {
		if fresh {
			c.release()
		}
		return c.record(fmt.Errorf("failed to delete %s: %w", c.target.Name, err))
	}

	_, idx, err := c.coll.Remove(c.target.Key)
	switch {
	case err == nil:
		c.index = idx
	case !errors.Is(err, scan.ErrNotFound):
		return c.record(err)
	}
	return c.record(nil)
}

func (c *deleteCommand) Undo(ctx context.Context) error {
	if s, ok := c.snapshotter(); ok && c.snapshot != "" {
		if err := s.Restore(ctx, c.snapshot, c.target); err != nil {
			return c.record(fmt.Errorf("failed to restore %s: %w", c.target.Name, err))
		}
	} else if _, err := c.coll.backend.Write(ctx, resource.DraftOf(c.target)); err != nil {
		return c.record(fmt.Errorf("failed to restore %s: %w", c.target.Name, err))
	}
	c.coll.Insert(c.index, c.target)
	return c.record(nil)
}

func (c *deleteCommand) release() {
	s, ok := c.snapshotter()
	if !ok || c.snapshot == "" {
		return
	}
	_ = s.Discard(c.snapshot)
	c.snapshot = ""
}

// Cleanup removes the snapshot once the delete can no longer be undone.
func (c *deleteCommand) Cleanup() {
	c.release()
}

func (w *Workspace) deleteFor(key string) (*deleteCommand, error) {
	w.Hydrate()
	coll, r, ok := w.Find(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", scan.ErrNotFound, key)
	}
	return &deleteCommand{coll: coll, target: r}, nil
}

// Delete removes the resource with key from disk and from its collection.
func (w *Workspace) Delete(ctx context.Context, key string) error {
	cmd, err := w.deleteFor(key)
	if err != nil {
		return err
	}
	return w.execute(ctx, cmd)
}

type bulkDeleteCommand struct {
	failure
	steps []*deleteCommand
}

func (c *bulkDeleteCommand) Description() string {
	return fmt.Sprintf("delete %d resources", len(c.steps))
}

// Execute deletes every resource, or none: a failing step rolls back the
// ones already done.
func (c *bulkDeleteCommand) Execute(ctx context.Context) error {
	for i, step := range c.steps {
		if err := step.Execute(ctx); err != nil {
			for _, done := range slices.Backward(c.steps[:i]) {
				_ = done.Undo(ctx)
			}
			return c.record(err)
		}
	}
	return c.record(nil)
}

func (c *bulkDeleteCommand) Undo(ctx context.Context) error {
	for i, step := range slices.Backward(c.steps) {
		if err := step.Undo(ctx); err != nil {
			for _, done := range c.steps[i+1:] {
				_ = done.Execute(ctx)
			}
			return c.record(err)
		}
	}
	return c.record(nil)
}

func (c *bulkDeleteCommand) Cleanup() {
	for _, step := range c.steps {
		step.Cleanup()
	}
}

// BulkDelete removes several resources as one undoable step.
func (w *Workspace) BulkDelete(ctx context.Context, keys []string) error {
	cmd := &bulkDeleteCommand{}
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		step, err := w.deleteFor(key)
		if err != nil {
			return err
		}
		cmd.steps = append(cmd.steps, step)
	}
	if len(cmd.steps) == 0 {
		return nil
	}
	return w.execute(ctx, cmd)
}

type favoriteCommand struct {
	failure
	coll *Collection
	key  string
	name string
	from bool
}

func (c *favoriteCommand) Description() string {
	if c.from {
		return "unfavorite " + c.name
	}
	return "favorite " + c.name
}

func (c *favoriteCommand) Execute(context.Context) error {
	_, err := c.coll.SetFavorite(c.key, !c.from)
	return c.record(err)
}

func (c *favoriteCommand) Undo(context.Context) error {
	_, err := c.coll.SetFavorite(c.key, c.from)
	return c.record(err)
}

// ToggleFavorite flips the favorite flag of key and returns the new value.
func (w *Workspace) ToggleFavorite(ctx context.Context, key string) (bool, error) {
	w.Hydrate()
	coll, r, ok := w.Find(key)
	if !ok {
		return false, fmt.Errorf("%w: %s", scan.ErrNotFound, key)
	}
	cmd := &favoriteCommand{coll: coll, key: key, name: r.Name, from: r.Favorite}
	if err := w.execute(ctx, cmd); err != nil {
		return r.Favorite, err
	}
	return !r.Favorite, nil
}
