// Package backend reads and writes resources in their on-disk layout under
// the user's home directory and project directories.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"sync"

	"vinsly/internal/resource"

	"github.com/charmbracelet/log"
)

var (
	ErrOutsideClaudeDir    = errors.New("refusing to modify files outside .claude")
	ErrProjectPathRequired = errors.New("project scope requires a project path")
	ErrNotFound            = errors.New("not found")
	ErrArchiveLayout       = errors.New("invalid skill archive")
	ErrUnsupportedKind     = errors.New("unsupported resource kind")
)

const claudeDirName = ".claude"

// FS is the local filesystem backend. Edits of shared JSON config files are
// serialized by an internal lock.
type FS struct {
	home   string
	logger *log.Logger
	jsonMu sync.Mutex
}

func New(home string, logger *log.Logger) *FS {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &FS{
		home:   filepath.Clean(home),
		logger: logger.With("component", "backend"),
	}
}

func (fs *FS) Home() string {
	return fs.home
}

func (fs *FS) root(scope resource.Scope, projectPath string) (string, error) {
	switch scope {
	case resource.ScopeGlobal:
		return fs.home, nil
	case resource.ScopeProject:
		if projectPath == "" {
			return "", ErrProjectPathRequired
		}
		return filepath.Clean(projectPath), nil
	}
	return "", fmt.Errorf("%w: %q", resource.ErrInvalidScope, scope)
}

// List returns the raw resources of kind stored under root.
func (fs *FS) List(ctx context.Context, kind resource.Kind, scope resource.Scope, root string) ([]resource.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	claude := filepath.Join(root, claudeDirName)

	switch kind {
	case resource.KindAgent:
		return listAgents(filepath.Join(claude, "agents"), scope)
	case resource.KindSkill:
		return listSkills(filepath.Join(claude, "skills"), scope)
	case resource.KindCommand:
		return listCommands(filepath.Join(claude, "commands"), scope)
	case resource.KindMemory:
		return listMemory(root, scope, fs.memoryNames(scope))
	case resource.KindMCP:
		return fs.listMCP(fs.mcpFile(scope, root), scope)
	case resource.KindHook:
		return fs.listHooks(fs.hookFiles(scope, root), scope)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
}

// Write stores d and returns the absolute path of the file it landed in.
func (fs *FS) Write(ctx context.Context, d resource.Draft) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	root, err := fs.root(d.Scope, d.ProjectPath)
	if err != nil {
		return "", err
	}

	switch d.Kind {
	case resource.KindAgent:
		return writeAgent(root, d)
	case resource.KindSkill:
		return writeSkill(root, d)
	case resource.KindCommand:
		return writeCommand(root, d)
	case resource.KindMemory:
		return fs.writeMemory(root, d)
	case resource.KindMCP:
		return fs.writeMCP(root, d)
	case resource.KindHook:
		return fs.writeHook(root, d)
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, d.Kind)
}

func (fs *FS) Delete(ctx context.Context, r resource.Resource) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch r.Kind {
	case resource.KindAgent:
		return deleteFile(r.Path, "agents")
	case resource.KindCommand:
		return deleteFile(r.Path, "commands")
	case resource.KindSkill:
		return deleteSkill(r)
	case resource.KindMemory:
		return deleteMemory(r.Path)
	case resource.KindMCP:
		return fs.deleteMCP(r)
	case resource.KindHook:
		return fs.deleteHook(r)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedKind, r.Kind)
}

// Collection is the view of the backend one resource collection scans and
// mutates through.
type Collection struct {
	fs    *FS
	kinds []resource.Kind
}

func (fs *FS) Collection(kinds ...resource.Kind) *Collection {
	return &Collection{fs: fs, kinds: kinds}
}

func (c *Collection) Kinds() []resource.Kind {
	return slices.Clone(c.kinds)
}

func (c *Collection) list(ctx context.Context, scope resource.Scope, root string) ([]resource.Raw, error) {
	var out []resource.Raw
	for _, k := range c.kinds {
		raws, err := c.fs.List(ctx, k, scope, root)
		if err != nil {
			return nil, fmt.Errorf("failed to list %ss in %s: %w", k, root, err)
		}
		out = append(out, raws...)
	}
	return out, nil
}

func (c *Collection) ListGlobal(ctx context.Context) ([]resource.Raw, error) {
	return c.list(ctx, resource.ScopeGlobal, c.fs.home)
}

func (c *Collection) ListForProject(ctx context.Context, path string) ([]resource.Raw, error) {
	return c.list(ctx, resource.ScopeProject, filepath.Clean(path))
}

// ListForDirectory lists a watched or ad hoc directory as a project.
func (c *Collection) ListForDirectory(ctx context.Context, dir string) ([]resource.Raw, error) {
	return c.ListForProject(ctx, dir)
}

func (c *Collection) Write(ctx context.Context, d resource.Draft) (string, error) {
	if !slices.Contains(c.kinds, d.Kind) {
		return "", fmt.Errorf("%w: %q in this collection", ErrUnsupportedKind, d.Kind)
	}
	return c.fs.Write(ctx, d)
}

func (c *Collection) Delete(ctx context.Context, r resource.Resource) error {
	if !slices.Contains(c.kinds, r.Kind) {
		return fmt.Errorf("%w: %q in this collection", ErrUnsupportedKind, r.Kind)
	}
	return c.fs.Delete(ctx, r)
}

func (c *Collection) Snapshot(ctx context.Context, r resource.Resource) (string, error) {
	return c.fs.Snapshot(ctx, r)
}

func (c *Collection) Restore(ctx context.Context, snapshot string, r resource.Resource) error {
	return c.fs.Restore(ctx, snapshot, r)
}

func (c *Collection) Discard(snapshot string) error {
	return c.fs.Discard(snapshot)
}
