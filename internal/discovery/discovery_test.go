package discovery_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vinsly/internal/discovery"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func project(t *testing.T, home string, rel ...string) string {
	t.Helper()
	dir := filepath.Join(append([]string{home}, rel...)...)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".claude", "agents"), 0o755))
	return dir
}

func TestWalk(t *testing.T) {
	ctx := context.Background()

	t.Run("finds directories with .claude/agents", func(t *testing.T) {
		home := t.TempDir()
		a := project(t, home, "code", "alpha")
		b := project(t, home, "beta")
		require.NoError(t, os.MkdirAll(filepath.Join(home, "plain", ".claude"), 0o755))

		got, err := discovery.Walk(ctx, home, discovery.Options{}, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{b, a}, got)
	})

	t.Run("home .claude is not a project", func(t *testing.T) {
		home := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(home, ".claude", "agents"), 0o755))

		got, err := discovery.Walk(ctx, home, discovery.Options{}, nil)

		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("skips dependency and vcs folders", func(t *testing.T) {
		home := t.TempDir()
		project(t, home, "app", "node_modules", "pkg")
		project(t, home, ".git", "inner")
		project(t, home, ".cache", "x")
		keep := project(t, home, "app")

		got, err := discovery.Walk(ctx, home, discovery.Options{}, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{keep}, got)
	})

	t.Run("respects depth", func(t *testing.T) {
		home := t.TempDir()
		shallow := project(t, home, "a")
		project(t, home, "a", "b", "c", "d")

		got, err := discovery.Walk(ctx, home, discovery.Options{Depth: 2}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{shallow}, got)

		got, err = discovery.Walk(ctx, home, discovery.Options{Depth: -3}, nil)
		require.NoError(t, err)
		assert.Empty(t, got, "depth is clamped to one level")
	})

	t.Run("exclude patterns prune the walk", func(t *testing.T) {
		home := t.TempDir()
		project(t, home, "archive", "old")
		keep := project(t, home, "work", "new")

		got, err := discovery.Walk(ctx, home, discovery.Options{}, []string{"archive"})

		require.NoError(t, err)
		assert.Equal(t, []string{keep}, got)
	})

	t.Run("symlinked projects are not followed", func(t *testing.T) {
		home := t.TempDir()
		target := project(t, t.TempDir(), "elsewhere")
		require.NoError(t, os.Symlink(target, filepath.Join(home, "link")))

		got, err := discovery.Walk(ctx, home, discovery.Options{}, nil)

		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("cancelled context stops the walk", func(t *testing.T) {
		home := t.TempDir()
		project(t, home, "a")
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := discovery.Walk(cctx, home, discovery.Options{}, nil)

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("missing home yields nothing", func(t *testing.T) {
		got, err := discovery.Walk(ctx, filepath.Join(t.TempDir(), "gone"), discovery.Options{}, nil)

		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestProtectedDirs(t *testing.T) {
	assert.Empty(t, discovery.ProtectedDirs("/home/u", "linux"))

	dirs := discovery.ProtectedDirs("/Users/u", "darwin")
	assert.Contains(t, dirs, "/Users/u/Documents")
	assert.Contains(t, dirs, "/Users/u/Library/CloudStorage")
}

func TestScanner(t *testing.T) {
	ctx := context.Background()

	t.Run("caches results within the ttl", func(t *testing.T) {
		home := t.TempDir()
		a := project(t, home, "a")
		now := time.Unix(1000, 0)
		s := discovery.New(home, nil, nil)
		discovery.SetClock(s, func() time.Time { return now })

		first, err := s.Discover(ctx, discovery.Options{})
		require.NoError(t, err)
		project(t, home, "b")

		second, err := s.Discover(ctx, discovery.Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{a}, first)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, discovery.Walks(s))

		now = now.Add(discovery.CacheTTL)
		third, err := s.Discover(ctx, discovery.Options{})
		require.NoError(t, err)
		assert.Len(t, third, 2)
		assert.Equal(t, 2, discovery.Walks(s))
	})

	t.Run("different options miss the cache", func(t *testing.T) {
		s := discovery.New(t.TempDir(), nil, nil)

		_, err := s.Discover(ctx, discovery.Options{Depth: 3})
		require.NoError(t, err)
		_, err = s.Discover(ctx, discovery.Options{Depth: 3, IncludeProtected: true})
		require.NoError(t, err)
		_, err = s.Discover(ctx, discovery.Options{Depth: 3, IncludeProtected: true})
		require.NoError(t, err)

		assert.Equal(t, 2, discovery.Walks(s))
	})

	t.Run("invalidate forces a new walk", func(t *testing.T) {
		s := discovery.New(t.TempDir(), nil, nil)

		_, err := s.Discover(ctx, discovery.Options{})
		require.NoError(t, err)
		s.Invalidate()
		_, err = s.Discover(ctx, discovery.Options{})
		require.NoError(t, err)

		assert.Equal(t, 2, discovery.Walks(s))
	})

	t.Run("concurrent callers share one walk", func(t *testing.T) {
		home := t.TempDir()
		project(t, home, "a")
		s := discovery.New(home, nil, nil)

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := s.Discover(ctx, discovery.Options{})
				assert.NoError(t, err)
				assert.Len(t, got, 1)
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, discovery.Walks(s))
	})

	t.Run("returned slices are copies", func(t *testing.T) {
		home := t.TempDir()
		project(t, home, "a")
		s := discovery.New(home, nil, nil)

		got, err := s.Discover(ctx, discovery.Options{})
		require.NoError(t, err)
		got[0] = "mutated"

		again, err := s.Discover(ctx, discovery.Options{})
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", again[0])
	})
}
