package proptest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"vinsly/internal/backend/backendtest"
	"vinsly/internal/cache"
	"vinsly/internal/resource"
	"vinsly/internal/scan"
	"vinsly/internal/workspace"

	"pgregory.net/rapid"
)

const (
	minResources = 0
	maxResources = 8
)

type Harness struct {
	T   *rapid.T
	Dir string
}

// CoordinatorHarness drives one coordinator over an in-memory backend.
type CoordinatorHarness struct {
	Harness
	Fake  *backendtest.Fake
	Coord *scan.Coordinator
}

func (h *CoordinatorHarness) CachePath() string {
	return filepath.Join(h.Dir, "agents.yaml")
}

// NewCoordinator opens another coordinator over the same backend and cache.
func (h *CoordinatorHarness) NewCoordinator() *scan.Coordinator {
	store, err := cache.NewStore(h.CachePath())
	if err != nil {
		h.T.Fatalf("failed to open cache: %v", err)
	}
	return scan.New(scan.Options{
		Name:   "agents",
		Lister: h.Fake,
		Parse:  backendtest.Parse,
		Store:  store,
	})
}

// Seed fills the fake with generated resources for the global scope and every
// project root and returns the listings by root, "" being global.
func (h *CoordinatorHarness) Seed() map[string][]resource.Raw {
	listings := map[string][]resource.Raw{"": rawsGen("").Draw(h.T, "global")}
	h.Fake.SetGlobal(listings[""]...)
	for _, root := range projectRoots {
		listings[root] = rawsGen(root).Draw(h.T, "raws "+root)
		h.Fake.SetDir(root, listings[root]...)
	}
	return listings
}

func (h *CoordinatorHarness) MustScan(req scan.Request) scan.Result {
	res, err := h.Coord.Scan(context.Background(), req)
	if err != nil {
		h.T.Fatalf("scan failed: %v", err)
	}
	return res
}

func RunWithCoordinator(t *testing.T, fn func(h *CoordinatorHarness)) {
	tempDir := t.TempDir()
	rapid.Check(t, func(rt *rapid.T) {
		iterDir, err := os.MkdirTemp(tempDir, "iter")
		if err != nil {
			rt.Fatalf("failed to create iter dir: %v", err)
		}

		h := &CoordinatorHarness{
			Harness: Harness{T: rt, Dir: iterDir},
			Fake:    backendtest.New(),
		}
		h.Coord = h.NewCoordinator()
		fn(h)
	})
}

// WorkspaceHarness drives a workspace with one fake backend per collection.
type WorkspaceHarness struct {
	Harness
	Fakes map[resource.Kind]*backendtest.Fake
	WS    *workspace.Workspace
}

func (h *WorkspaceHarness) Fake(kind resource.Kind) *backendtest.Fake {
	return h.Fakes[kind]
}

func RunWithWorkspace(t *testing.T, fn func(h *WorkspaceHarness)) {
	rapid.Check(t, func(rt *rapid.T) {
		h := &WorkspaceHarness{
			Harness: Harness{T: rt},
			Fakes:   make(map[resource.Kind]*backendtest.Fake),
		}
		ws, err := workspace.New(workspace.Options{
			Backend: func(kinds ...resource.Kind) workspace.Backend {
				f := backendtest.New()
				for _, k := range kinds {
					h.Fakes[k] = f
				}
				return f
			},
			Parse: backendtest.Parse,
		})
		if err != nil {
			rt.Fatalf("failed to create workspace: %v", err)
		}
		h.WS = ws
		fn(h)
	})
}
