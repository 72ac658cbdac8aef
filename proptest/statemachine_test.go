package proptest

import (
	"errors"
	"slices"
	"testing"
	"vinsly/internal/resource"

	"pgregory.net/rapid"
)

var errListing = errors.New("listing failed")

func TestProperty_StateMachine_Coordinator(t *testing.T) {
	RunWithCoordinator(t, func(h *CoordinatorHarness) {
		listings := h.Seed()
		failing := make(map[string]bool)
		seen := make(map[string]bool)

		h.T.Repeat(map[string]func(*rapid.T){
			"rewrite global": func(rt *rapid.T) {
				listings[""] = rawsGen("").Draw(rt, "global")
				h.Fake.SetGlobal(listings[""]...)
			},

			"rewrite project": func(rt *rapid.T) {
				root := rapid.SampledFrom(projectRoots).Draw(rt, "root")
				listings[root] = rawsGen(root).Draw(rt, "raws")
				h.Fake.SetDir(root, listings[root]...)
			},

			"toggle failure": func(rt *rapid.T) {
				root := rapid.SampledFrom(projectRoots).Draw(rt, "root")
				failing[root] = !failing[root]
				if failing[root] {
					h.Fake.Fail(root, errListing)
				} else {
					h.Fake.Fail(root, nil)
				}
			},

			"favorite": func(rt *rapid.T) {
				items := h.Coord.Items()
				if len(items) == 0 {
					rt.Skip("nothing held")
				}
				r := rapid.SampledFrom(items).Draw(rt, "item")
				if _, err := h.Coord.SetFavorite(r.Key, !r.Favorite); err != nil {
					rt.Fatalf("favorite failed: %v", err)
				}
			},

			"scan": func(rt *rapid.T) {
				req := requestGen().Draw(rt, "req")
				before := h.Coord.Items()
				res := h.MustScan(req)
				after := h.Coord.Items()

				covered := map[string]bool{"": req.IncludeGlobal}
				for _, root := range req.ProjectPaths {
					covered[root] = true
				}
				for _, root := range append([]string{""}, projectRoots...) {
					got := underRoot(after, root)
					if covered[root] {
						// A failing root lists nothing, so its resources go.
						var want []resource.Resource
						if !failing[root] {
							for _, raw := range listings[root] {
								want = append(want, toResource(raw))
							}
						}
						assertSameKeys(rt, InvScannedRootMatches, want, got)
						continue
					}
					assertResourcesEqual(rt, InvUncoveredKept, underRoot(before, root), got)
				}

				favorites := make(map[string]bool)
				for _, r := range before {
					favorites[r.Key] = r.Favorite
				}
				newCount := 0
				for _, r := range after {
					if favorites[r.Key] && !r.Favorite {
						rt.Fatalf("[%s] violated: %q lost its favorite flag", InvFavoriteInherited, r.Key)
					}
					if !seen[r.Key] {
						newCount++
						seen[r.Key] = true
					}
				}
				if res.Total != len(after) || res.New != newCount {
					rt.Fatalf("[%s] violated: got %+v, want total %d new %d", InvResultCounts, res, len(after), newCount)
				}
			},

			"": func(rt *rapid.T) {
				items := h.Coord.Items()
				verifyCollectionInvariants(rt, items)
				verifyLedgerCovers(rt, h.Coord)
				for k := range seen {
					if !slices.Contains(h.Coord.SeenKeys(), k) {
						rt.Fatalf("[%s] violated: %q forgotten", InvLedgerMonotonic, k)
					}
				}
			},
		})
	})
}
