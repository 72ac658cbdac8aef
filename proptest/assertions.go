package proptest

import (
	"sort"
	"vinsly/internal/resource"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"pgregory.net/rapid"
)

func assertResourcesEqual(t *rapid.T, inv string, expected, actual []resource.Resource) {
	t.Helper()
	if diff := cmp.Diff(expected, actual, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("[%s] violated (-want +got):\n%s", inv, diff)
	}
}

func keysOf(items []resource.Resource) []string {
	keys := make([]string, 0, len(items))
	for _, r := range items {
		keys = append(keys, r.Key)
	}
	sort.Strings(keys)
	return keys
}

// underRoot selects the items living in root; an empty root selects the
// global scope.
func underRoot(items []resource.Resource, root string) []resource.Resource {
	var out []resource.Resource
	for _, r := range items {
		switch {
		case root == "" && r.Scope == resource.ScopeGlobal:
			out = append(out, r)
		case root != "" && r.Scope == resource.ScopeProject && resource.ProjectRoot(r.Locator()) == root:
			out = append(out, r)
		}
	}
	return out
}

func assertSameKeys(t *rapid.T, inv string, expected, actual []resource.Resource) {
	t.Helper()
	if diff := cmp.Diff(keysOf(expected), keysOf(actual), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("[%s] violated (-want +got):\n%s", inv, diff)
	}
}
