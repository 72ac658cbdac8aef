package scan

import (
	"sort"

	"vinsly/internal/resource"
)

// Plan is the blast radius of one scan: which previously held resources the
// fresh listing replaces.
type Plan struct {
	IncludeGlobal bool
	Roots         map[string]struct{}
}

func (p Plan) Covers(r resource.Resource) bool {
	switch r.Scope {
	case resource.ScopeGlobal:
		return p.IncludeGlobal
	case resource.ScopeProject:
		_, ok := p.Roots[resource.ProjectRoot(r.Locator())]
		return ok
	}
	return false
}

func keyOf(r resource.Resource) string {
	if r.Key != "" {
		return r.Key
	}
	return resource.IdentityKey(r)
}

// Merge drops the covered part of prev, appends fresh, and dedupes by
// identity with the first occurrence winning. Fresh resources inherit the
// favorite flag of the previous resource with the same identity.
func Merge(prev, fresh []resource.Resource, plan Plan) []resource.Resource {
	favorites := make(map[string]bool, len(prev))
	for _, r := range prev {
		if r.Favorite {
			favorites[keyOf(r)] = true
		}
	}

	combined := make([]resource.Resource, 0, len(prev)+len(fresh))
	for _, r := range prev {
		if plan.Covers(r) {
			continue
		}
		combined = append(combined, r)
	}
	for _, r := range fresh {
		r.Key = keyOf(r)
		r.Favorite = favorites[r.Key]
		combined = append(combined, r)
	}

	return Dedupe(combined)
}

func Dedupe(items []resource.Resource) []resource.Resource {
	seen := make(map[string]struct{}, len(items))
	out := make([]resource.Resource, 0, len(items))
	for _, r := range items {
		r.Key = keyOf(r)
		if _, dup := seen[r.Key]; dup {
			continue
		}
		seen[r.Key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Ledger is the append-only set of identity keys ever observed.
type Ledger map[string]struct{}

func NewLedger(keys ...string) Ledger {
	l := make(Ledger, len(keys))
	for _, k := range keys {
		l[k] = struct{}{}
	}
	return l
}

func (l Ledger) Has(key string) bool {
	_, ok := l[key]
	return ok
}

// Unseen returns the keys of items not yet in the ledger, in item order.
func (l Ledger) Unseen(items []resource.Resource) []string {
	var keys []string
	for _, r := range items {
		if !l.Has(keyOf(r)) {
			keys = append(keys, keyOf(r))
		}
	}
	return keys
}

func (l Ledger) Observe(items []resource.Resource) {
	for _, r := range items {
		l[keyOf(r)] = struct{}{}
	}
}

func (l Ledger) Keys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
