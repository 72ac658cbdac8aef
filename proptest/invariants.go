package proptest

import (
	"vinsly/internal/resource"
	"vinsly/internal/scan"

	"pgregory.net/rapid"
)

const (
	InvKeysUnique         = "keys-unique"
	InvKeyIsIdentity      = "key-is-identity"
	InvMergeIdempotent    = "merge-idempotent"
	InvUncoveredKept      = "uncovered-kept"
	InvCoveredFromFresh   = "covered-from-fresh"
	InvFavoriteInherited  = "favorite-inherited"
	InvLedgerMonotonic    = "ledger-monotonic"
	InvLedgerCoversHeld   = "ledger-covers-held"
	InvScannedRootMatches = "scanned-root-matches"
	InvResultCounts       = "result-counts"
	InvUndoRestores       = "undo-restores"
	InvRedoReapplies      = "redo-reapplies"
	InvHydrateRestores    = "hydrate-restores"
)

func verifyCollectionInvariants(t *rapid.T, items []resource.Resource) {
	seen := make(map[string]bool, len(items))
	for _, r := range items {
		if seen[r.Key] {
			t.Fatalf("[%s] violated: duplicate key %q", InvKeysUnique, r.Key)
		}
		seen[r.Key] = true

		if want := resource.IdentityKey(r); r.Key != want {
			t.Fatalf("[%s] violated: key %q, identity %q", InvKeyIsIdentity, r.Key, want)
		}
	}
}

func verifyLedgerCovers(t *rapid.T, c *scan.Coordinator) {
	for _, r := range c.Items() {
		if !c.Seen(r.Key) {
			t.Fatalf("[%s] violated: held key %q not in ledger", InvLedgerCoversHeld, r.Key)
		}
	}
}
