// Package diff implements the Diff Engine (spec.md §4.6, C6): an
// identity-keyed comparison between a desired Manifest and the persisted
// current Manifest, with no field-level comparison, intent inference, or
// ordering inference — only identityHash/stateHash equality.
package diff

import (
	"sort"

	"github.com/robbiet76/CalendarScheduler/pkg/errs"
	"github.com/robbiet76/CalendarScheduler/pkg/model"
)

// Result is the three-way classification of every identity touched by
// either manifest.
type Result struct {
	Creates []string // identityHash, in desired but not current
	Updates []string // identityHash, in both, stateHash differs
	Deletes []string // identityHash, in current but not desired
}

// Diff compares desired against current. Both are validated for duplicate
// identityHash keys first (Manifest.Events is already keyed by
// identityHash, so a "duplicate" here means a caller built the map with a
// colliding key from two distinct sources — checked defensively).
func Diff(desired, current model.Manifest) (Result, error) {
	if err := checkNoCollision(desired); err != nil {
		return Result{}, err
	}
	if err := checkNoCollision(current); err != nil {
		return Result{}, err
	}

	var res Result
	for _, hash := range desired.SortedIdentityHashes() {
		d := desired.Events[hash]
		c, existsInCurrent := current.Events[hash]
		switch {
		case !existsInCurrent:
			res.Creates = append(res.Creates, hash)
		case d.StateHash != c.StateHash:
			res.Updates = append(res.Updates, hash)
		}
	}
	for _, hash := range current.SortedIdentityHashes() {
		if _, existsInDesired := desired.Events[hash]; !existsInDesired {
			res.Deletes = append(res.Deletes, hash)
		}
	}

	sort.Strings(res.Creates)
	sort.Strings(res.Updates)
	sort.Strings(res.Deletes)
	return res, nil
}

// checkNoCollision verifies every ManifestEvent's own IdentityHash field
// agrees with the map key it is stored under; a mismatch means two logically
// distinct events were normalized to the same map key upstream.
func checkNoCollision(m model.Manifest) error {
	for hash, ev := range m.Events {
		if ev.IdentityHash != "" && ev.IdentityHash != hash {
			return errs.DuplicateIdentity("manifest event stored under mismatched identityHash key: " + hash)
		}
	}
	return nil
}
