package normalize

import (
	"sort"

	"github.com/robbiet76/CalendarScheduler/pkg/errs"
	"github.com/robbiet76/CalendarScheduler/pkg/model"
)

// Reidentify recomputes a ManifestEvent's IdentityHash with the given
// Segment ordinal folded into its Identity tuple (see model.Identity's
// doc comment). StateHash is untouched: Segment is a disambiguator for the
// identity map key, not part of scheduled behavior, and every caller of
// Reidentify already has a distinct StateHash anyway (the colliding
// sub-events differ in their own dates, which feed subEventStateShape).
func Reidentify(ev model.ManifestEvent, segment int) (model.ManifestEvent, error) {
	ev.Identity.Segment = segment
	h, err := contentHash(ev.Identity)
	if err != nil {
		return model.ManifestEvent{}, errs.Wrap(errs.KindInvariant, "hash_failure", "cannot hash identity", err)
	}
	ev.ID = h
	ev.IdentityHash = h
	return ev, nil
}

// Deduplicate takes a set of independently normalized ManifestEvents --
// one per resolved bundle on the calendar side, one per row on the FPP
// side -- and returns a set with a guaranteed-unique IdentityHash per
// element, in the same order the caller supplied them.
//
// spec.md §3's Identity tuple excludes dates by design, so two bundles
// belonging to the very same underlying recurrence but covering disjoint
// date ranges -- the EXDATE-split scenario (spec.md §8 S1), or the FPP-side
// equivalent of a manually split schedule entry -- normalize to the same
// (type, target, timing) tuple and therefore the same IdentityHash. Without
// this pass, a caller assigning events into a map<identityHash,...> (as
// spec.md §3's Manifest shape requires) would silently keep only the last
// one written and lose every other segment with no error, no warning, and
// no diagnostic -- exactly the failure this function exists to prevent.
//
// Within a colliding group, members are ordered by their base sub-event's
// hard start date (the one field that legitimately differs between
// same-footprint segments) and assigned ascending Segment ordinals via
// Reidentify; the first member of a group keeps Segment 0 so the common,
// non-colliding case hashes identically to before this function existed.
// The ordering is deterministic run-to-run because it depends only on the
// bundle's own start date, never on map iteration order or the number of
// prior runs.
//
// Two members of a group that also share an identical StateHash are not a
// disambiguatable segment -- every other field, including the globally
// unique executionOrder the Ordering Engine assigns, is identical too --
// so they are a genuine upstream duplicate (spec.md §4.6) and Deduplicate
// fails with errs.DuplicateIdentity rather than guessing an ordinal for
// them.
func Deduplicate(events []model.ManifestEvent) ([]model.ManifestEvent, error) {
	groups := map[string][]int{}
	for i, ev := range events {
		groups[ev.IdentityHash] = append(groups[ev.IdentityHash], i)
	}

	out := make([]model.ManifestEvent, len(events))
	copy(out, events)

	for hash, idxs := range groups {
		if len(idxs) == 1 {
			continue
		}
		sort.SliceStable(idxs, func(a, b int) bool {
			return segmentSortKey(out[idxs[a]]) < segmentSortKey(out[idxs[b]])
		})
		seen := map[string]bool{}
		for pos, idx := range idxs {
			key := segmentSortKey(out[idx]) + "\x00" + out[idx].StateHash
			if seen[key] {
				return nil, errs.DuplicateIdentity("duplicate manifest event for identity " + hash + ": identical state cannot be disambiguated into distinct segments")
			}
			seen[key] = true
			if pos == 0 {
				continue
			}
			reidentified, err := Reidentify(out[idx], pos)
			if err != nil {
				return nil, err
			}
			out[idx] = reidentified
		}
	}
	return out, nil
}

// segmentSortKey orders same-identityHash ManifestEvents by the one thing
// that legitimately differs between same-footprint segments: their base
// sub-event's hard start date. Falling back to StateHash keeps the sort
// total (and therefore SliceStable deterministic) for the pathological
// case of a symbolic-only start date, which Resolution never actually
// produces for a bundle base (spec.md §4.3), but this sort must not panic
// or behave non-deterministically if it ever did.
func segmentSortKey(ev model.ManifestEvent) string {
	if base, ok := ev.BaseSubEvent(); ok && base.Timing.StartDate.Hard != nil {
		return string(*base.Timing.StartDate.Hard)
	}
	return ev.StateHash
}
