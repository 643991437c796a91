package engine

import (
	"sort"
	"time"

	"github.com/robbiet76/CalendarScheduler/pkg/errs"
	"github.com/robbiet76/CalendarScheduler/pkg/fppfile"
	"github.com/robbiet76/CalendarScheduler/pkg/ingest"
	"github.com/robbiet76/CalendarScheduler/pkg/model"
	"github.com/robbiet76/CalendarScheduler/pkg/normalize"
	"github.com/robbiet76/CalendarScheduler/pkg/order"
	"github.com/robbiet76/CalendarScheduler/pkg/resolve"
	"github.com/robbiet76/CalendarScheduler/pkg/store"
)

// desiredSet is one side's freshly-ingested view of the world, keyed by
// identityHash, plus the per-identity authority timestamp that side
// contributes (spec.md §4.7).
type desiredSet struct {
	events map[string]model.ManifestEvent
	epochs map[string]int64
}

// buildDesiredFPP reads the scheduler file's rows directly into
// manifest-shape events (spec.md §2: the FPP side bypasses Resolution and
// Normalization entirely). Every row becomes an entry, managed or not;
// Reconcile is the phase that respects the managed/unmanaged boundary.
func buildDesiredFPP(rows []fppfile.Row, tz string, timestamps store.FPPTimestamps, schedulerMtime int64) (desiredSet, error) {
	events, err := ingest.FPPManifestEvents(rows, tz)
	if err != nil {
		return desiredSet{}, err
	}
	// Deduplicate guards against two distinct rows (same type/target/timing,
	// different date ranges) re-deriving the same geometry-based identity
	// (spec.md §4.2) and silently colliding in the map below.
	events, err = normalize.Deduplicate(events)
	if err != nil {
		return desiredSet{}, err
	}
	out := desiredSet{events: map[string]model.ManifestEvent{}, epochs: map[string]int64{}}
	for _, ev := range events {
		out.events[ev.IdentityHash] = ev
		out.epochs[ev.IdentityHash] = fppEpochFor(ev.IdentityHash, ev.StateHash, timestamps, schedulerMtime)
	}
	return out, nil
}

// fppEpochFor implements spec.md §4.7's "FPP timestamp: persisted per
// identity or per-stateHash, defaulting to the scheduler file mtime."
func fppEpochFor(identityHash, stateHash string, timestamps store.FPPTimestamps, fallback int64) int64 {
	if e, ok := timestamps.ByIdentity[identityHash]; ok {
		return e
	}
	if e, ok := timestamps.ByStateHash[stateHash]; ok {
		return e
	}
	return fallback
}

// buildDesiredCalendar groups raw calendar rows into recurrence masters and
// their override instances, resolves each master into bundles (C3), assigns
// a deterministic global executionOrder across every bundle's base
// sub-event (C5), and normalizes each bundle into a ManifestEvent (C4).
//
// Ordering happens before normalization because executionOrder is one of
// the fields a sub-event's stateHash is derived from (Invariant 4): the
// rank computed here must already reflect the layout Apply->FPP will
// independently recompute over the same managed identity set, or a
// converged state would never produce matching stateHashes on both sides.
func buildDesiredCalendar(raw []model.RawCalendarEvent, calendarID string, loc *time.Location, orderCtx order.Context, importedAt int64) (desiredSet, error) {
	masters, overridesByParent := groupCalendarRows(raw)

	type pending struct {
		bundle     model.Bundle
		masterUID  string
		epoch      int64
	}
	var allPending []pending

	for _, master := range masters {
		overrides := overridesByParent[master.UID]
		bundles, err := resolve.Resolve(master, overrides, loc)
		if err != nil {
			return desiredSet{}, err
		}
		epoch := master.UpdatedAtEpoch
		for _, ov := range overrides {
			if ov.UpdatedAtEpoch > epoch {
				epoch = ov.UpdatedAtEpoch
			}
		}
		for _, b := range bundles {
			allPending = append(allPending, pending{bundle: b, masterUID: master.UID, epoch: epoch})
		}
	}

	items := make([]order.Item, 0, len(allPending))
	for _, p := range allPending {
		items = append(items, order.Item{Key: p.bundle.ID, SubEvent: p.bundle.Base})
	}
	positions, err := order.Compute(items, orderCtx)
	if err != nil {
		return desiredSet{}, err
	}

	normalized := make([]model.ManifestEvent, 0, len(allPending))
	epochByPos := make([]int64, 0, len(allPending))
	for _, p := range allPending {
		rank, ok := positions[p.bundle.ID]
		if !ok {
			return desiredSet{}, errs.InvariantViolation("ordering engine did not rank bundle " + p.bundle.ID)
		}
		b := p.bundle
		b.Base.ExecutionOrder = rank
		for i := range b.Overrides {
			b.Overrides[i].ExecutionOrder = rank
		}

		ev, err := normalize.Normalize(b, normalize.Options{
			Source:          "calendar",
			Provider:        "google_calendar",
			ExternalID:      p.masterUID,
			CalendarID:      calendarID,
			ImportedAtEpoch: importedAt,
		})
		if err != nil {
			return desiredSet{}, err
		}
		normalized = append(normalized, ev)
		epochByPos = append(epochByPos, p.epoch)
	}

	// Resolution can legitimately emit several bundles for one recurring
	// master that share an identical (type, target, timing) tuple but cover
	// disjoint date ranges (spec.md §8 S1's EXDATE split with no override).
	// Dates are excluded from Identity (spec.md §3), so those bundles
	// normalize to the same IdentityHash; Deduplicate disambiguates them so
	// all of them survive into the map below instead of the last write
	// silently winning.
	normalized, err = normalize.Deduplicate(normalized)
	if err != nil {
		return desiredSet{}, err
	}

	out := desiredSet{events: map[string]model.ManifestEvent{}, epochs: map[string]int64{}}
	for i, ev := range normalized {
		out.events[ev.IdentityHash] = ev
		if existing, seen := out.epochs[ev.IdentityHash]; !seen || epochByPos[i] > existing {
			out.epochs[ev.IdentityHash] = epochByPos[i]
		}
	}
	return out, nil
}

// groupCalendarRows splits raw calendar rows into recurrence masters
// (ParentUID == "") and their per-instance overrides, keyed by the
// master's UID.
func groupCalendarRows(raw []model.RawCalendarEvent) ([]model.RawCalendarEvent, map[string][]model.RawCalendarEvent) {
	var masters []model.RawCalendarEvent
	overrides := map[string][]model.RawCalendarEvent{}
	for _, r := range raw {
		if r.ParentUID == "" {
			masters = append(masters, r)
		} else {
			overrides[r.ParentUID] = append(overrides[r.ParentUID], r)
		}
	}
	sort.Slice(masters, func(i, j int) bool { return masters[i].UID < masters[j].UID })
	for k := range overrides {
		sort.Slice(overrides[k], func(i, j int) bool { return overrides[k][i].UID < overrides[k][j].UID })
	}
	return masters, overrides
}
