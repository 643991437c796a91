package apply

import (
	"sort"

	"github.com/robbiet76/CalendarScheduler/pkg/errs"
	"github.com/robbiet76/CalendarScheduler/pkg/fppfile"
	"github.com/robbiet76/CalendarScheduler/pkg/ingest"
	"github.com/robbiet76/CalendarScheduler/pkg/model"
	"github.com/robbiet76/CalendarScheduler/pkg/normalize"
	"github.com/robbiet76/CalendarScheduler/pkg/order"
	"github.com/robbiet76/CalendarScheduler/pkg/primitives"
	"github.com/robbiet76/CalendarScheduler/pkg/reconcile"
)

// FPPResult summarizes the identities ApplyFPP touched.
type FPPResult struct {
	Created []string
	Updated []string
	Deleted []string
}

// fppSlot is one position in the original scheduler file: either a pinned
// unmanaged row, or a placeholder that will be re-filled by whichever
// managed identity lands in this slot after re-ordering.
type fppSlot struct {
	unmanagedRow    *fppfile.Row
	managedIdentity string
}

// ApplyFPP executes the calendar->fpp subset of a plan against the
// scheduler file's current rows, implementing spec.md §4.9's FPP write
// protocol steps 2-4 (step 1, loading the file, and step 5, the atomic
// staging/backup/lock/rename, are the caller's and fppfile.WriteAtomic's
// jobs respectively, so both targets can be prepared before either commits).
//
// Unmanaged rows are never touched and keep their original relative
// position. Deleted managed identities vacate their slot. The remaining
// managed identities (untouched, updated, or newly created) are re-ordered
// by the Ordering Engine and poured back into the managed slots in that
// order; any identities beyond the number of surviving slots — i.e. new
// creates — are appended at the end of the file, per spec.md §4.9's
// "for creates, append".
func ApplyFPP(items []reconcile.PlanItem, currentRows []fppfile.Row, tz string, orderCtx order.Context) ([]fppfile.Row, FPPResult, error) {
	currentEvents, err := ingest.FPPManifestEvents(currentRows, tz)
	if err != nil {
		return nil, FPPResult{}, err
	}
	if len(currentEvents) != len(currentRows) {
		return nil, FPPResult{}, errs.InvariantViolation("fpp row/event count mismatch while applying")
	}
	// Two distinct rows (same type/target/timing, different date ranges)
	// re-derive the same geometry-based identity (spec.md §4.2); Deduplicate
	// disambiguates them before they become map<identityHash,...> keys below,
	// preserving currentEvents[i] <-> currentRows[i] position correspondence.
	currentEvents, err = normalize.Deduplicate(currentEvents)
	if err != nil {
		return nil, FPPResult{}, err
	}

	slots := make([]fppSlot, 0, len(currentRows))
	managed := make(map[string]model.ManifestEvent, len(currentRows))
	for i, row := range currentRows {
		ev := currentEvents[i]
		if !ev.Ownership.Managed {
			r := row
			slots = append(slots, fppSlot{unmanagedRow: &r})
			continue
		}
		slots = append(slots, fppSlot{managedIdentity: ev.IdentityHash})
		managed[ev.IdentityHash] = ev
	}

	var result FPPResult
	deleted := map[string]bool{}
	for _, item := range items {
		switch item.Operation {
		case reconcile.OpDelete:
			deleted[item.IdentityHash] = true
			delete(managed, item.IdentityHash)
			result.Deleted = append(result.Deleted, item.IdentityHash)
		case reconcile.OpUpdate, reconcile.OpCreate:
			ev := item.Event
			ev.Ownership = model.Ownership{Managed: true, Controller: "calendar"}
			managed[item.IdentityHash] = ev
			if item.Operation == reconcile.OpCreate {
				result.Created = append(result.Created, item.IdentityHash)
			} else {
				result.Updated = append(result.Updated, item.IdentityHash)
			}
		}
	}

	kept := make([]fppSlot, 0, len(slots))
	for _, s := range slots {
		if s.managedIdentity != "" && deleted[s.managedIdentity] {
			continue
		}
		kept = append(kept, s)
	}

	queue, err := orderedManagedIdentities(managed, orderCtx)
	if err != nil {
		return nil, FPPResult{}, err
	}

	finalRows := make([]fppfile.Row, 0, len(kept)+len(queue))
	queueIdx := 0
	for _, s := range kept {
		if s.unmanagedRow != nil {
			finalRows = append(finalRows, *s.unmanagedRow)
			continue
		}
		identity := queue[queueIdx]
		queueIdx++
		row, err := rowFromManifestEvent(managed[identity])
		if err != nil {
			return nil, FPPResult{}, err
		}
		finalRows = append(finalRows, row)
	}
	for ; queueIdx < len(queue); queueIdx++ {
		row, err := rowFromManifestEvent(managed[queue[queueIdx]])
		if err != nil {
			return nil, FPPResult{}, err
		}
		finalRows = append(finalRows, row)
	}

	return finalRows, result, nil
}

// orderedManagedIdentities runs the final surviving managed set through the
// Ordering Engine and returns identities sorted by the resulting global
// executionOrder.
func orderedManagedIdentities(managed map[string]model.ManifestEvent, ctx order.Context) ([]string, error) {
	items := make([]order.Item, 0, len(managed))
	for identity, ev := range managed {
		base, ok := ev.BaseSubEvent()
		if !ok {
			return nil, errs.InvariantViolation("fpp-bound manifest event " + identity + " has no single base sub-event")
		}
		items = append(items, order.Item{Key: identity, SubEvent: base})
	}
	positions, err := order.Compute(items, ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(positions))
	for identity := range positions {
		out = append(out, identity)
	}
	sort.Slice(out, func(i, j int) bool { return positions[out[i]] < positions[out[j]] })
	return out, nil
}

const managedMarkerValue = "true"

// rowFromManifestEvent renders a ManifestEvent's single base sub-event back
// into the on-disk FPP row shape, stamping the cs_managed provenance marker
// this system reads back on its next run (pkg/ingest).
func rowFromManifestEvent(ev model.ManifestEvent) (fppfile.Row, error) {
	base, ok := ev.BaseSubEvent()
	if !ok {
		return fppfile.Row{}, errs.InvariantViolation("fpp-bound manifest event has no single base sub-event")
	}
	if len(ev.OverrideSubEvents()) > 0 {
		return fppfile.Row{}, errs.UnsupportedProvider("FPP scheduler rows cannot represent per-occurrence overrides")
	}

	dayEnum, err := fppfile.DayEnumFromWeekday(base.Timing.Days)
	if err != nil {
		return fppfile.Row{}, err
	}
	startDate, err := hardDateString(base.Timing.StartDate)
	if err != nil {
		return fppfile.Row{}, err
	}
	endDate, err := hardDateString(base.Timing.EndDate)
	if err != nil {
		return fppfile.Row{}, err
	}

	args := map[string]string{}
	for k, v := range base.Payload {
		args[k] = v
	}
	args[managedMarkerKeyConst] = managedMarkerValue

	row := fppfile.Row{
		Type:      string(base.Type),
		Target:    base.Target,
		StartDate: startDate,
		EndDate:   endDate,
		DayEnum:   dayEnum,
		Repeat:    base.Behavior.Repeat,
		StopType:  base.Behavior.StopType,
		Enabled:   base.Behavior.Enabled,
		Args:      args,
	}
	if !base.Timing.AllDay {
		st, err := timeValueString(base.Timing.StartTime)
		if err != nil {
			return fppfile.Row{}, err
		}
		et, err := timeValueString(base.Timing.EndTime)
		if err != nil {
			return fppfile.Row{}, err
		}
		row.StartTime, row.EndTime = st, et
	}
	return row, nil
}

// managedMarkerKeyConst mirrors pkg/ingest's managedMarkerKey; it is
// re-declared here rather than exported cross-package to keep the
// provenance marker's ownership with the adapter that reads it.
const managedMarkerKeyConst = "cs_managed"

// hardDateString renders a DateValue as FPP's "YYYY-MM-DD" field. FPP has
// no symbolic-date concept (holiday tokens only ever attach to a time of
// day during Resolution, never to a date range), so a symbolic-only date
// reaching this point is an invariant violation, not a recoverable case.
func hardDateString(dv primitives.DateValue) (string, error) {
	if dv.Hard == nil {
		return "", errs.InvariantViolation("fpp row requires a hard date, got symbolic-only value")
	}
	return string(*dv.Hard), nil
}

// timeValueString renders a TimeValue as FPP expects: a hard "HH:MM:SS"
// string verbatim, or — since real FPP schedules natively accept
// "SunRise"/"SunSet"/"Dawn"/"Dusk" tokens in this same field — the symbolic
// token name verbatim. The per-minute offset a symbolic TimeValue carries
// has no FPP-native string encoding and is dropped here; DESIGN.md records
// this as a deliberate simplification.
func timeValueString(tv *primitives.TimeValue) (string, error) {
	if tv == nil {
		return "", nil
	}
	if tv.Hard != nil {
		return *tv.Hard, nil
	}
	if tv.Symbolic != nil {
		return string(*tv.Symbolic), nil
	}
	return "", errs.InvariantViolation("time value has neither hard nor symbolic component")
}
