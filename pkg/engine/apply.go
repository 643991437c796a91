package engine

import (
	"context"
	"time"

	"github.com/robbiet76/CalendarScheduler/pkg/apply"
	"github.com/robbiet76/CalendarScheduler/pkg/errs"
	"github.com/robbiet76/CalendarScheduler/pkg/fppfile"
	"github.com/robbiet76/CalendarScheduler/pkg/model"
	"github.com/robbiet76/CalendarScheduler/pkg/reconcile"
)

// ApplyResult is everything an `apply` control-plane command reports: the
// plan that was executed, what each side's write actually touched, and
// anything the policy or an unresolved conflict blocked.
type ApplyResult struct {
	Plan     reconcile.Plan
	FPP      apply.FPPResult
	Calendar apply.CalendarResult
	Blocked  []apply.BlockedAction
}

// Apply runs the full pipeline through Preview, groups the resulting plan
// by target under the engine's configured writability policy, and — only
// in apply.ModeApply — executes both sides' writes before persisting the
// new current manifest and tombstone set (spec.md §4.9). plan/dryRun modes
// compute and group the plan but perform no writes of any kind.
//
// Global execution order within each side follows spec.md §4.9: deletes,
// updates, and creates are applied together per target (ApplyFPP/
// ApplyCalendar already sequence within a target), and FPP's final
// re-ordering pass (step 4, "ordering enforcement") always runs as part
// of ApplyFPP's rewrite. The two targets are written one after the other:
// ApplyCalendar's provider CRUD runs first, and ApplyFPP's atomic file
// replace runs only after every calendar CRUD in this run has already
// succeeded, so a calendar failure never leaves a stale FPP rewrite. A
// failure in the FPP step does not roll back calendar writes already made.
func (e *Engine) Apply(ctx context.Context, mode apply.Mode) (ApplyResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	preview, err := e.computePlan(ctx)
	if err != nil {
		return ApplyResult{}, err
	}

	policy := e.applyPolicy()
	grouped, err := apply.Group(preview.Plan, policy)
	if err != nil {
		return ApplyResult{}, err
	}

	result := ApplyResult{Plan: preview.Plan, Blocked: grouped.Blocked}
	if !mode.Writes() {
		return result, nil
	}

	newManifest := copyManifest(preview.Current)
	fppTimestamps, err := e.fppTimestampStore().Load()
	if err != nil {
		return ApplyResult{}, err
	}

	if policy.Calendar && len(grouped.Calendar) > 0 {
		if e.Calendar == nil {
			return ApplyResult{}, errs.New(errs.KindProvider, "no_calendar_client", "plan requires calendar writes but no calendar provider is configured")
		}
		calResult, err := apply.ApplyCalendar(ctx, e.Calendar, grouped.Calendar, providerEventIDs(preview.Current), nil)
		if err != nil {
			return ApplyResult{}, err
		}
		result.Calendar = calResult
		applyCalendarResultToManifest(newManifest, grouped.Calendar, calResult)
	}

	now := time.Now().Unix()
	if policy.FPP {
		rows, _, err := e.loadFPPRows()
		if err != nil {
			return ApplyResult{}, err
		}
		loc, err := e.location()
		if err != nil {
			return ApplyResult{}, err
		}
		finalRows, fppResult, err := apply.ApplyFPP(grouped.FPP, rows, e.Config.FPP.Timezone, e.orderContext(loc))
		if err != nil {
			return ApplyResult{}, err
		}
		result.FPP = fppResult
		backup := e.Config.FPP.BackupPath
		if backup == "" {
			backup = e.Config.FPP.SchedulerPath + ".bak"
		}
		if err := fppfile.WriteAtomic(ctx, e.Config.FPP.SchedulerPath, backup, finalRows); err != nil {
			return ApplyResult{}, err
		}
		applyFPPResultToManifest(newManifest, grouped.FPP)
		for _, ev := range newManifest.Events {
			fppTimestamps.Record(ev.IdentityHash, ev.StateHash, now)
		}
		if err := e.fppTimestampStore().Save(fppTimestamps); err != nil {
			return ApplyResult{}, err
		}
	}

	newManifest.GeneratedAt = now
	if err := e.manifestStore().Save(*newManifest, now); err != nil {
		return ApplyResult{}, err
	}

	if err := e.updateTombstones(preview, grouped, *newManifest); err != nil {
		return ApplyResult{}, err
	}

	return result, nil
}

func copyManifest(m model.Manifest) *model.Manifest {
	out := &model.Manifest{Events: make(map[string]model.ManifestEvent, len(m.Events)), Version: m.Version}
	for h, ev := range m.Events {
		out.Events[h] = ev
	}
	return out
}

// providerEventIDs reads each identity's known provider event id out of the
// current manifest's correlation field, for ApplyCalendar's UPDATE/DELETE
// lookups.
func providerEventIDs(current model.Manifest) map[string]string {
	ids := make(map[string]string, len(current.Events))
	for h, ev := range current.Events {
		if ev.Correlation.ExternalID != "" {
			ids[h] = ev.Correlation.ExternalID
		}
	}
	return ids
}

func applyFPPResultToManifest(m *model.Manifest, items []reconcile.PlanItem) {
	for _, item := range items {
		switch item.Operation {
		case reconcile.OpDelete:
			delete(m.Events, item.IdentityHash)
		case reconcile.OpCreate, reconcile.OpUpdate:
			ev := item.Event
			ev.Ownership = model.Ownership{Managed: true, Controller: "calendar"}
			m.Events[item.IdentityHash] = ev
		}
	}
}

func applyCalendarResultToManifest(m *model.Manifest, items []reconcile.PlanItem, result apply.CalendarResult) {
	for _, item := range items {
		switch item.Operation {
		case reconcile.OpDelete:
			delete(m.Events, item.IdentityHash)
		case reconcile.OpCreate:
			ev := item.Event
			ev.Correlation.ExternalID = result.Created[item.IdentityHash]
			m.Events[item.IdentityHash] = ev
		case reconcile.OpUpdate:
			ev := item.Event
			if existing, ok := m.Events[item.IdentityHash]; ok {
				ev.Correlation.ExternalID = existing.Correlation.ExternalID
			}
			m.Events[item.IdentityHash] = ev
		}
	}
}

// updateTombstones persists the post-apply tombstone set: new calendar
// deletions inferred this run are added, and any tombstone whose identity
// has converged to absent on both sides is dropped (spec.md Invariant 8,
// testable property 8).
func (e *Engine) updateTombstones(preview PreviewResult, grouped apply.Grouped, newManifest model.Manifest) error {
	ts, err := e.tombstoneStore().Load()
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	for _, item := range grouped.FPP {
		if item.Operation == reconcile.OpDelete && item.Reason == "calendar-tombstone" {
			ts.MarkCalendarDeletion(e.calendarID(), item.IdentityHash, now)
		}
	}

	stillAbsentBothSides := func(identityHash string) bool {
		_, inCal := preview.DesiredCalendar[identityHash]
		_, inFPP := preview.DesiredFPP[identityHash]
		_, inCurrent := newManifest.Events[identityHash]
		return !inCal && !inFPP && !inCurrent
	}
	ts.ExpireConverged(stillAbsentBothSides)

	return e.tombstoneStore().Save(ts)
}
