package engine

import (
	"context"
	"time"

	"github.com/robbiet76/CalendarScheduler/pkg/authority"
	"github.com/robbiet76/CalendarScheduler/pkg/diff"
	"github.com/robbiet76/CalendarScheduler/pkg/ingest"
	"github.com/robbiet76/CalendarScheduler/pkg/model"
	"github.com/robbiet76/CalendarScheduler/pkg/reconcile"
	"github.com/robbiet76/CalendarScheduler/pkg/store"
)

// PreviewResult is everything a `preview` control-plane command reports:
// the plan Apply would execute, plus a side-by-side diff breakdown for
// diagnostics (spec.md §6).
type PreviewResult struct {
	Plan           reconcile.Plan
	CalendarDiff   diff.Result
	FPPDiff        diff.Result
	DesiredCalendar map[string]model.ManifestEvent
	DesiredFPP      map[string]model.ManifestEvent
	Current         model.Manifest
}

// Preview runs the full read-only pipeline: ingest both sides, resolve and
// normalize the calendar side, compute ordering, diff each side against
// the persisted current manifest, decide authority/direction, and
// reconcile into a plan. It performs no writes of any kind.
func (e *Engine) Preview(ctx context.Context) (PreviewResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.computePlan(ctx)
}

// computePlan is Preview's unlocked body. Apply calls it directly while
// already holding e.mu, so the read phase and the write phase it feeds
// share one critical section instead of racing a concurrent Preview
// between "compute plan" and "execute plan".
func (e *Engine) computePlan(ctx context.Context) (PreviewResult, error) {
	loc, err := e.location()
	if err != nil {
		return PreviewResult{}, err
	}

	rows, mtime, err := e.loadFPPRows()
	if err != nil {
		return PreviewResult{}, err
	}
	fppTimestamps, err := e.fppTimestampStore().Load()
	if err != nil {
		return PreviewResult{}, err
	}
	fppSet, err := buildDesiredFPP(rows, e.Config.FPP.Timezone, fppTimestamps, mtime)
	if err != nil {
		return PreviewResult{}, err
	}

	var calSet desiredSet
	calSet.events = map[string]model.ManifestEvent{}
	calSet.epochs = map[string]int64{}
	if e.Calendar != nil {
		calRaw, err := e.fetchCalendarRaw(ctx)
		if err != nil {
			return PreviewResult{}, err
		}
		calSet, err = buildDesiredCalendar(calRaw, e.calendarID(), loc, e.orderContext(loc), time.Now().Unix())
		if err != nil {
			return PreviewResult{}, err
		}
	}

	current, err := e.manifestStore().Load()
	if err != nil {
		return PreviewResult{}, err
	}

	calManifest := model.Manifest{Events: calSet.events}
	fppManifest := model.Manifest{Events: fppSet.events}
	calDiff, err := diff.Diff(calManifest, current)
	if err != nil {
		return PreviewResult{}, err
	}
	fppDiff, err := diff.Diff(fppManifest, current)
	if err != nil {
		return PreviewResult{}, err
	}

	inputs := e.buildReconcileInputs(calSet, fppSet, current)
	plan := reconcile.Reconcile(inputs, e.reconcileSyncMode())

	return PreviewResult{
		Plan: plan, CalendarDiff: calDiff, FPPDiff: fppDiff,
		DesiredCalendar: calSet.events, DesiredFPP: fppSet.events, Current: current,
	}, nil
}

func (e *Engine) calendarID() string {
	if e.Config.GoogleCalendar == nil {
		return ""
	}
	return e.Config.GoogleCalendar.CalendarID
}

// fetchCalendarRaw lists and translates the calendar's rows, caching the
// raw snapshot so a later run can diagnose without a fresh provider call.
func (e *Engine) fetchCalendarRaw(ctx context.Context) ([]model.RawCalendarEvent, error) {
	rows, err := e.Calendar.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := ingest.CalendarEvents(rows)
	if err != nil {
		return nil, err
	}
	snap := e.calendarSnapshotStore()
	_ = snap.Save(store.CalendarSnapshot{CalendarID: e.calendarID(), Events: raw, GeneratedAt: time.Now().Unix()})
	return raw, nil
}

// buildReconcileInputs merges both desired sides with the persisted
// current manifest into one reconcile.Input per identity touched by any
// of the three, inferring the calendar-tombstone trigger from spec.md
// §4.8: an identity that was calendar-controlled in current, has dropped
// out of the desired-calendar set, but is still physically present in the
// scheduler file.
func (e *Engine) buildReconcileInputs(cal, fpp desiredSet, current model.Manifest) []reconcile.Input {
	seen := map[string]bool{}
	var identities []string
	for h := range cal.events {
		if !seen[h] {
			seen[h] = true
			identities = append(identities, h)
		}
	}
	for h := range fpp.events {
		if !seen[h] {
			seen[h] = true
			identities = append(identities, h)
		}
	}
	for h := range current.Events {
		if !seen[h] {
			seen[h] = true
			identities = append(identities, h)
		}
	}

	inputs := make([]reconcile.Input, 0, len(identities))
	for _, h := range identities {
		var dCal, dFPP, cur *model.ManifestEvent
		if v, ok := cal.events[h]; ok {
			ev := v
			dCal = &ev
		}
		if v, ok := fpp.events[h]; ok {
			ev := v
			dFPP = &ev
		}
		if v, ok := current.Events[h]; ok {
			ev := v
			cur = &ev
		}

		decision := authority.Decide(authority.Timestamps{CalendarEpoch: cal.epochs[h], FPPEpoch: fpp.epochs[h]}, diverged(dCal, dFPP, cur))

		calTombstoned := cur != nil && cur.Ownership.Controller == "calendar" && dCal == nil && dFPP != nil

		inputs = append(inputs, reconcile.Input{
			IdentityHash: h, DesiredCalendar: dCal, DesiredFPP: dFPP, Current: cur,
			Decision: decision, CalendarTombstoned: calTombstoned,
		})
	}
	return inputs
}

func diverged(cal, fpp, current *model.ManifestEvent) bool {
	if cal == nil || fpp == nil || current == nil {
		return false
	}
	return cal.StateHash != current.StateHash && fpp.StateHash != current.StateHash
}
