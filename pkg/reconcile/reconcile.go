// Package reconcile implements the Reconciler (spec.md §4.8, C8): it
// combines the two-source diff, tombstones, the managed/unmanaged boundary,
// and the configured sync mode into a deterministically ordered
// ReconciliationPlan.
package reconcile

import (
	"sort"

	"github.com/robbiet76/CalendarScheduler/pkg/authority"
	"github.com/robbiet76/CalendarScheduler/pkg/model"
)

// SyncMode constrains which directions the reconciler is permitted to emit.
type SyncMode string

const (
	SyncBoth          SyncMode = "both"
	SyncCalendarToFPP SyncMode = "calendar"
	SyncFPPToCalendar SyncMode = "fpp"
)

// Operation is the action a plan item represents.
type Operation string

const (
	OpCreate   Operation = "create"
	OpUpdate   Operation = "update"
	OpDelete   Operation = "delete"
	OpNoop     Operation = "noop"
	OpConflict Operation = "conflict"
)

// PlanItem is one per-identity decision in the final plan.
type PlanItem struct {
	IdentityHash      string
	Operation         Operation
	Direction         authority.Direction
	AuthoritativeSide authority.Side
	Reason            string
	Event             model.ManifestEvent
}

// Plan is the full, deterministically ordered reconciliation output.
type Plan struct {
	Items []PlanItem
}

// Input bundles everything the reconciler needs per identity: presence
// across both desired sides and current, the authority decision, a
// tombstone-inference flag, and whether the identity is a calendar-side
// deletion with an fpp-side echo (the tombstone trigger from §4.8).
type Input struct {
	IdentityHash       string
	DesiredCalendar    *model.ManifestEvent
	DesiredFPP         *model.ManifestEvent
	Current            *model.ManifestEvent
	Decision           authority.Decision
	CalendarTombstoned bool // inferred upstream: was calendar-sourced in current, absent from desired-calendar, present in desired-fpp
}

// Reconcile builds the plan from a set of per-identity inputs and the
// active sync mode.
func Reconcile(inputs []Input, mode SyncMode) Plan {
	items := make([]PlanItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, reconcileOne(in, mode))
	}

	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := phaseRank(items[i].Operation), phaseRank(items[j].Operation)
		if pi != pj {
			return pi < pj
		}
		return items[i].IdentityHash < items[j].IdentityHash
	})

	var plan Plan
	for _, it := range items {
		if it.Operation == OpNoop {
			continue
		}
		plan.Items = append(plan.Items, it)
	}
	return plan
}

func phaseRank(op Operation) int {
	switch op {
	case OpConflict:
		return 0
	case OpDelete:
		return 1
	case OpUpdate:
		return 2
	case OpCreate:
		return 3
	default:
		return 4
	}
}

func reconcileOne(in Input, mode SyncMode) PlanItem {
	item := PlanItem{IdentityHash: in.IdentityHash, Direction: in.Decision.Direction, AuthoritativeSide: in.Decision.Authoritative}

	// Managed boundary: current rows not owned by this system are never
	// touched, regardless of what desired sides say.
	if in.Current != nil && !in.Current.Ownership.Managed {
		item.Operation = OpNoop
		item.Reason = "unmanaged-protected"
		return item
	}

	if in.Decision.Conflict {
		item.Operation = OpConflict
		item.Reason = "authority-conflict"
		return item
	}

	if in.CalendarTombstoned {
		item.Operation = OpDelete
		item.Direction = authority.DirCalendarToFPP
		item.Reason = "calendar-tombstone"
		if !directionAllowed(item.Direction, mode) {
			item.Operation = OpNoop
			item.Reason = "blocked-by-sync-mode"
		}
		return item
	}

	existsDesired := in.DesiredCalendar != nil || in.DesiredFPP != nil
	existsCurrent := in.Current != nil

	switch {
	case existsDesired && !existsCurrent:
		item.Operation = OpCreate
		item.Event = pick(in.DesiredCalendar, in.DesiredFPP)
	case existsDesired && existsCurrent:
		desired := pick(in.DesiredCalendar, in.DesiredFPP)
		if desired.StateHash == in.Current.StateHash {
			item.Operation = OpNoop
			item.Reason = "converged"
			return item
		}
		item.Operation = OpUpdate
		item.Event = desired
	case !existsDesired && existsCurrent:
		item.Operation = OpDelete
	default:
		item.Operation = OpNoop
		item.Reason = "absent-both-sides"
		return item
	}

	if !directionAllowed(item.Direction, mode) {
		item.Operation = OpNoop
		item.Reason = "blocked-by-sync-mode"
	}
	return item
}

func pick(cal, fpp *model.ManifestEvent) model.ManifestEvent {
	if cal != nil {
		return *cal
	}
	return *fpp
}

func directionAllowed(d authority.Direction, mode SyncMode) bool {
	switch mode {
	case SyncCalendarToFPP:
		return d == authority.DirCalendarToFPP
	case SyncFPPToCalendar:
		return d == authority.DirFPPToCalendar
	default:
		return true
	}
}
