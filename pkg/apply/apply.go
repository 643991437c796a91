// Package apply implements the Apply Engine (spec.md §4.9, C9): it turns a
// reconciliation plan into the concrete writes each side needs, grouped by
// target and gated by a writability policy, and leaves the actual
// side-effecting writes to ApplyFPP/ApplyCalendar so the orchestrator can
// stage both targets before either one commits (spec.md §4.9's "no partial
// apply" guarantee).
package apply

import (
	"fmt"

	"github.com/robbiet76/CalendarScheduler/pkg/authority"
	"github.com/robbiet76/CalendarScheduler/pkg/errs"
	"github.com/robbiet76/CalendarScheduler/pkg/reconcile"
)

// Mode mirrors the three CLI-visible run modes (spec.md §4.9): plan and
// dryRun never write; apply does.
type Mode string

const (
	ModePlan   Mode = "plan"
	ModeDryRun Mode = "dryRun"
	ModeApply  Mode = "apply"
)

// Writes reports whether this mode performs side effects.
func (m Mode) Writes() bool { return m == ModeApply }

// Policy is the writability policy an apply run carries.
type Policy struct {
	FPP           bool
	Calendar      bool
	FailOnBlocked bool
}

// BlockedAction records one plan item this run could not execute: either an
// authority conflict, or an action whose direction the Policy forbids.
type BlockedAction struct {
	IdentityHash string
	Reason       string
}

// Grouped splits a reconciliation plan into per-target executable subsets
// plus whatever the policy or an unresolved conflict blocked.
type Grouped struct {
	FPP      []reconcile.PlanItem
	Calendar []reconcile.PlanItem
	Blocked  []BlockedAction
}

// Group partitions plan.Items by target direction, honoring Policy. A
// reconcile.OpConflict item is always blocked — it requires the operator to
// resolve the conflict out of band, never an automatic pick. When
// FailOnBlocked is set, any blocked action is a hard failure (spec.md
// §4.9's "hard-fail on any blocked action under strict policy").
func Group(plan reconcile.Plan, policy Policy) (Grouped, error) {
	var g Grouped
	for _, item := range plan.Items {
		switch {
		case item.Operation == reconcile.OpConflict:
			g.Blocked = append(g.Blocked, BlockedAction{item.IdentityHash, "authority-conflict"})
		case item.Direction == authority.DirCalendarToFPP:
			if !policy.FPP {
				g.Blocked = append(g.Blocked, BlockedAction{item.IdentityHash, "fpp-writes-disabled"})
				continue
			}
			g.FPP = append(g.FPP, item)
		case item.Direction == authority.DirFPPToCalendar:
			if !policy.Calendar {
				g.Blocked = append(g.Blocked, BlockedAction{item.IdentityHash, "calendar-writes-disabled"})
				continue
			}
			g.Calendar = append(g.Calendar, item)
		}
	}
	if len(g.Blocked) > 0 && policy.FailOnBlocked {
		return Grouped{}, errs.Conflict(fmt.Sprintf("%d action(s) blocked by policy", len(g.Blocked)))
	}
	return g, nil
}
