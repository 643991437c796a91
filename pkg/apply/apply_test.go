package apply

import (
	"testing"

	"github.com/robbiet76/CalendarScheduler/pkg/authority"
	"github.com/robbiet76/CalendarScheduler/pkg/reconcile"
)

func TestGroupSplitsByDirection(t *testing.T) {
	plan := reconcile.Plan{Items: []reconcile.PlanItem{
		{IdentityHash: "a", Operation: reconcile.OpCreate, Direction: authority.DirCalendarToFPP},
		{IdentityHash: "b", Operation: reconcile.OpUpdate, Direction: authority.DirFPPToCalendar},
		{IdentityHash: "c", Operation: reconcile.OpConflict},
	}}

	g, err := Group(plan, Policy{FPP: true, Calendar: true})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if len(g.FPP) != 1 || g.FPP[0].IdentityHash != "a" {
		t.Errorf("expected one fpp-directed item, got %+v", g.FPP)
	}
	if len(g.Calendar) != 1 || g.Calendar[0].IdentityHash != "b" {
		t.Errorf("expected one calendar-directed item, got %+v", g.Calendar)
	}
	if len(g.Blocked) != 1 || g.Blocked[0].Reason != "authority-conflict" {
		t.Errorf("expected the conflict item blocked, got %+v", g.Blocked)
	}
}

func TestGroupBlocksDisabledTarget(t *testing.T) {
	plan := reconcile.Plan{Items: []reconcile.PlanItem{
		{IdentityHash: "a", Operation: reconcile.OpCreate, Direction: authority.DirCalendarToFPP},
	}}

	g, err := Group(plan, Policy{FPP: false, Calendar: true})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if len(g.FPP) != 0 {
		t.Errorf("expected fpp writes disabled, got %+v", g.FPP)
	}
	if len(g.Blocked) != 1 || g.Blocked[0].Reason != "fpp-writes-disabled" {
		t.Errorf("expected a blocked action recorded, got %+v", g.Blocked)
	}
}

func TestGroupFailsOnBlockedWhenStrict(t *testing.T) {
	plan := reconcile.Plan{Items: []reconcile.PlanItem{
		{IdentityHash: "a", Operation: reconcile.OpConflict},
	}}

	if _, err := Group(plan, Policy{FPP: true, Calendar: true, FailOnBlocked: true}); err == nil {
		t.Fatal("expected a hard failure when a blocked action exists under strict policy")
	}
}
