package authority

import "testing"

func TestDecideOneSidedTimestamp(t *testing.T) {
	d := Decide(Timestamps{CalendarEpoch: 100}, false)
	if d.Authoritative != SideCalendar || d.Direction != DirCalendarToFPP {
		t.Errorf("got %+v", d)
	}

	d2 := Decide(Timestamps{FPPEpoch: 100}, false)
	if d2.Authoritative != SideFPP || d2.Direction != DirFPPToCalendar {
		t.Errorf("got %+v", d2)
	}
}

func TestDecideNewerWins(t *testing.T) {
	d := Decide(Timestamps{CalendarEpoch: 100, FPPEpoch: 200}, false)
	if d.Authoritative != SideFPP {
		t.Errorf("expected fpp to win on newer timestamp, got %+v", d)
	}
}

func TestDecideTieIsPlannerDefault(t *testing.T) {
	d := Decide(Timestamps{}, false)
	if d.Authoritative != SidePlannerDefault || d.Direction != DirCalendarToFPP || d.Conflict {
		t.Errorf("got %+v", d)
	}
}

func TestDecideConflictOnDivergedTie(t *testing.T) {
	d := Decide(Timestamps{CalendarEpoch: 100, FPPEpoch: 100}, true)
	if !d.Conflict {
		t.Errorf("expected conflict when both sides diverge and timestamps tie, got %+v", d)
	}
}
