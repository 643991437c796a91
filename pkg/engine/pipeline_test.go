package engine

import (
	"testing"
	"time"

	"github.com/robbiet76/CalendarScheduler/pkg/fppfile"
	"github.com/robbiet76/CalendarScheduler/pkg/model"
	"github.com/robbiet76/CalendarScheduler/pkg/order"
	"github.com/robbiet76/CalendarScheduler/pkg/store"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("LoadLocation(%q): %v", name, err)
	}
	return loc
}

// TestBuildDesiredCalendarEXDATESplitSurvivesAsThreeEvents covers spec.md
// §8 S1 at the engine-wiring level: a daily all-day recurrence with two
// EXDATEs resolves into 3 bundles sharing one (type, target, timing)
// identity (dates are excluded from Identity, spec.md §3), and all 3 must
// reach the desired-calendar manifest as distinct ManifestEvents rather
// than the last one silently overwriting the other two in the identity-
// keyed map.
func TestBuildDesiredCalendarEXDATESplitSurvivesAsThreeEvents(t *testing.T) {
	loc := mustLocation(t, "America/Chicago")
	master := model.RawCalendarEvent{
		Source:      "google",
		UID:         "evt-1",
		Summary:     "Playlist A",
		Description: "[settings]\ntype=playlist\nenabled=true\n",
		DTStart:     "2024-02-01",
		DTEnd:       "2024-02-02",
		Recurrence: []string{
			"RRULE:FREQ=DAILY;UNTIL=20240228",
			"EXDATE;VALUE=DATE:20240210,20240215",
		},
	}

	orderCtx := order.Context{Location: loc, OffsetStepMin: 5}
	set, err := buildDesiredCalendar([]model.RawCalendarEvent{master}, "primary", loc, orderCtx, 1700000000)
	if err != nil {
		t.Fatalf("buildDesiredCalendar: %v", err)
	}

	if len(set.events) != 3 {
		t.Fatalf("expected 3 surviving manifest events, got %d", len(set.events))
	}

	seenStart := map[string]bool{}
	for hash, ev := range set.events {
		if ev.IdentityHash != hash {
			t.Fatalf("event stored under mismatched key: map key %q, event.IdentityHash %q", hash, ev.IdentityHash)
		}
		base, ok := ev.BaseSubEvent()
		if !ok {
			t.Fatalf("event %s: expected exactly one base sub-event", hash)
		}
		if base.Timing.StartDate.Hard == nil {
			t.Fatalf("event %s: expected a hard start date", hash)
		}
		start := string(*base.Timing.StartDate.Hard)
		if seenStart[start] {
			t.Fatalf("two surviving events share start date %s", start)
		}
		seenStart[start] = true
	}
	for _, want := range []string{"2024-02-01", "2024-02-11", "2024-02-16"} {
		if !seenStart[want] {
			t.Fatalf("missing surviving segment starting %s; got %v", want, seenStart)
		}
	}
}

// TestBuildDesiredFPPDuplicateRowsDisambiguate covers the FPP-side
// equivalent: two scheduler rows with identical type/target/timing but
// different date ranges re-derive the same geometry-based identity
// (spec.md §4.2) and must both survive into the desired-FPP manifest.
func TestBuildDesiredFPPDuplicateRowsDisambiguate(t *testing.T) {
	rows := []fppfile.Row{
		{
			Type: "playlist", Target: "Playlist A",
			StartTime: "18:00:00", EndTime: "22:00:00",
			StartDate: "2024-01-01", EndDate: "2024-06-01",
			DayEnum: fppfile.DayEveryday, Enabled: true,
		},
		{
			Type: "playlist", Target: "Playlist A",
			StartTime: "18:00:00", EndTime: "22:00:00",
			StartDate: "2024-07-01", EndDate: "2024-12-31",
			DayEnum: fppfile.DayEveryday, Enabled: true,
		},
	}
	set, err := buildDesiredFPP(rows, "America/Chicago", store.FPPTimestamps{
		ByIdentity:  map[string]int64{},
		ByStateHash: map[string]int64{},
	}, 1700000000)
	if err != nil {
		t.Fatalf("buildDesiredFPP: %v", err)
	}
	if len(set.events) != 2 {
		t.Fatalf("expected 2 surviving manifest events, got %d", len(set.events))
	}
}
