package resolve

import (
	"testing"
	"time"

	"github.com/robbiet76/CalendarScheduler/pkg/model"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("LoadLocation(%q): %v", name, err)
	}
	return loc
}

func dateStr(t *testing.T, loc *time.Location, layout, s string) time.Time {
	t.Helper()
	v, err := time.ParseInLocation(layout, s, loc)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

// TestResolveEXDATESplit covers S1: a daily all-day recurrence Feb 1-28 with
// EXDATE {Feb 10, Feb 15} must split into exactly 3 bundles.
func TestResolveEXDATESplit(t *testing.T) {
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

	bundles, err := Resolve(master, nil, loc)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(bundles) != 3 {
		t.Fatalf("expected 3 bundles, got %d", len(bundles))
	}

	wantRanges := [][2]string{
		{"2024-02-01", "2024-02-10"},
		{"2024-02-11", "2024-02-15"},
		{"2024-02-16", "2024-02-29"},
	}
	for i, b := range bundles {
		wantStart := dateStr(t, loc, "2006-01-02", wantRanges[i][0])
		wantEnd := dateStr(t, loc, "2006-01-02", wantRanges[i][1])
		if !b.DateRange.Start.Equal(wantStart) || !b.DateRange.End.Equal(wantEnd) {
			t.Errorf("bundle %d range = [%s, %s), want [%s, %s)",
				i, b.DateRange.Start, b.DateRange.End, wantStart, wantEnd)
		}
		if len(b.Overrides) != 0 {
			t.Errorf("bundle %d: expected no overrides, got %d", i, len(b.Overrides))
		}
		if b.Base.Role != model.RoleBase {
			t.Errorf("bundle %d: base role = %v", i, b.Base.Role)
		}
		if b.Base.Type != model.TypePlaylist {
			t.Errorf("bundle %d: type = %v, want playlist", i, b.Base.Type)
		}
		if b.Base.Target != "Playlist A" {
			t.Errorf("bundle %d: target = %q, want Playlist A", i, b.Base.Target)
		}
		if b.Base.Reversibility.ParentUID != "evt-1" || b.Base.Reversibility.BundleID != b.ID {
			t.Errorf("bundle %d: reversibility not populated: %+v", i, b.Base.Reversibility)
		}
	}
}

// TestResolveSingleDateOverride covers S2: a daily timed recurrence with a
// single-date end-time override collapses to one bundle, base + one override.
func TestResolveSingleDateOverride(t *testing.T) {
	loc := mustLocation(t, "America/Chicago")
	master := model.RawCalendarEvent{
		Source:      "google",
		UID:         "evt-2",
		Summary:     "Playlist A",
		Description: "[settings]\ntype=playlist\nenabled=true\n",
		DTStart:     "2024-02-01T18:00:00-06:00",
		DTEnd:       "2024-02-01T22:00:00-06:00",
		Recurrence: []string{
			"RRULE:FREQ=DAILY;UNTIL=20240229T060000Z",
		},
	}
	override := model.RawCalendarEvent{
		Source:            "google",
		UID:               "evt-2-override-1",
		ParentUID:         "evt-2",
		Summary:           "Playlist A",
		Description:       "[settings]\ntype=playlist\nenabled=true\n",
		DTStart:           "2024-02-10T18:00:00-06:00",
		DTEnd:             "2024-02-10T21:00:00-06:00",
		OriginalStartTime: "2024-02-10T18:00:00-06:00",
	}

	bundles, err := Resolve(master, []model.RawCalendarEvent{override}, loc)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(bundles) != 1 {
		t.Fatalf("expected 1 bundle, got %d", len(bundles))
	}
	b := bundles[0]
	if len(b.Overrides) != 1 {
		t.Fatalf("expected 1 override sub-event, got %d", len(b.Overrides))
	}

	wantBaseStart := dateStr(t, loc, "2006-01-02", "2024-02-01")
	wantBaseEnd := dateStr(t, loc, "2006-01-02", "2024-02-29")
	if !b.DateRange.Start.Equal(wantBaseStart) || !b.DateRange.End.Equal(wantBaseEnd) {
		t.Fatalf("bundle range = [%s, %s)", b.DateRange.Start, b.DateRange.End)
	}

	ov := b.Overrides[0]
	wantOvStart := dateStr(t, loc, "2006-01-02", "2024-02-10")
	wantOvEnd := dateStr(t, loc, "2006-01-02", "2024-02-11")
	if ov.Timing.StartDate.Hard == nil || !patternMatchesDate(t, loc, *ov.Timing.StartDate.Hard, wantOvStart) {
		t.Errorf("override start date = %+v, want %s", ov.Timing.StartDate, wantOvStart)
	}
	if ov.Timing.EndDate.Hard == nil || !patternMatchesDate(t, loc, *ov.Timing.EndDate.Hard, wantOvEnd) {
		t.Errorf("override end date = %+v, want %s", ov.Timing.EndDate, wantOvEnd)
	}
	if ov.Timing.EndTime == nil || ov.Timing.EndTime.Hard == nil || *ov.Timing.EndTime.Hard != "21:00:00" {
		t.Errorf("override end time = %+v, want 21:00:00", ov.Timing.EndTime)
	}
	if b.Base.Timing.EndTime == nil || b.Base.Timing.EndTime.Hard == nil || *b.Base.Timing.EndTime.Hard != "22:00:00" {
		t.Errorf("base end time = %+v, want 22:00:00", b.Base.Timing.EndTime)
	}
	if ov.Reversibility.ParentUID != "evt-2" || ov.Reversibility.BundleID != b.ID {
		t.Errorf("override reversibility not populated: %+v", ov.Reversibility)
	}
}

func patternMatchesDate(t *testing.T, loc *time.Location, p interface{ Matches(time.Time) bool }, want time.Time) bool {
	t.Helper()
	return p.Matches(want)
}
