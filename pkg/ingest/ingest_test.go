package ingest

import (
	"testing"

	"google.golang.org/api/calendar/v3"

	"github.com/robbiet76/CalendarScheduler/pkg/fppfile"
)

func TestCalendarEventsFiltersCancelledAndValidates(t *testing.T) {
	rows := []*calendar.Event{
		{Id: "evt-1", Status: "confirmed", Start: &calendar.EventDateTime{DateTime: "2024-02-01T18:00:00-06:00"}, End: &calendar.EventDateTime{DateTime: "2024-02-01T22:00:00-06:00"}},
		{Id: "evt-2", Status: "cancelled"},
	}
	out, err := CalendarEvents(rows)
	if err != nil {
		t.Fatalf("CalendarEvents: %v", err)
	}
	if len(out) != 1 || out[0].UID != "evt-1" {
		t.Fatalf("expected only the confirmed row, got %+v", out)
	}
}

func TestCalendarEventsFailsOnMissingMandatoryFields(t *testing.T) {
	rows := []*calendar.Event{{Id: "evt-1", Status: "confirmed"}}
	if _, err := CalendarEvents(rows); err == nil {
		t.Fatal("expected MalformedRow for a row with no start/end")
	}
}

func TestFPPManifestEventsDerivesOrderAndOwnership(t *testing.T) {
	rows := []fppfile.Row{
		{Type: "playlist", Target: "Show A", StartTime: "18:00:00", EndTime: "22:00:00", StartDate: "2024-02-01", EndDate: "2024-02-29", DayEnum: fppfile.DayEveryday, Enabled: true, Args: map[string]string{"cs_managed": "true"}},
		{Type: "playlist", Target: "Manual Row", StartTime: "08:00:00", EndTime: "09:00:00", StartDate: "2024-01-01", EndDate: "2024-01-02", DayEnum: fppfile.DayEveryday, Enabled: true},
	}
	events, err := FPPManifestEvents(rows, "America/Chicago")
	if err != nil {
		t.Fatalf("FPPManifestEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if !events[0].Ownership.Managed {
		t.Errorf("expected first row to be managed")
	}
	if events[1].Ownership.Managed {
		t.Errorf("expected second row to be unmanaged")
	}
	if events[0].SubEvents[0].ExecutionOrder != 0 || events[1].SubEvents[0].ExecutionOrder != 1 {
		t.Errorf("expected execution order to follow row index, got %+v", events)
	}
}

func TestFPPManifestEventsFailsOnMissingTarget(t *testing.T) {
	rows := []fppfile.Row{{Type: "playlist", DayEnum: fppfile.DayEveryday}}
	if _, err := FPPManifestEvents(rows, "America/Chicago"); err == nil {
		t.Fatal("expected MalformedRow for a row with no target")
	}
}
