package apply

import (
	"context"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/robbiet76/CalendarScheduler/pkg/model"
	"github.com/robbiet76/CalendarScheduler/pkg/normalize"
	"github.com/robbiet76/CalendarScheduler/pkg/primitives"
	"github.com/robbiet76/CalendarScheduler/pkg/reconcile"
)

type fakeCalendarWriter struct {
	inserted []*calendar.Event
	updated  map[string]*calendar.Event
	deleted  []string
	nextID   string
}

func (f *fakeCalendarWriter) InsertEvent(ctx context.Context, ev *calendar.Event) (string, error) {
	f.inserted = append(f.inserted, ev)
	return f.nextID, nil
}

func (f *fakeCalendarWriter) UpdateEvent(ctx context.Context, providerEventID string, ev *calendar.Event, etag string) error {
	if f.updated == nil {
		f.updated = map[string]*calendar.Event{}
	}
	f.updated[providerEventID] = ev
	return nil
}

func (f *fakeCalendarWriter) DeleteEvent(ctx context.Context, providerEventID string) error {
	f.deleted = append(f.deleted, providerEventID)
	return nil
}

func buildManifestEvent(t *testing.T, target string) model.ManifestEvent {
	t.Helper()
	startTime := primitives.HardTime("18:00:00")
	endTime := primitives.HardTime("22:00:00")
	sub := model.SubEvent{
		Type:   model.TypePlaylist,
		Target: target,
		Timing: model.Timing{
			StartDate: primitives.HardDate(mustDate(t, "2024-02-01")),
			EndDate:   primitives.HardDate(mustDate(t, "2024-02-29")),
			StartTime: &startTime,
			EndTime:   &endTime,
			Timezone:  "America/Chicago",
		},
		Behavior: model.Behavior{Enabled: true},
		Role:     model.RoleBase,
	}
	ev, err := normalize.BuildFromSubEvents([]model.SubEvent{sub}, target, true, normalize.Options{Source: "calendar", Provider: "google_calendar"})
	if err != nil {
		t.Fatalf("BuildFromSubEvents: %v", err)
	}
	return ev
}

func TestApplyCalendarCreateInsertsWithExtendedProperties(t *testing.T) {
	ev := buildManifestEvent(t, "New Show")
	writer := &fakeCalendarWriter{nextID: "evt-new"}

	items := []reconcile.PlanItem{{IdentityHash: ev.IdentityHash, Operation: reconcile.OpCreate, Event: ev}}
	result, err := ApplyCalendar(context.Background(), writer, items, nil, nil)
	if err != nil {
		t.Fatalf("ApplyCalendar: %v", err)
	}
	if result.Created[ev.IdentityHash] != "evt-new" {
		t.Errorf("expected the new provider id recorded, got %+v", result.Created)
	}
	if len(writer.inserted) != 1 {
		t.Fatalf("expected one insert call, got %d", len(writer.inserted))
	}
	props := writer.inserted[0].ExtendedProperties.Private
	if props["cs.manifestEventId"] != ev.IdentityHash {
		t.Errorf("expected manifestEventId stamped, got %+v", props)
	}
}

func TestApplyCalendarUpdateRequiresKnownProviderID(t *testing.T) {
	ev := buildManifestEvent(t, "Existing Show")
	writer := &fakeCalendarWriter{}

	items := []reconcile.PlanItem{{IdentityHash: ev.IdentityHash, Operation: reconcile.OpUpdate, Event: ev}}
	if _, err := ApplyCalendar(context.Background(), writer, items, nil, nil); err == nil {
		t.Fatal("expected an error: no known provider event id for this identity")
	}

	providerIDs := map[string]string{ev.IdentityHash: "evt-1"}
	if _, err := ApplyCalendar(context.Background(), writer, items, providerIDs, nil); err != nil {
		t.Fatalf("ApplyCalendar: %v", err)
	}
	if _, ok := writer.updated["evt-1"]; !ok {
		t.Errorf("expected evt-1 updated, got %+v", writer.updated)
	}
}

func TestApplyCalendarDeleteByProviderID(t *testing.T) {
	writer := &fakeCalendarWriter{}
	items := []reconcile.PlanItem{{IdentityHash: "abc", Operation: reconcile.OpDelete}}
	providerIDs := map[string]string{"abc": "evt-7"}

	if _, err := ApplyCalendar(context.Background(), writer, items, providerIDs, nil); err != nil {
		t.Fatalf("ApplyCalendar: %v", err)
	}
	if len(writer.deleted) != 1 || writer.deleted[0] != "evt-7" {
		t.Errorf("expected evt-7 deleted, got %+v", writer.deleted)
	}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("time.Parse: %v", err)
	}
	return d
}
