package apply

import (
	"context"

	"google.golang.org/api/calendar/v3"

	"github.com/robbiet76/CalendarScheduler/pkg/errs"
	"github.com/robbiet76/CalendarScheduler/pkg/model"
	"github.com/robbiet76/CalendarScheduler/pkg/primitives"
	"github.com/robbiet76/CalendarScheduler/pkg/reconcile"
	"github.com/robbiet76/CalendarScheduler/pkg/settings"
)

// schemaVersion is stamped into every CREATE/UPDATE's extended properties
// (spec.md §4.9's `cs.schemaVersion`) so a future format change can tell
// which events this run's Apply last touched without reading the manifest.
const schemaVersion = "1"

// CalendarWriter is the minimal provider surface ApplyCalendar needs. It is
// satisfied by *pkg/provider.CalendarClient; narrowing it to an interface
// here keeps this package testable with a fake.
type CalendarWriter interface {
	InsertEvent(ctx context.Context, ev *calendar.Event) (string, error)
	UpdateEvent(ctx context.Context, providerEventID string, ev *calendar.Event, etag string) error
	DeleteEvent(ctx context.Context, providerEventID string) error
}

// CalendarResult summarizes the identities ApplyCalendar touched, and the
// provider event IDs newly assigned to CREATEs (so the caller can persist
// them into the manifest's correlation field).
type CalendarResult struct {
	Created map[string]string // identityHash -> new providerEventId
	Updated []string
	Deleted []string
}

// ApplyCalendar executes the fpp->calendar subset of a plan (spec.md
// §4.9's Calendar write protocol). Every operation is a full per-identity
// CRUD call; there is no batching, since the provider client issues one
// HTTP request per call and §5's concurrency model only allows overlap
// during the read phase, not Apply.
func ApplyCalendar(ctx context.Context, client CalendarWriter, items []reconcile.PlanItem, providerEventIDs map[string]string, etags map[string]string) (CalendarResult, error) {
	result := CalendarResult{Created: map[string]string{}}
	for _, item := range items {
		switch item.Operation {
		case reconcile.OpCreate:
			ev, err := toCalendarEvent(item.Event)
			if err != nil {
				return CalendarResult{}, err
			}
			id, err := client.InsertEvent(ctx, ev)
			if err != nil {
				return CalendarResult{}, err
			}
			result.Created[item.IdentityHash] = id
		case reconcile.OpUpdate:
			providerEventID := providerEventIDs[item.IdentityHash]
			if providerEventID == "" {
				return CalendarResult{}, errs.InvariantViolation("update plan item " + item.IdentityHash + " has no known provider event id")
			}
			ev, err := toCalendarEvent(item.Event)
			if err != nil {
				return CalendarResult{}, err
			}
			if err := client.UpdateEvent(ctx, providerEventID, ev, etags[item.IdentityHash]); err != nil {
				return CalendarResult{}, err
			}
			result.Updated = append(result.Updated, item.IdentityHash)
		case reconcile.OpDelete:
			providerEventID := providerEventIDs[item.IdentityHash]
			if providerEventID == "" {
				return CalendarResult{}, errs.InvariantViolation("delete plan item " + item.IdentityHash + " has no known provider event id")
			}
			if err := client.DeleteEvent(ctx, providerEventID); err != nil {
				return CalendarResult{}, err
			}
			result.Deleted = append(result.Deleted, item.IdentityHash)
		}
	}
	return result, nil
}

// toCalendarEvent builds the full-replace *calendar.Event body for a
// manifest event's CREATE/UPDATE: DTSTART/DTEND from the base sub-event,
// one EXDATE line per override sub-event, and the opaque settings block
// mirrored into the description. No RRULE line is written: the manifest
// event does not hold the source RRULE, so the recurrence list carries
// only the EXDATE lines from recurrenceLines.
func toCalendarEvent(ev model.ManifestEvent) (*calendar.Event, error) {
	base, ok := ev.BaseSubEvent()
	if !ok {
		return nil, errs.InvariantViolation("calendar-bound manifest event has no single base sub-event")
	}

	start, err := calendarEventDateTime(base.Timing.StartDate, base.Timing.StartTime, base.Timing.AllDay, base.Timing.Timezone)
	if err != nil {
		return nil, err
	}
	end, err := calendarEventDateTime(base.Timing.EndDate, base.Timing.EndTime, base.Timing.AllDay, base.Timing.Timezone)
	if err != nil {
		return nil, err
	}

	s := settings.Settings{
		Type:        string(base.Type),
		Enabled:     base.Behavior.Enabled,
		StopType:    base.Behavior.StopType,
		Repeat:      base.Behavior.Repeat,
		CommandArgs: base.Payload,
		Extra:       map[string]string{},
	}
	if base.Timing.StartTime != nil && base.Timing.StartTime.IsSymbolic() {
		s.Start = string(*base.Timing.StartTime.Symbolic)
		s.StartOffset = base.Timing.StartTime.Offset
	}
	if base.Timing.EndTime != nil && base.Timing.EndTime.IsSymbolic() {
		s.End = string(*base.Timing.EndTime.Symbolic)
		s.EndOffset = base.Timing.EndTime.Offset
	}

	recurrence := recurrenceLines(ev)

	out := &calendar.Event{
		Summary:     base.Target,
		Description: settings.Encode(s),
		Start:       start,
		End:         end,
		Recurrence:  recurrence,
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				"cs.manifestEventId": ev.IdentityHash,
				"cs.provider":        "calendar_scheduler",
				"cs.schemaVersion":   schemaVersion,
			},
		},
	}
	return out, nil
}

// calendarEventDateTime renders a (date, time) pair as a calendar.EventDateTime.
// A symbolic time is never resolved to a real instant: the wire-level
// DateTime carries the date at local midnight as a placeholder, and the
// symbolic token and its offset live in the settings block instead, decoded
// back out by Resolution on the next read. Only a hard time component
// produces a DateTime at that time of day.
func calendarEventDateTime(date primitives.DateValue, tv *primitives.TimeValue, allDay bool, tz string) (*calendar.EventDateTime, error) {
	if date.Hard == nil {
		return nil, errs.InvariantViolation("calendar event requires a hard date, got symbolic-only value")
	}
	datePattern := string(*date.Hard)
	if allDay {
		return &calendar.EventDateTime{Date: datePattern}, nil
	}
	if tv == nil {
		return nil, errs.InvariantViolation("non-all-day event missing a time value")
	}
	if tv.IsSymbolic() {
		// Symbolic time: the instant cannot be computed without resolving
		// against the solar estimator, which Apply never does (that stays a
		// heuristic confined to Ordering). The settings block is the
		// authoritative symbolic record; the wire event's own start/end
		// fields fall back to the date at local midnight as a placeholder
		// the next Resolution pass re-derives from settings, never read as
		// the real schedule.
		return &calendar.EventDateTime{DateTime: datePattern + "T00:00:00", TimeZone: tz}, nil
	}
	return &calendar.EventDateTime{DateTime: datePattern + "T" + *tv.Hard, TimeZone: tz}, nil
}

// recurrenceLines builds the EXDATE lines for ev: each override
// sub-event's start date becomes one EXDATE carved out of the base's
// recurrence. Only EXDATE lines are emitted; this manifest shape does not
// retain the base's RRULE, so none is written, and an UPDATE (a full
// replace) does not keep an RRULE already present on the calendar row.
func recurrenceLines(ev model.ManifestEvent) []string {
	var lines []string
	for _, ov := range ev.OverrideSubEvents() {
		if ov.Timing.StartDate.Hard == nil {
			continue
		}
		lines = append(lines, "EXDATE;VALUE=DATE:"+string(*ov.Timing.StartDate.Hard))
	}
	return lines
}
