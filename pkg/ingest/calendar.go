// Package ingest implements the Raw Ingest Adapters (spec.md §4.2, C2):
// translating provider-native rows into canonical raw/manifest shapes with
// no semantic interpretation — only shape validation and field mapping.
package ingest

import (
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/robbiet76/CalendarScheduler/pkg/errs"
	"github.com/robbiet76/CalendarScheduler/pkg/model"
)

// CalendarEvents translates a page of Google-shaped calendar rows into
// RawCalendarEvents. Cancelled rows are filtered, never passed through.
// Mandatory fields (id, start, end) must be present or the row fails with
// MalformedRow — ingest never repairs malformed input (spec.md §4.2).
func CalendarEvents(rows []*calendar.Event) ([]model.RawCalendarEvent, error) {
	out := make([]model.RawCalendarEvent, 0, len(rows))
	for _, row := range rows {
		if row.Status == "cancelled" {
			continue
		}
		ev, err := calendarEvent(row)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func calendarEvent(row *calendar.Event) (model.RawCalendarEvent, error) {
	if row.Id == "" {
		return model.RawCalendarEvent{}, errs.MalformedRow("calendar row missing id")
	}
	dtstart := eventDateTimeValue(row.Start)
	dtend := eventDateTimeValue(row.End)
	if dtstart == "" || dtend == "" {
		return model.RawCalendarEvent{}, errs.MalformedRow("calendar row " + row.Id + " missing start or end")
	}

	extended := map[string]string{}
	if row.ExtendedProperties != nil {
		for k, v := range row.ExtendedProperties.Private {
			extended[k] = v
		}
	}

	raw := model.RawCalendarEvent{
		Source:             "google_calendar",
		UID:                row.Id,
		ParentUID:          row.RecurringEventId,
		Summary:            row.Summary,
		Description:        row.Description,
		DTStart:            dtstart,
		DTEnd:              dtend,
		Recurrence:         row.Recurrence,
		ExtendedProperties: extended,
		Cancelled:          false,
	}
	if row.OriginalStartTime != nil {
		raw.OriginalStartTime = eventDateTimeValue(row.OriginalStartTime)
	}
	if epoch, ok := parseRFC3339Epoch(row.Updated); ok {
		raw.UpdatedAtEpoch = epoch
	}
	return raw, nil
}

func eventDateTimeValue(dt *calendar.EventDateTime) string {
	if dt == nil {
		return ""
	}
	if dt.DateTime != "" {
		return dt.DateTime
	}
	return dt.Date
}

func parseRFC3339Epoch(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, false
	}
	return t.Unix(), true
}
