package ingest

import (
	"fmt"

	"github.com/robbiet76/CalendarScheduler/pkg/errs"
	"github.com/robbiet76/CalendarScheduler/pkg/fppfile"
	"github.com/robbiet76/CalendarScheduler/pkg/model"
	"github.com/robbiet76/CalendarScheduler/pkg/normalize"
	"github.com/robbiet76/CalendarScheduler/pkg/primitives"
)

// managedMarkerKey is the Args key this system writes on every row it owns
// (mirrored back on CREATE/UPDATE in the Apply Engine, spec.md §4.9). Its
// absence means the row was hand-authored or created by something else and
// is therefore unmanaged and read-only everywhere in reconciliation.
const managedMarkerKey = "cs_managed"

// FPPManifestEvents reads the FPP scheduler file's rows directly into
// manifest-shape ManifestEvents, row index implying the initial execution
// order (spec.md §4.2). Unlike the calendar side, there is no separate
// resolution/normalization pass: identity is re-derived from geometry
// (type, target, timing) right here, and managed/unmanaged is inferred
// from the provenance marker this system stamps into Args.
func FPPManifestEvents(rows []fppfile.Row, tz string) ([]model.ManifestEvent, error) {
	out := make([]model.ManifestEvent, 0, len(rows))
	for i, row := range rows {
		ev, err := fppManifestEvent(row, i, tz)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func fppManifestEvent(row fppfile.Row, rowIndex int, tz string) (model.ManifestEvent, error) {
	if row.Type == "" || row.Target == "" {
		return model.ManifestEvent{}, errs.MalformedRow(fmt.Sprintf("fpp row %d missing type or target", rowIndex))
	}

	managed := row.Args != nil && row.Args[managedMarkerKey] == "true"

	weekday, err := fppfile.WeekdayFromDayEnum(row.DayEnum)
	if err != nil {
		return model.ManifestEvent{}, err
	}

	allDay := row.StartTime == "" && row.EndTime == ""
	timing := model.Timing{
		AllDay:    allDay,
		StartDate: primitives.DateValue{Hard: hardPattern(row.StartDate)},
		EndDate:   primitives.DateValue{Hard: hardPattern(row.EndDate)},
		Days:      weekday,
		Timezone:  tz,
	}
	if !allDay {
		startTime := primitives.TimeValue{Hard: hardTime(row.StartTime)}
		endTime := primitives.TimeValue{Hard: hardTime(row.EndTime)}
		timing.StartTime = &startTime
		timing.EndTime = &endTime
	}
	if err := timing.Validate(); err != nil {
		return model.ManifestEvent{}, errs.MalformedRow("fpp row " + row.Target + ": " + err.Error())
	}

	sub := model.SubEvent{
		Type:   model.SubEventType(row.Type),
		Target: row.Target,
		Timing: timing,
		Behavior: model.Behavior{
			Enabled:  row.Enabled,
			Repeat:   row.Repeat,
			StopType: row.StopType,
		},
		Payload:        row.Args,
		Role:           model.RoleBase,
		ExecutionOrder: rowIndex,
	}

	ev, err := normalize.BuildFromSubEvents([]model.SubEvent{sub}, row.Target, row.Enabled, normalize.Options{
		Source:   "fpp",
		Provider: "fpp_scheduler_file",
	})
	if err != nil {
		return model.ManifestEvent{}, err
	}
	ev.Ownership = model.Ownership{Managed: managed, Controller: controllerOf(managed)}
	return ev, nil
}

func controllerOf(managed bool) string {
	if managed {
		return "calendar"
	}
	return "manual"
}

func hardPattern(s string) *primitives.DatePattern {
	if s == "" {
		return nil
	}
	p := primitives.DatePattern(s)
	return &p
}

func hardTime(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
