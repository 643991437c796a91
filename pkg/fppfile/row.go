// Package fppfile models the FPP scheduler file: an ordered JSON array of
// flat scheduler rows (spec.md §6, "Scheduler file on disk"), plus the
// dayEnum encoding FPP uses for its day-of-week field.
package fppfile

import (
	"encoding/json"

	"github.com/robbiet76/CalendarScheduler/pkg/errs"
	"github.com/robbiet76/CalendarScheduler/pkg/primitives"
)

// Row is one flat scheduler entry, in the shape FPP reads/writes on disk.
// Field order in the JSON object is irrelevant; file-level ordering
// (execution order) is the position of the Row within the array.
type Row struct {
	Type      string            `json:"type"`
	Target    string            `json:"target"`
	StartTime string            `json:"startTime"`
	EndTime   string            `json:"endTime"`
	StartDate string            `json:"startDate"`
	EndDate   string            `json:"endDate"`
	DayEnum   int               `json:"dayEnum"`
	Repeat    int               `json:"repeat"`
	StopType  int               `json:"stopType"`
	Enabled   bool              `json:"enabled"`
	Args      map[string]string `json:"args,omitempty"`
}

// Named dayEnum values FPP's scheduler recognizes (spec.md §6: "dayEnum is
// an integer 0..15"). Values 10-15 are reserved by FPP for additional named
// day combinations this module does not produce or consume; a Weekday that
// does not match one of the sets below cannot be expressed as a single
// dayEnum and fails at DayEnumFromWeekday (see DESIGN.md's Open Question
// decision on this).
const (
	DaySunday    = 0
	DayMonday    = 1
	DayTuesday   = 2
	DayWednesday = 3
	DayThursday  = 4
	DayFriday    = 5
	DaySaturday  = 6
	DayEveryday  = 7
	DayWeekdays  = 8
	DayWeekends  = 9
)

var singleDayOrder = []primitives.WeekdayCode{
	primitives.SU, primitives.MO, primitives.TU, primitives.WE,
	primitives.TH, primitives.FR, primitives.SA,
}

// DayEnumFromWeekday encodes a Weekday constraint as FPP's dayEnum. Only
// "every day" (nil), a single weekday, weekdays (Mon-Fri), and weekends
// (Sat-Sun) round-trip; any other weekly subset, and any date-parity
// constraint, has no FPP-native representation.
func DayEnumFromWeekday(w *primitives.Weekday) (int, error) {
	if w == nil {
		return DayEveryday, nil
	}
	if w.Type == primitives.WeekdayDateParity {
		return 0, errs.UnsupportedProvider("FPP's dayEnum has no date-parity representation")
	}
	set := map[primitives.WeekdayCode]bool{}
	for _, c := range w.Weekly {
		set[c] = true
	}
	switch {
	case len(set) == 7:
		return DayEveryday, nil
	case len(set) == 5 && allOf(set, primitives.MO, primitives.TU, primitives.WE, primitives.TH, primitives.FR):
		return DayWeekdays, nil
	case len(set) == 2 && allOf(set, primitives.SU, primitives.SA):
		return DayWeekends, nil
	case len(set) == 1:
		for i, code := range singleDayOrder {
			if set[code] {
				return i, nil
			}
		}
	}
	return 0, errs.UnsupportedProvider("FPP's dayEnum cannot represent this weekday combination")
}

// WeekdayFromDayEnum decodes a dayEnum back into a Weekday constraint (nil
// for "every day").
func WeekdayFromDayEnum(dayEnum int) (*primitives.Weekday, error) {
	switch dayEnum {
	case DayEveryday:
		return nil, nil
	case DayWeekdays:
		return primitives.NewWeekly(primitives.MO, primitives.TU, primitives.WE, primitives.TH, primitives.FR)
	case DayWeekends:
		return primitives.NewWeekly(primitives.SU, primitives.SA)
	default:
		if dayEnum >= DaySunday && dayEnum <= DaySaturday {
			return primitives.NewWeekly(singleDayOrder[dayEnum])
		}
		return nil, errs.UnsupportedProvider("unsupported dayEnum value")
	}
}

func allOf(set map[primitives.WeekdayCode]bool, codes ...primitives.WeekdayCode) bool {
	for _, c := range codes {
		if !set[c] {
			return false
		}
	}
	return true
}

// ReadRows decodes a scheduler file body (the JSON array) into Rows,
// preserving array order as the implicit execution order.
func ReadRows(data []byte) ([]Row, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errs.Wrap(errs.KindIO, "scheduler_parse_failed", "could not parse scheduler file", err)
	}
	return rows, nil
}

// WriteRows encodes rows back into the on-disk JSON array shape, in the
// given order (the caller, C9 Apply, is responsible for ordering rows by
// the final global executionOrder before calling this).
func WriteRows(rows []Row) ([]byte, error) {
	if rows == nil {
		rows = []Row{}
	}
	raw, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "scheduler_marshal_failed", "could not marshal scheduler file", err)
	}
	return raw, nil
}
