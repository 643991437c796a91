package resolve

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/robbiet76/CalendarScheduler/pkg/errs"
	"github.com/robbiet76/CalendarScheduler/pkg/primitives"
)

// coverage is the (start-date, end-date-exclusive, weekly BYDAY mask) shape
// spec.md §4.3 step 1 derives from RRULE + DTSTART.
type coverage struct {
	Range primitives.DateInterval
	Days  *primitives.Weekday
}

// supportedFrequencies bounds what this resolver accepts: only daily or
// weekly cadences at interval 1, optionally constrained to a BYDAY weekday
// set. Anything else (monthly/yearly, interval>1, BYSETPOS, BYMONTHDAY,
// multiple disjoint time windows, ...) is an UnresolvableRecurrence per
// spec.md §4.3.
func deriveCoverage(dtstart, dtend time.Time, allDay bool, recurrence []string) (coverage, []time.Time, error) {
	rruleLine, exdateLines := splitRecurrenceLines(recurrence)

	if rruleLine == "" {
		// A single (non-recurring) instance: coverage is exactly its own
		// one-day (or one-span) window.
		end := dtend
		if allDay && !end.After(dtstart) {
			end = dtstart.AddDate(0, 0, 1)
		}
		return coverage{Range: primitives.DateInterval{Start: dtstart, End: end}}, nil, nil
	}

	opt, err := rrule.StrToROption(rruleLine)
	if err != nil {
		return coverage{}, nil, errs.UnresolvableRecurrence("unable to parse RRULE: " + err.Error()).WithHint("check the RRULE syntax")
	}
	opt.Dtstart = dtstart

	switch opt.Freq {
	case rrule.DAILY, rrule.WEEKLY:
	default:
		return coverage{}, nil, errs.UnresolvableRecurrence("unsupported recurrence frequency").
			WithHint("only daily and weekly recurrences are supported")
	}
	if opt.Interval > 1 {
		return coverage{}, nil, errs.UnresolvableRecurrence("unsupported recurrence interval (multiple disjoint time windows)")
	}
	if len(opt.Bysetpos) > 0 || len(opt.Bymonth) > 0 || len(opt.Bymonthday) > 0 ||
		len(opt.Byyearday) > 0 || len(opt.Byweekno) > 0 || len(opt.Byhour) > 0 ||
		len(opt.Byminute) > 0 || len(opt.Bysecond) > 0 {
		return coverage{}, nil, errs.UnresolvableRecurrence("unsupported RRULE constructs present")
	}

	var days *primitives.Weekday
	if opt.Freq == rrule.WEEKLY && len(opt.Byweekday) > 0 {
		codes := make([]primitives.WeekdayCode, 0, len(opt.Byweekday))
		for _, wd := range opt.Byweekday {
			code, ok := rruleWeekdayCode(wd)
			if !ok {
				return coverage{}, nil, errs.UnresolvableRecurrence("unsupported BYDAY value")
			}
			codes = append(codes, code)
		}
		w, err := primitives.NewWeekly(codes...)
		if err != nil {
			return coverage{}, nil, errs.UnresolvableRecurrence(err.Error())
		}
		days = w
	}

	end, err := coverageEnd(dtstart, dtend, allDay, opt)
	if err != nil {
		return coverage{}, nil, err
	}

	exdates, err := parseExdateLines(exdateLines, dtstart.Location())
	if err != nil {
		return coverage{}, nil, err
	}

	return coverage{Range: primitives.DateInterval{Start: localDate(dtstart), End: localDate(end)}, Days: days}, exdates, nil
}

// coverageEnd implements spec.md §4.3 step 1's UNTIL semantics: for timed
// events UNTIL is exclusive and the derived end date is the local date
// immediately preceding UNTIL; for DATE-valued all-day events UNTIL is
// inclusive (so the derived exclusive end is the day after).
func coverageEnd(dtstart, dtend time.Time, allDay bool, opt *rrule.ROption) (time.Time, error) {
	if !opt.Until.IsZero() {
		if allDay {
			// UNTIL on an all-day recurrence is a floating DATE value: take
			// its year/month/day as-is rather than reinterpreting through a
			// timezone conversion that could shift it onto the wrong date.
			return floatingDate(opt.Until, dtstart.Location()).AddDate(0, 0, 1), nil
		}
		return localDate(opt.Until.In(dtstart.Location())), nil
	}
	if opt.Count > 0 {
		r, err := rrule.NewRRule(*opt)
		if err != nil {
			return time.Time{}, errs.UnresolvableRecurrence("unable to build RRULE: " + err.Error())
		}
		all := r.All()
		if len(all) == 0 {
			return time.Time{}, errs.UnresolvableRecurrence("COUNT recurrence produced no occurrences")
		}
		last := all[len(all)-1]
		span := dtend.Sub(dtstart)
		if allDay {
			return floatingDate(last, dtstart.Location()).AddDate(0, 0, 1), nil
		}
		return localDate(last.In(dtstart.Location()).Add(span)), nil
	}
	// Open-ended recurrence: represent as a far-future bound so downstream
	// phases have a concrete (very large) half-open interval to reason about.
	return localDate(dtstart).AddDate(20, 0, 0), nil
}

func localDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// floatingDate reinterprets t's calendar date (ignoring its own location) as
// a local midnight in loc, for DATE-valued (not DATE-TIME) iCal fields.
func floatingDate(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func splitRecurrenceLines(recurrence []string) (rruleLine string, exdateLines []string) {
	for _, line := range recurrence {
		switch {
		case strings.HasPrefix(line, "RRULE"):
			rruleLine = strings.TrimPrefix(line, "RRULE:")
		case strings.HasPrefix(line, "EXDATE"):
			exdateLines = append(exdateLines, line)
		}
	}
	return
}

func parseExdateLines(lines []string, loc *time.Location) ([]time.Time, error) {
	var out []time.Time
	for _, line := range lines {
		colon := strings.LastIndex(line, ":")
		if colon < 0 {
			continue
		}
		hadZ := strings.Contains(line, "Z")
		values := strings.Split(line[colon+1:], ",")
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			t, err := parseICalDateTime(v)
			if err != nil {
				return nil, errs.UnresolvableRecurrence("malformed EXDATE value: " + v)
			}
			if hadZ {
				// A real UTC instant: find which local calendar date it falls on.
				out = append(out, localDate(t.In(loc)))
			} else {
				// A floating DATE or DATE-TIME value: its year/month/day is
				// authoritative regardless of location.
				out = append(out, floatingDate(t, loc))
			}
		}
	}
	return out, nil
}

func parseICalDateTime(v string) (time.Time, error) {
	v = strings.TrimSuffix(v, "Z")
	if len(v) == 8 {
		return time.Parse("20060102", v)
	}
	if idx := strings.Index(v, "T"); idx > 0 {
		return time.Parse("20060102T150405", v)
	}
	return time.Parse("2006-01-02", v)
}

func rruleWeekdayCode(wd rrule.Weekday) (primitives.WeekdayCode, bool) {
	switch wd {
	case rrule.MO:
		return primitives.MO, true
	case rrule.TU:
		return primitives.TU, true
	case rrule.WE:
		return primitives.WE, true
	case rrule.TH:
		return primitives.TH, true
	case rrule.FR:
		return primitives.FR, true
	case rrule.SA:
		return primitives.SA, true
	case rrule.SU:
		return primitives.SU, true
	default:
		return "", false
	}
}
