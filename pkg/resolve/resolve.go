// Package resolve implements the Resolution Engine (spec.md §4.3, C3): it
// expands a RawCalendarEvent's RRULE/EXDATE/override structure into
// contiguous, minimal Bundles of base + override sub-events, preserving the
// reversibility metadata Apply->Calendar needs to reconstruct a single
// parent recurring event.
package resolve

import (
	"fmt"
	"sort"
	"time"

	"github.com/robbiet76/CalendarScheduler/pkg/errs"
	"github.com/robbiet76/CalendarScheduler/pkg/model"
	"github.com/robbiet76/CalendarScheduler/pkg/primitives"
	"github.com/robbiet76/CalendarScheduler/pkg/settings"
)

// Resolve expands master (plus its override instances, if any) into bundles.
// tz is the FPP local timezone; hard times are always expressed in it.
func Resolve(master model.RawCalendarEvent, overrides []model.RawCalendarEvent, tz *time.Location) ([]model.Bundle, error) {
	dtstart, allDay, err := parseCalendarMoment(master.DTStart, tz)
	if err != nil {
		return nil, errs.Wrap(errs.KindResolution, "invalid_dtstart", "cannot parse DTSTART", err)
	}
	dtend, _, err := parseCalendarMoment(master.DTEnd, tz)
	if err != nil {
		return nil, errs.Wrap(errs.KindResolution, "invalid_dtend", "cannot parse DTEND", err)
	}

	cov, exdates, err := deriveCoverage(dtstart, dtend, allDay, master.Recurrence)
	if err != nil {
		return nil, err
	}

	segments := subtractExdates(cov.Range, exdates)
	if len(segments) == 0 {
		return nil, errs.PartiallyResolved("every occurrence of this recurrence was excluded by EXDATE")
	}

	masterSettings, _, err := settings.Parse(master.Description)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, "invalid_settings", "cannot parse [settings] block", err)
	}

	dailyStart := dtstart.Hour()*3600 + dtstart.Minute()*60 + dtstart.Second()
	dailyEnd := dailyStart + int(dtend.Sub(dtstart).Seconds())
	if allDay {
		dailyStart, dailyEnd = 0, 0
	}

	overrideMoments, err := parseOverrides(overrides, tz)
	if err != nil {
		return nil, err
	}

	bundles := make([]model.Bundle, 0, len(segments))
	for i, seg := range segments {
		bundleID := fmt.Sprintf("%s#%d", master.UID, i)

		base := buildSubEvent(masterSettings, master.Summary, seg, cov.Days, allDay, dailyStart, dailyEnd, tz, model.RoleBase, bundleID)
		base.Reversibility = model.Reversibility{SourceEventUID: master.UID, ParentUID: master.UID, BundleID: bundleID}

		ovs, err := buildOverridesForSegment(overrideMoments, seg, master.UID, bundleID, tz)
		if err != nil {
			return nil, err
		}

		bundles = append(bundles, model.Bundle{
			ID:        bundleID,
			ParentUID: master.UID,
			SourceUID: master.UID,
			DateRange: seg,
			Base:      base,
			Overrides: ovs,
		})
	}

	return bundles, nil
}

type overrideMoment struct {
	raw        model.RawCalendarEvent
	origDate   time.Time
	start, end time.Time
	allDay     bool
	settings   settings.Settings
}

func parseOverrides(overrides []model.RawCalendarEvent, tz *time.Location) ([]overrideMoment, error) {
	out := make([]overrideMoment, 0, len(overrides))
	for _, o := range overrides {
		if o.Cancelled {
			// Cancellations are carved out of coverage via EXDATE, never
			// represented as disabled overrides (spec.md §4.3 step 2).
			continue
		}
		orig, _, err := parseCalendarMoment(o.OriginalStartTime, tz)
		if err != nil {
			return nil, errs.Wrap(errs.KindResolution, "invalid_original_start", "cannot parse original start time", err)
		}
		start, allDay, err := parseCalendarMoment(o.DTStart, tz)
		if err != nil {
			return nil, errs.Wrap(errs.KindResolution, "invalid_override_dtstart", "cannot parse override DTSTART", err)
		}
		end, _, err := parseCalendarMoment(o.DTEnd, tz)
		if err != nil {
			return nil, errs.Wrap(errs.KindResolution, "invalid_override_dtend", "cannot parse override DTEND", err)
		}
		s, _, err := settings.Parse(o.Description)
		if err != nil {
			return nil, errs.Wrap(errs.KindValidation, "invalid_settings", "cannot parse override [settings] block", err)
		}
		out = append(out, overrideMoment{raw: o, origDate: localDate(orig), start: start, end: end, allDay: allDay, settings: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].origDate.Before(out[j].origDate) })
	return out, nil
}

// subtractExdates carves coverage into contiguous half-open segments at
// each EXDATE boundary (spec.md §4.3 step 2).
func subtractExdates(cov primitives.DateInterval, exdates []time.Time) []primitives.DateInterval {
	sort.Slice(exdates, func(i, j int) bool { return exdates[i].Before(exdates[j]) })

	var segments []primitives.DateInterval
	cur := cov.Start
	for _, ex := range exdates {
		if !cov.Contains(ex) {
			continue
		}
		if ex.After(cur) {
			segments = append(segments, primitives.DateInterval{Start: cur, End: ex})
		}
		cur = ex.AddDate(0, 0, 1)
	}
	if cur.Before(cov.End) {
		segments = append(segments, primitives.DateInterval{Start: cur, End: cov.End})
	}
	return segments
}

// buildOverridesForSegment filters overrides to this segment's date range,
// then merges contiguous adjacent overrides with identical settings into a
// single override sub-event spanning the merged date range (spec.md §4.3
// step 3). Overrides never cross segment boundaries because filtering
// happens per already-split segment.
func buildOverridesForSegment(moments []overrideMoment, seg primitives.DateInterval, parentUID, bundleID string, tz *time.Location) ([]model.SubEvent, error) {
	var inSeg []overrideMoment
	for _, m := range moments {
		if seg.Contains(m.origDate) {
			inSeg = append(inSeg, m)
		}
	}
	if len(inSeg) == 0 {
		return nil, nil
	}

	var merged []model.SubEvent
	i := 0
	for i < len(inSeg) {
		j := i + 1
		for j < len(inSeg) && overridesMergeable(inSeg[j-1], inSeg[j]) {
			j++
		}
		group := inSeg[i:j]
		rangeStart := group[0].origDate
		rangeEnd := group[len(group)-1].origDate.AddDate(0, 0, 1)

		first := group[0]
		dailyStart := first.start.Hour()*3600 + first.start.Minute()*60 + first.start.Second()
		dailyEnd := dailyStart + int(first.end.Sub(first.start).Seconds())
		if first.allDay {
			dailyStart, dailyEnd = 0, 0
		}

		se := buildSubEvent(first.settings, first.raw.Summary, primitives.DateInterval{Start: rangeStart, End: rangeEnd},
			nil, first.allDay, dailyStart, dailyEnd, tz, model.RoleOverride, bundleID)
		se.Reversibility = model.Reversibility{SourceEventUID: first.raw.UID, ParentUID: parentUID, BundleID: bundleID}
		merged = append(merged, se)
		i = j
	}
	return merged, nil
}

// overridesMergeable reports whether two adjacent-date overrides carry
// identical settings and thus collapse into one contiguous override range.
func overridesMergeable(a, b overrideMoment) bool {
	if !b.origDate.Equal(a.origDate.AddDate(0, 0, 1)) {
		return false
	}
	if a.allDay != b.allDay {
		return false
	}
	aStart := a.start.Hour()*3600 + a.start.Minute()*60 + a.start.Second()
	bStart := b.start.Hour()*3600 + b.start.Minute()*60 + b.start.Second()
	aDur := a.end.Sub(a.start)
	bDur := b.end.Sub(b.start)
	return aStart == bStart && aDur == bDur && settingsEqual(a.settings, b.settings)
}

// settingsEqual compares the fields that affect the resulting sub-event;
// Settings carries map fields so it is not comparable with ==.
func settingsEqual(a, b settings.Settings) bool {
	if a.Type != b.Type || a.Enabled != b.Enabled || a.StopType != b.StopType ||
		a.Repeat != b.Repeat || a.Start != b.Start || a.End != b.End ||
		a.StartOffset != b.StartOffset || a.EndOffset != b.EndOffset {
		return false
	}
	return stringMapEqual(a.CommandArgs, b.CommandArgs) && stringMapEqual(a.Extra, b.Extra)
}

func stringMapEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func buildSubEvent(s settings.Settings, summary string, dateRange primitives.DateInterval, days *primitives.Weekday,
	allDay bool, dailyStartSec, dailyEndSec int, tz *time.Location, role model.SubEventRole, bundleID string) model.SubEvent {

	timing := model.Timing{
		AllDay:    allDay,
		StartDate: primitives.HardDate(dateRange.Start),
		EndDate:   primitives.HardDate(dateRange.End),
		Days:      days,
		Timezone:  tz.String(),
	}
	if !allDay {
		st := symbolicOrHardTime(s.Start, s.StartOffset, dailyStartSec)
		et := symbolicOrHardTime(s.End, s.EndOffset, dailyEndSec)
		timing.StartTime = &st
		timing.EndTime = &et
	}

	return model.SubEvent{
		Type:   model.SubEventType(s.Type),
		Target: summary,
		Timing: timing,
		Behavior: model.Behavior{
			Enabled:  s.Enabled,
			Repeat:   s.Repeat,
			StopType: s.StopType,
		},
		Payload:  s.CommandArgs,
		Role:     role,
		BundleID: bundleID,
	}
}

func symbolicOrHardTime(token string, offsetMin, fallbackSeconds int) primitives.TimeValue {
	switch primitives.SymbolicToken(token) {
	case primitives.Dawn, primitives.SunRise, primitives.SunSet, primitives.Dusk:
		return primitives.SymbolicTime(primitives.SymbolicToken(token), offsetMin)
	default:
		h := fallbackSeconds / 3600
		m := (fallbackSeconds % 3600) / 60
		sec := fallbackSeconds % 60
		return primitives.HardTime(fmt.Sprintf("%02d:%02d:%02d", h, m, sec))
	}
}

// parseCalendarMoment parses an RFC3339 instant or a bare "YYYY-MM-DD"
// all-day date, returning whether it was an all-day value.
func parseCalendarMoment(s string, tz *time.Location) (time.Time, bool, error) {
	if len(s) == 10 {
		t, err := time.ParseInLocation("2006-01-02", s, tz)
		return t, true, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.In(tz), false, nil
}
