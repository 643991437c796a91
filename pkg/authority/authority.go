// Package authority implements Authority & Direction (spec.md §4.7, C7):
// per identity, it decides which side's state is temporally authoritative
// and derives the sync direction that follows from that decision.
package authority

// Side names one of the two systems being reconciled.
type Side string

const (
	SideCalendar      Side = "calendar"
	SideFPP           Side = "fpp"
	SidePlannerDefault Side = "planner-default"
)

// Direction is the resulting sync direction for an identity.
type Direction string

const (
	DirCalendarToFPP Direction = "calendar->fpp"
	DirFPPToCalendar Direction = "fpp->calendar"
)

// Presence records which sides currently carry this identity.
type Presence struct {
	ExistsInCalendar bool
	ExistsInFPP      bool
	ExistsInCurrent  bool
}

// Timestamps carries each side's last-known update epoch; zero means "no
// timestamp available" for that side.
type Timestamps struct {
	CalendarEpoch int64
	FPPEpoch      int64
}

// Decision is the per-identity authority/direction/conflict outcome.
type Decision struct {
	Authoritative Side
	Direction     Direction
	Conflict      bool
}

// Decide implements spec.md §4.7 steps 3-5. diverged reports whether both
// desired-calendar and desired-fpp disagree with current (a precondition
// for a conflict verdict); callers compute it from the normalized manifests
// since it depends on state content, not just presence/timestamps.
func Decide(ts Timestamps, diverged bool) Decision {
	hasCal := ts.CalendarEpoch != 0
	hasFPP := ts.FPPEpoch != 0

	var authoritative Side
	switch {
	case hasCal && !hasFPP:
		authoritative = SideCalendar
	case hasFPP && !hasCal:
		authoritative = SideFPP
	case hasCal && hasFPP && ts.CalendarEpoch != ts.FPPEpoch:
		if ts.CalendarEpoch > ts.FPPEpoch {
			authoritative = SideCalendar
		} else {
			authoritative = SideFPP
		}
	default:
		// Equal or both missing: planner-default, preserving deterministic
		// idempotence by always favoring the calendar side on a true tie.
		authoritative = SidePlannerDefault
	}

	direction := DirCalendarToFPP
	if authoritative == SideFPP {
		direction = DirFPPToCalendar
	}

	conflict := diverged && authoritative == SidePlannerDefault
	return Decision{Authoritative: authoritative, Direction: direction, Conflict: conflict}
}
