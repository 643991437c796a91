package primitives

import "time"

// DateInterval is a half-open [Start, End) range of whole local dates.
// Boundary touch is non-overlap throughout this module (spec.md GLOSSARY).
type DateInterval struct {
	Start time.Time // local midnight, inclusive
	End   time.Time // local midnight, exclusive
}

// Overlaps reports whether two half-open date intervals intersect.
func (a DateInterval) Overlaps(b DateInterval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Contains reports whether t (a whole date) falls in [Start, End).
func (a DateInterval) Contains(t time.Time) bool {
	return !t.Before(a.Start) && t.Before(a.End)
}

// Days returns the number of whole days spanned.
func (a DateInterval) Days() int {
	return int(a.End.Sub(a.Start).Hours() / 24)
}

// DailySegment is a half-open [StartSeconds, EndSeconds) window within a
// single day, in seconds since local midnight. Overnight windows that wrap
// past midnight are represented as two DailySegments by Split.
type DailySegment struct {
	StartSeconds int
	EndSeconds   int
}

// Split breaks an overnight window (end <= start, or end > 24*3600) into one
// or two same-day segments, per spec.md §4.5 "wrap-around overnight windows
// split into two daily segments".
func Split(startSeconds, endSeconds int) []DailySegment {
	const day = 24 * 3600
	if endSeconds > startSeconds && endSeconds <= day {
		return []DailySegment{{startSeconds, endSeconds}}
	}
	// Wrap: [start, day) and [0, end mod day)
	wrapped := endSeconds % day
	if wrapped < 0 {
		wrapped += day
	}
	segs := []DailySegment{{startSeconds, day}}
	if wrapped > 0 {
		segs = append(segs, DailySegment{0, wrapped})
	}
	return segs
}

// Overlaps reports whether two daily segments intersect (half-open).
func (s DailySegment) Overlaps(o DailySegment) bool {
	return s.StartSeconds < o.EndSeconds && o.StartSeconds < s.EndSeconds
}

// SecondsSinceMidnight parses "HH:MM:SS" (including the verbatim 24:00:00 /
// beyond idiom from the scheduler file) into seconds since local midnight.
func SecondsSinceMidnight(hhmmss string) (int, error) {
	var h, m, s int
	if _, err := parseClock(hhmmss, &h, &m, &s); err != nil {
		return 0, err
	}
	return h*3600 + m*60 + s, nil
}

func parseClock(hhmmss string, h, m, s *int) (bool, error) {
	if !ValidHardTime(hhmmss) {
		return false, errInvalidClock(hhmmss)
	}
	*h = int(hhmmss[0]-'0')*10 + int(hhmmss[1]-'0')
	*m = int(hhmmss[3]-'0')*10 + int(hhmmss[4]-'0')
	*s = int(hhmmss[6]-'0')*10 + int(hhmmss[7]-'0')
	return true, nil
}

type clockError string

func (e clockError) Error() string { return "invalid clock value: " + string(e) }

func errInvalidClock(s string) error { return clockError(s) }
