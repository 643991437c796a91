package primitives

import "time"

// HolidayResolver maps a local calendar date to a symbolic HolidayToken, if
// the date matches a known named holiday. It is deterministic and pure: the
// same date always resolves to the same token (or none).
type HolidayResolver struct {
	strict bool
}

// NewHolidayResolver returns a resolver. In strict mode, ResolveToken on an
// unrecognized explicit token name returns InvalidHoliday; in non-strict
// mode unknown tokens simply fail to resolve.
func NewHolidayResolver(strict bool) *HolidayResolver {
	return &HolidayResolver{strict: strict}
}

// Resolve returns the HolidayToken (if any) that localDate falls on.
func (r *HolidayResolver) Resolve(localDate time.Time) (HolidayToken, bool) {
	y := localDate.Year()
	m := localDate.Month()
	d := localDate.Day()

	switch {
	case m == time.January && d == 1:
		return "NewYearsDay", true
	case m == time.July && d == 4:
		return "IndependenceDay", true
	case m == time.December && d == 25:
		return "Christmas", true
	case m == time.December && d == 31:
		return "NewYearsEve", true
	case m == time.October && d == 31:
		return "Halloween", true
	case m == time.November && d == 11:
		return "VeteransDay", true
	}

	if isNthWeekdayOfMonth(localDate, time.November, time.Thursday, 4) {
		return "Thanksgiving", true
	}
	if isNthWeekdayOfMonth(localDate, time.May, time.Monday, -1) {
		return "MemorialDay", true
	}
	if isNthWeekdayOfMonth(localDate, time.September, time.Monday, 1) {
		return "LaborDay", true
	}
	_ = y
	return "", false
}

// ResolveToken validates a symbolic token name, failing with InvalidHoliday
// in strict mode for unrecognized tokens (spec.md §4.1).
func (r *HolidayResolver) ResolveToken(token HolidayToken) error {
	known := map[HolidayToken]bool{
		"NewYearsDay": true, "IndependenceDay": true, "Christmas": true,
		"NewYearsEve": true, "Halloween": true, "VeteransDay": true,
		"Thanksgiving": true, "MemorialDay": true, "LaborDay": true,
	}
	if known[token] {
		return nil
	}
	if r.strict {
		return &InvalidHolidayError{Token: token}
	}
	return nil
}

// InvalidHolidayError is returned by ResolveToken in strict mode for a
// symbolic token that is not in the known table.
type InvalidHolidayError struct {
	Token HolidayToken
}

func (e *InvalidHolidayError) Error() string {
	return "invalid holiday token: " + string(e.Token)
}

// isNthWeekdayOfMonth reports whether t is the nth occurrence (1-indexed) of
// weekday in its month; n == -1 means "last occurrence".
func isNthWeekdayOfMonth(t time.Time, month time.Month, weekday time.Weekday, n int) bool {
	if t.Month() != month || t.Weekday() != weekday {
		return false
	}
	if n > 0 {
		return (t.Day()-1)/7 == n-1
	}
	// last occurrence: no date 7 days later is in the same month
	next := t.AddDate(0, 0, 7)
	return next.Month() != month
}
