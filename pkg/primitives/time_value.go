package primitives

import (
	"fmt"
	"regexp"
)

// SymbolicToken names a sun-relative time of day.
type SymbolicToken string

const (
	Dawn    SymbolicToken = "Dawn"
	SunRise SymbolicToken = "SunRise"
	SunSet  SymbolicToken = "SunSet"
	Dusk    SymbolicToken = "Dusk"
)

var hardTimeRe = regexp.MustCompile(`^([0-9]{2}):([0-9]{2}):([0-9]{2})$`)

// ValidHardTime reports whether s has the "HH:MM:SS" shape of three
// two-digit fields. Field ranges are not checked, so 24:00:00 (a
// scheduler-file idiom, never invented during normalization, only ever
// passed through) and later values are accepted verbatim.
func ValidHardTime(s string) bool {
	m := hardTimeRe.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	return true
}

// TimeValue is the tagged hard/symbolic time-of-day with a signed offset (in
// minutes) applied to symbolic values. Exactly one of Hard/Symbolic is set
// for a non-all-day sub-event; both are nil when AllDay is true.
type TimeValue struct {
	Hard     *string        `json:"hard,omitempty"`
	Symbolic *SymbolicToken `json:"symbolic,omitempty"`
	Offset   int            `json:"offset"`
}

// Valid enforces "exactly one of hard/symbolic MUST be set".
func (t TimeValue) Valid() bool {
	if t.Hard == nil && t.Symbolic == nil {
		return false
	}
	if t.Hard != nil && t.Symbolic != nil {
		return false
	}
	if t.Hard != nil && !ValidHardTime(*t.Hard) {
		return false
	}
	return true
}

// IsSymbolic reports whether this is a symbolic time.
func (t TimeValue) IsSymbolic() bool { return t.Symbolic != nil }

// HardTime constructs a hard TimeValue from "HH:MM:SS".
func HardTime(hhmmss string) TimeValue {
	v := hhmmss
	return TimeValue{Hard: &v}
}

// SymbolicTime constructs a symbolic TimeValue with the given offset minutes.
func SymbolicTime(token SymbolicToken, offsetMinutes int) TimeValue {
	v := token
	return TimeValue{Symbolic: &v, Offset: offsetMinutes}
}

// Canonical renders the time for identity/ordering lexical comparisons:
// hard times sort as themselves, symbolic ones as "~<token>+<offset>" so
// they never collide with an HH:MM:SS string and sort after all hard values
// (since "~" > any digit).
func (t TimeValue) Canonical() string {
	if t.Hard != nil {
		return *t.Hard
	}
	if t.Symbolic != nil {
		return fmt.Sprintf("~%s%+d", *t.Symbolic, t.Offset)
	}
	return "~"
}
