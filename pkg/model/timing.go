// Package model holds the shared, provider-agnostic data shapes that flow
// through every phase of the reconciliation pipeline (spec.md §3).
package model

import (
	"fmt"

	"github.com/robbiet76/CalendarScheduler/pkg/primitives"
)

// Timing is the full scheduling shape of a sub-event.
type Timing struct {
	AllDay    bool                 `json:"all_day"`
	StartDate primitives.DateValue `json:"start_date"`
	EndDate   primitives.DateValue `json:"end_date"`
	StartTime *primitives.TimeValue `json:"start_time,omitempty"`
	EndTime   *primitives.TimeValue `json:"end_time,omitempty"`
	Days      *primitives.Weekday  `json:"days,omitempty"`
	Timezone  string               `json:"timezone"`
}

// Validate enforces spec.md §3's Timing invariants.
func (t Timing) Validate() error {
	if t.Timezone == "" {
		return fmt.Errorf("timezone is required")
	}
	if !t.StartDate.Valid() {
		return fmt.Errorf("invalid start_date")
	}
	if !t.EndDate.Valid() {
		return fmt.Errorf("invalid end_date")
	}
	if t.AllDay {
		if t.StartTime != nil || t.EndTime != nil {
			return fmt.Errorf("all_day event must not carry start/end time")
		}
		return nil
	}
	if t.StartTime == nil || t.EndTime == nil {
		return fmt.Errorf("non-all-day event requires start_time and end_time")
	}
	if !t.StartTime.Valid() {
		return fmt.Errorf("invalid start_time")
	}
	if !t.EndTime.Valid() {
		return fmt.Errorf("invalid end_time")
	}
	return nil
}

// IdentityTiming is the subset of Timing that participates in Identity:
// (days, start_time, end_time, all_day) — dates are excluded (spec.md §3).
type IdentityTiming struct {
	Days      *primitives.Weekday
	StartTime *primitives.TimeValue
	EndTime   *primitives.TimeValue
	AllDay    bool
}

// Of extracts the identity-relevant subset of a Timing.
func (t Timing) Of() IdentityTiming {
	return IdentityTiming{Days: t.Days, StartTime: t.StartTime, EndTime: t.EndTime, AllDay: t.AllDay}
}

// Equal compares two IdentityTiming values field by field.
func (a IdentityTiming) Equal(b IdentityTiming) bool {
	if a.AllDay != b.AllDay {
		return false
	}
	if !a.Days.Equal(b.Days) {
		return false
	}
	if !timeValueEqual(a.StartTime, b.StartTime) {
		return false
	}
	return timeValueEqual(a.EndTime, b.EndTime)
}

func timeValueEqual(a, b *primitives.TimeValue) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.IsSymbolic() != b.IsSymbolic() {
		return false
	}
	if a.IsSymbolic() {
		return *a.Symbolic == *b.Symbolic && a.Offset == b.Offset
	}
	return *a.Hard == *b.Hard
}
