package model

import "github.com/robbiet76/CalendarScheduler/pkg/primitives"

// Bundle is an atomic ordered group {base, overrides...} corresponding to
// one contiguous execution segment of a resolved recurring event
// (spec.md GLOSSARY).
type Bundle struct {
	ID         string
	ParentUID  string
	SourceUID  string
	DateRange  primitives.DateInterval
	Base       SubEvent
	Overrides  []SubEvent // ordered, role=override
}

// AllSubEvents returns base + overrides in bundle-internal order (overrides
// first when they dominate, per spec.md §4.3 ordering policy — the caller,
// typically the ordering engine, is responsible for the final cross-bundle
// interleave).
func (b Bundle) AllSubEvents() []SubEvent {
	out := make([]SubEvent, 0, 1+len(b.Overrides))
	out = append(out, b.Overrides...)
	out = append(out, b.Base)
	return out
}
