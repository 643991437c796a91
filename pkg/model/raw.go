package model

// RawCalendarEvent is the canonical, provider-agnostic shape emitted by the
// calendar raw ingest adapter (spec.md §4.2). No semantic interpretation of
// the description's opaque [settings] block happens at this layer.
type RawCalendarEvent struct {
	Source              string
	UID                 string
	ParentUID           string // set for override instances (recurringEventId)
	Summary             string
	Description         string // opaque; contains "[settings]\n..." verbatim
	DTStart             string // RFC3339 or "YYYY-MM-DD" (all-day)
	DTEnd               string
	Recurrence          []string // raw RRULE/EXDATE/RDATE lines; empty for a single instance or an override
	UpdatedAtEpoch      int64
	ExtendedProperties  map[string]string
	OriginalStartTime   string // only set for override instances
	Cancelled           bool   // filtered by the adapter; never reaches the resolver
}

// The FPP scheduler file's row shape is modeled directly by fppfile.Row
// (pkg/fppfile) rather than duplicated here: unlike the calendar side, the
// FPP raw ingest adapter (pkg/ingest) reads rows straight into
// ManifestEvents with no intermediate canonical-raw stage (spec.md §2's
// data flow).
