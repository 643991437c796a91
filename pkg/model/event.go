package model

import "sort"

// SubEventType clamps to the three supported scheduler action kinds.
type SubEventType string

const (
	TypePlaylist SubEventType = "playlist"
	TypeCommand  SubEventType = "command"
	TypeSequence SubEventType = "sequence"
)

// SubEventRole discriminates the base occurrence from per-occurrence overrides.
type SubEventRole string

const (
	RoleBase     SubEventRole = "base"
	RoleOverride SubEventRole = "override"
)

// Behavior captures the scheduler action settings that are not timing.
type Behavior struct {
	Enabled  bool   `json:"enabled"`
	Repeat   int    `json:"repeat"`
	StopType int    `json:"stopType"`
}

// Reversibility carries the metadata needed to reconstruct a single parent
// recurring calendar event with EXDATEs and per-instance overrides on
// Apply->Calendar, rather than exploding into per-occurrence events
// (spec.md §4.3).
type Reversibility struct {
	SourceEventUID string `json:"sourceEventUid,omitempty"`
	ParentUID      string `json:"parentUid,omitempty"`
	BundleID       string `json:"bundleId"`
}

// SubEvent is one executable scheduler action within a bundle.
type SubEvent struct {
	Type           SubEventType      `json:"type"`
	Target         string            `json:"target"`
	Timing         Timing            `json:"timing"`
	Behavior       Behavior          `json:"behavior"`
	Payload        map[string]string `json:"payload,omitempty"`
	Role           SubEventRole      `json:"role"`
	BundleID       string            `json:"bundleId"`
	ExecutionOrder int               `json:"executionOrder"`
	Reversibility  Reversibility     `json:"reversibility"`

	// StateHash is this sub-event's own contribution to the owning
	// ManifestEvent's state hash (spec.md Invariant 4).
	StateHash string `json:"stateHash"`
}

// Ownership records whether, and by whom, this event may be mutated.
type Ownership struct {
	Managed    bool   `json:"managed"`
	Controller string `json:"controller"` // "calendar" | "manual" | "unknown"
	Locked     bool   `json:"locked"`
}

// Correlation traces a ManifestEvent back to its originating calendar row.
type Correlation struct {
	Source          string `json:"source"`
	ExternalID      string `json:"externalId,omitempty"`
	SourceCalendarID string `json:"sourceCalendarId,omitempty"`
}

// Status carries the soft lifecycle flags of a ManifestEvent.
type Status struct {
	Enabled bool `json:"enabled"`
	Deleted bool `json:"deleted"`
}

// Provenance records where/how this ManifestEvent was last produced.
type Provenance struct {
	Source     string `json:"source"`
	Provider   string `json:"provider"`
	ImportedAt int64  `json:"importedAt"`
}

// Identity is the stable (type, target, timing_identity) tuple (spec.md
// §3). Segment is not part of that tuple: it stays zero, and is therefore
// omitted from IdentityHash, for the ordinary case of one normalized event
// per (type, target, timing). Resolution can legitimately produce several
// bundles that share an identical (type, target, timing) tuple but cover
// disjoint date ranges -- an EXDATE split with no per-instance override is
// one base sub-event's timing repeated verbatim across every surviving
// segment -- and those segments must still coexist as distinct
// ManifestEvents so each reaches its own scheduler row. normalize.Deduplicate
// assigns such a group's members a stable, deterministic nonzero Segment
// ordinal so their IdentityHash values no longer collide, rather than
// letting a later map write silently discard all but one of them.
type Identity struct {
	Type    SubEventType   `json:"type"`
	Target  string         `json:"target"`
	Timing  IdentityTiming `json:"timing"`
	Segment int            `json:"segment,omitempty"`
}

// ManifestEvent is the normalized, provider-agnostic event shape that the
// whole reconciliation pipeline operates on (spec.md §3).
type ManifestEvent struct {
	ID            string      `json:"id"`
	Identity      Identity    `json:"-"`
	SubEvents     []SubEvent  `json:"subEvents"`
	Ownership     Ownership   `json:"ownership"`
	Correlation   Correlation `json:"correlation"`
	Status        Status      `json:"status"`
	Provenance    Provenance  `json:"provenance"`
	IdentityHash  string      `json:"identityHash"`
	StateHash     string      `json:"stateHash"`

	// UpdatedAtEpoch carries the per-side authority timestamp (§4.7); it
	// never participates in IdentityHash or StateHash (Invariant 8).
	UpdatedAtEpoch int64 `json:"updatedAtEpoch,omitempty"`
}

// BaseSubEvent returns the event's single base sub-event and true, or
// (zero, false) if the invariant "exactly one base" is violated.
func (m ManifestEvent) BaseSubEvent() (SubEvent, bool) {
	var found SubEvent
	count := 0
	for _, se := range m.SubEvents {
		if se.Role == RoleBase {
			found = se
			count++
		}
	}
	return found, count == 1
}

// OverrideSubEvents returns all role=override sub-events.
func (m ManifestEvent) OverrideSubEvents() []SubEvent {
	var out []SubEvent
	for _, se := range m.SubEvents {
		if se.Role == RoleOverride {
			out = append(out, se)
		}
	}
	return out
}

// Manifest is the full, ordered set of tracked ManifestEvents.
type Manifest struct {
	Events      map[string]ManifestEvent `json:"events"`
	Version     int                      `json:"version"`
	GeneratedAt int64                    `json:"generatedAt"`
}

// SortedIdentityHashes returns all event keys in sorted order, for
// deterministic iteration/serialization (spec.md §3: "ordered by
// identityHash for deterministic output").
func (m Manifest) SortedIdentityHashes() []string {
	out := make([]string, 0, len(m.Events))
	for h := range m.Events {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
