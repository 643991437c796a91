// Package normalize implements the Intent Normalizer (spec.md §4.4, C4): it
// takes a resolved Bundle and produces a ManifestEvent with a stable
// identity hash and state hash, enforcing the shape invariants every later
// phase relies on.
package normalize

import (
	"fmt"
	"sort"

	"github.com/robbiet76/CalendarScheduler/pkg/errs"
	"github.com/robbiet76/CalendarScheduler/pkg/model"
)

// Options carries the context the normalizer needs beyond the bundle itself.
type Options struct {
	Source         string // "calendar" | "fpp"
	Provider       string
	ExternalID     string
	CalendarID     string
	ImportedAtEpoch int64
}

// Normalize converts one resolved Bundle into a ManifestEvent.
func Normalize(b model.Bundle, opts Options) (model.ManifestEvent, error) {
	if err := validateBundle(b); err != nil {
		return model.ManifestEvent{}, err
	}

	subEvents := append(append([]model.SubEvent{}, b.Overrides...), b.Base)
	for i := range subEvents {
		clampType(&subEvents[i])
	}

	me, err := BuildFromSubEvents(subEvents, b.Base.Target, b.Base.Behavior.Enabled, opts)
	if err != nil {
		return model.ManifestEvent{}, err
	}
	me.Ownership = model.Ownership{Managed: true, Controller: opts.Source}
	return me, nil
}

// BuildFromSubEvents assembles a ManifestEvent's identity and state hashes
// from an already-shaped set of sub-events, independent of how those
// sub-events were produced. Normalize uses it for a resolved Bundle's
// base+override set; the FPP raw ingest adapter (pkg/ingest, spec.md §4.2)
// uses it directly on a single row-derived sub-event, re-deriving identity
// from geometry rather than going through Resolution/Normalization.
func BuildFromSubEvents(subEvents []model.SubEvent, target string, enabled bool, opts Options) (model.ManifestEvent, error) {
	for i := range subEvents {
		if err := subEvents[i].Timing.Validate(); err != nil {
			return model.ManifestEvent{}, errs.InvariantViolation(fmt.Sprintf("sub-event %d: %v", i, err))
		}
		h, err := contentHash(subEventStateShape(subEvents[i]))
		if err != nil {
			return model.ManifestEvent{}, errs.Wrap(errs.KindInvariant, "hash_failure", "cannot hash sub-event", err)
		}
		subEvents[i].StateHash = h
	}

	identityTiming := selectIdentityTiming(subEvents)
	baseType := subEvents[len(subEvents)-1].Type

	identity := model.Identity{Type: baseType, Target: target, Timing: identityTiming}
	identityHash, err := contentHash(identity)
	if err != nil {
		return model.ManifestEvent{}, errs.Wrap(errs.KindInvariant, "hash_failure", "cannot hash identity", err)
	}

	me := model.ManifestEvent{
		ID:        identityHash,
		Identity:  identity,
		SubEvents: subEvents,
		Correlation: model.Correlation{
			Source:           opts.Source,
			ExternalID:       opts.ExternalID,
			SourceCalendarID: opts.CalendarID,
		},
		Status:       model.Status{Enabled: enabled},
		Provenance:   model.Provenance{Source: opts.Source, Provider: opts.Provider, ImportedAt: opts.ImportedAtEpoch},
		IdentityHash: identityHash,
	}

	stateHash, err := contentHash(stateShape(me))
	if err != nil {
		return model.ManifestEvent{}, errs.Wrap(errs.KindInvariant, "hash_failure", "cannot hash state", err)
	}
	me.StateHash = stateHash

	return me, nil
}

func validateBundle(b model.Bundle) error {
	if b.Base.Role != model.RoleBase {
		return errs.InvariantViolation("bundle has no base sub-event")
	}
	for _, o := range b.Overrides {
		if o.Role != model.RoleOverride {
			return errs.InvariantViolation("bundle override has wrong role")
		}
	}
	if b.Base.Timing.AllDay {
		if b.Base.Timing.StartTime != nil || b.Base.Timing.EndTime != nil {
			return errs.InvariantViolation("all_day base carries start/end time")
		}
	}
	return nil
}

func clampType(se *model.SubEvent) {
	switch se.Type {
	case model.TypePlaylist, model.TypeCommand, model.TypeSequence:
	default:
		se.Type = model.TypePlaylist
	}
}

// subEventStateShape is the subset of a SubEvent that feeds its own
// stateHash: timing, behavior, payload, role, execution order and bundle
// membership. Reversibility's sourceEventUid/parentUid are bookkeeping for
// Apply->Calendar, not scheduled behavior, so they are excluded.
type subEventStateShapeT struct {
	Type           model.SubEventType `json:"type"`
	Timing         model.Timing       `json:"timing"`
	Behavior       model.Behavior     `json:"behavior"`
	Payload        map[string]string  `json:"payload,omitempty"`
	Role           model.SubEventRole `json:"role"`
	BundleID       string             `json:"bundleId"`
	ExecutionOrder int                `json:"executionOrder"`
}

func subEventStateShape(se model.SubEvent) subEventStateShapeT {
	return subEventStateShapeT{
		Type: se.Type, Timing: se.Timing, Behavior: se.Behavior, Payload: se.Payload,
		Role: se.Role, BundleID: se.BundleID, ExecutionOrder: se.ExecutionOrder,
	}
}

// stateShape is the whole-event contribution to its own stateHash:
// everything except UpdatedAtEpoch (Invariant 8) and the hashes themselves,
// and except provenance/correlation bookkeeping which records *where* the
// event came from rather than *what it does*.
type stateShapeT struct {
	Type      model.SubEventType `json:"type"`
	Target    string             `json:"target"`
	SubHashes []string           `json:"subHashes"`
	Enabled   bool               `json:"enabled"`
}

func stateShape(me model.ManifestEvent) stateShapeT {
	hashes := make([]string, 0, len(me.SubEvents))
	for _, se := range me.SubEvents {
		hashes = append(hashes, se.StateHash)
	}
	sort.Strings(hashes)
	return stateShapeT{Type: me.Identity.Type, Target: me.Identity.Target, SubHashes: hashes, Enabled: me.Status.Enabled}
}

// selectIdentityTiming implements spec.md §4.4's deterministic selection
// rule: the sub-event minimizing the lex key (symbolic-date, hard-date,
// symbolic-time, hard-time, offset, all_day), ties broken by stateHash.
func selectIdentityTiming(subEvents []model.SubEvent) model.IdentityTiming {
	best := -1
	var bestKey selectionKey
	for i, se := range subEvents {
		k := keyFor(se)
		if best == -1 || k.less(bestKey) {
			best = i
			bestKey = k
		}
	}
	return subEvents[best].Timing.Of()
}

type selectionKey struct {
	symbolicDate string
	hardDate     string
	symbolicTime string
	hardTime     string
	offset       int
	allDay       int
	stateHash    string
}

func (a selectionKey) less(b selectionKey) bool {
	if a.symbolicDate != b.symbolicDate {
		return a.symbolicDate < b.symbolicDate
	}
	if a.hardDate != b.hardDate {
		return a.hardDate < b.hardDate
	}
	if a.symbolicTime != b.symbolicTime {
		return a.symbolicTime < b.symbolicTime
	}
	if a.hardTime != b.hardTime {
		return a.hardTime < b.hardTime
	}
	if a.offset != b.offset {
		return a.offset < b.offset
	}
	if a.allDay != b.allDay {
		return a.allDay < b.allDay
	}
	return a.stateHash < b.stateHash
}

const (
	absentKey = "~"
	maxDate   = "9999-99-99"
	maxTime   = "99:99:99"
)

func keyFor(se model.SubEvent) selectionKey {
	k := selectionKey{
		symbolicDate: absentKey,
		hardDate:     maxDate,
		symbolicTime: absentKey,
		hardTime:     maxTime,
		stateHash:    se.StateHash,
	}
	if se.Timing.StartDate.Symbolic != nil {
		k.symbolicDate = string(*se.Timing.StartDate.Symbolic)
	}
	if se.Timing.StartDate.Hard != nil {
		k.hardDate = string(*se.Timing.StartDate.Hard)
	}
	if se.Timing.AllDay {
		k.allDay = 1
		return k
	}
	if se.Timing.StartTime != nil {
		if se.Timing.StartTime.Symbolic != nil {
			k.symbolicTime = string(*se.Timing.StartTime.Symbolic)
			k.offset = se.Timing.StartTime.Offset
		}
		if se.Timing.StartTime.Hard != nil {
			k.hardTime = *se.Timing.StartTime.Hard
		}
	}
	return k
}
