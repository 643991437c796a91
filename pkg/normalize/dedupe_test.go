package normalize

import (
	"testing"

	"github.com/robbiet76/CalendarScheduler/pkg/model"
	"github.com/robbiet76/CalendarScheduler/pkg/primitives"
)

func bundleStartingOn(t *testing.T, date, bundleID string, executionOrder int) model.Bundle {
	t.Helper()
	start := primitives.HardTime("18:00:00")
	end := primitives.HardTime("22:00:00")
	base := model.SubEvent{
		Type:   model.TypePlaylist,
		Target: "Playlist A",
		Timing: model.Timing{
			StartDate: primitives.HardDate(mustDate(t, date)),
			EndDate:   primitives.HardDate(mustDate(t, "2024-02-29")),
			StartTime: &start,
			EndTime:   &end,
			Timezone:  "America/Chicago",
		},
		Behavior:       model.Behavior{Enabled: true},
		Role:           model.RoleBase,
		BundleID:       bundleID,
		ExecutionOrder: executionOrder,
	}
	return model.Bundle{ID: bundleID, ParentUID: "evt-1", SourceUID: "evt-1", Base: base}
}

// TestDeduplicateDisambiguatesSameFootprintSegments covers spec.md §8 S1:
// three bundles from one EXDATE-split recurrence share an identical
// (type, target, timing) tuple (dates are excluded from Identity) and
// must come out with 3 distinct, stable IdentityHash values rather than
// colliding.
func TestDeduplicateDisambiguatesSameFootprintSegments(t *testing.T) {
	var events []model.ManifestEvent
	for i, d := range []string{"2024-02-01", "2024-02-11", "2024-02-16"} {
		b := bundleStartingOn(t, d, "evt-1#"+d, i)
		ev, err := Normalize(b, Options{Source: "calendar", Provider: "google"})
		if err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		events = append(events, ev)
	}

	// Before disambiguation every one of these would collide.
	if events[0].IdentityHash != events[1].IdentityHash || events[1].IdentityHash != events[2].IdentityHash {
		t.Fatalf("test setup invalid: expected pre-dedup identity collision, got %q %q %q",
			events[0].IdentityHash, events[1].IdentityHash, events[2].IdentityHash)
	}

	out, err := Deduplicate(events)
	if err != nil {
		t.Fatalf("Deduplicate: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 events, got %d", len(out))
	}

	seen := map[string]bool{}
	for _, ev := range out {
		if seen[ev.IdentityHash] {
			t.Fatalf("duplicate IdentityHash %q survived Deduplicate", ev.IdentityHash)
		}
		seen[ev.IdentityHash] = true
	}

	// The first segment (earliest start date) must be untouched: Segment 0
	// hashes identically to the pre-dedup value, so the common,
	// non-colliding case is unaffected by this function's existence.
	if out[0].IdentityHash != events[0].IdentityHash {
		t.Errorf("first segment's identity hash changed: %q vs original %q", out[0].IdentityHash, events[0].IdentityHash)
	}
	if out[0].Identity.Segment != 0 {
		t.Errorf("first segment should keep Segment 0, got %d", out[0].Identity.Segment)
	}
	if out[1].Identity.Segment == 0 || out[2].Identity.Segment == 0 {
		t.Errorf("later segments should get a nonzero Segment ordinal: %d, %d", out[1].Identity.Segment, out[2].Identity.Segment)
	}
}

// TestDeduplicateSingleEventUnaffected checks the non-colliding case
// produces byte-identical output, preserving determinism for every
// existing manifest that never collides.
func TestDeduplicateSingleEventUnaffected(t *testing.T) {
	b := bundleStartingOn(t, "2024-02-01", "evt-1#0", 0)
	ev, err := Normalize(b, Options{Source: "calendar", Provider: "google"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	out, err := Deduplicate([]model.ManifestEvent{ev})
	if err != nil {
		t.Fatalf("Deduplicate: %v", err)
	}
	if len(out) != 1 || out[0].IdentityHash != ev.IdentityHash {
		t.Fatalf("single non-colliding event should be unchanged: got %+v", out)
	}
}

// TestDeduplicateRejectsTrueDuplicates covers the pathological case: two
// events that collide on IdentityHash AND share an identical StateHash
// (including start date) are not a disambiguatable segment, they are the
// same data seen twice, and must fail per spec.md §4.6's DuplicateIdentity.
func TestDeduplicateRejectsTrueDuplicates(t *testing.T) {
	b := bundleStartingOn(t, "2024-02-01", "evt-1#0", 0)
	ev, err := Normalize(b, Options{Source: "calendar", Provider: "google"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if _, err := Deduplicate([]model.ManifestEvent{ev, ev}); err == nil {
		t.Fatal("expected DuplicateIdentity error for two byte-identical events, got nil")
	}
}
