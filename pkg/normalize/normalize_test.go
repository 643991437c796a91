package normalize

import (
	"testing"
	"time"

	"github.com/robbiet76/CalendarScheduler/pkg/model"
	"github.com/robbiet76/CalendarScheduler/pkg/primitives"
)

func sampleBundle(t *testing.T) model.Bundle {
	t.Helper()
	start := primitives.HardTime("18:00:00")
	end := primitives.HardTime("22:00:00")
	base := model.SubEvent{
		Type: model.TypePlaylist,
		Target: "Playlist A",
		Timing: model.Timing{
			StartDate: primitives.HardDate(mustDate(t, "2024-02-01")),
			EndDate:   primitives.HardDate(mustDate(t, "2024-02-29")),
			StartTime: &start,
			EndTime:   &end,
			Timezone:  "America/Chicago",
		},
		Behavior: model.Behavior{Enabled: true},
		Role:     model.RoleBase,
		BundleID: "evt-1#0",
	}
	return model.Bundle{ID: "evt-1#0", ParentUID: "evt-1", SourceUID: "evt-1", Base: base}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return v
}

// TestNormalizeDeterministic checks that normalizing the same bundle twice
// yields identical identity and state hashes (testable property 2).
func TestNormalizeDeterministic(t *testing.T) {
	b := sampleBundle(t)
	a, err := Normalize(b, Options{Source: "calendar", Provider: "google"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	c, err := Normalize(b, Options{Source: "calendar", Provider: "google"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if a.IdentityHash != c.IdentityHash {
		t.Errorf("identity hash not deterministic: %q vs %q", a.IdentityHash, c.IdentityHash)
	}
	if a.StateHash != c.StateHash {
		t.Errorf("state hash not deterministic: %q vs %q", a.StateHash, c.StateHash)
	}
	if a.Identity.Type != model.TypePlaylist || a.Identity.Target != "Playlist A" {
		t.Errorf("identity mismatch: %+v", a.Identity)
	}
}

// TestNormalizeRejectsMissingBase enforces the InvariantViolation path.
func TestNormalizeRejectsMissingBase(t *testing.T) {
	b := sampleBundle(t)
	b.Base.Role = model.RoleOverride
	if _, err := Normalize(b, Options{Source: "calendar"}); err == nil {
		t.Fatal("expected InvariantViolation, got nil")
	}
}

// TestNormalizeExecutionOrderAffectsState ensures ordering-only changes
// produce a state hash change (testable property 5).
func TestNormalizeExecutionOrderAffectsState(t *testing.T) {
	b1 := sampleBundle(t)
	b2 := sampleBundle(t)
	b2.Base.ExecutionOrder = 5

	m1, err := Normalize(b1, Options{Source: "calendar"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	m2, err := Normalize(b2, Options{Source: "calendar"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if m1.IdentityHash != m2.IdentityHash {
		t.Errorf("identity hash should be unaffected by executionOrder: %q vs %q", m1.IdentityHash, m2.IdentityHash)
	}
	if m1.StateHash == m2.StateHash {
		t.Errorf("state hash should change when executionOrder changes")
	}
}
