package diff

import (
	"testing"

	"github.com/robbiet76/CalendarScheduler/pkg/model"
)

func manifestOf(events map[string]model.ManifestEvent) model.Manifest {
	return model.Manifest{Events: events}
}

func TestDiffClassification(t *testing.T) {
	desired := manifestOf(map[string]model.ManifestEvent{
		"create-me": {IdentityHash: "create-me", StateHash: "s1"},
		"same":      {IdentityHash: "same", StateHash: "s2"},
		"changed":   {IdentityHash: "changed", StateHash: "s3-new"},
	})
	current := manifestOf(map[string]model.ManifestEvent{
		"same":       {IdentityHash: "same", StateHash: "s2"},
		"changed":    {IdentityHash: "changed", StateHash: "s3-old"},
		"delete-me":  {IdentityHash: "delete-me", StateHash: "s4"},
	})

	res, err := Diff(desired, current)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	assertSet(t, "creates", res.Creates, []string{"create-me"})
	assertSet(t, "updates", res.Updates, []string{"changed"})
	assertSet(t, "deletes", res.Deletes, []string{"delete-me"})
}

func TestDiffNoopWhenStateHashEqual(t *testing.T) {
	desired := manifestOf(map[string]model.ManifestEvent{"a": {IdentityHash: "a", StateHash: "x"}})
	current := manifestOf(map[string]model.ManifestEvent{"a": {IdentityHash: "a", StateHash: "x"}})

	res, err := Diff(desired, current)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(res.Creates) != 0 || len(res.Updates) != 0 || len(res.Deletes) != 0 {
		t.Errorf("expected empty diff, got %+v", res)
	}
}

func assertSet(t *testing.T, label string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %v, want %v", label, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s: got %v, want %v", label, got, want)
		}
	}
}
