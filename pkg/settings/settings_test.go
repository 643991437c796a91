package settings

import "testing"

func TestParseRoundTrip(t *testing.T) {
	desc := "Nightly show\n\n[settings]\ntype=playlist\nenabled=true\nstopType=1\nrepeat=0\nstart=SunSet\nstart_offset=-15\ncustom_key=keepme\n"
	s, ok, err := Parse(desc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected settings block to be found")
	}
	if s.Type != "playlist" || !s.Enabled || s.StopType != 1 || s.Start != "SunSet" || s.StartOffset != -15 {
		t.Fatalf("unexpected decode: %+v", s)
	}
	if s.Extra["custom_key"] != "keepme" {
		t.Fatalf("expected unknown key preserved, got %+v", s.Extra)
	}

	encoded := Encode(s)
	s2, ok2, err := Parse(encoded)
	if err != nil || !ok2 {
		t.Fatalf("round-trip parse failed: ok=%v err=%v", ok2, err)
	}
	if s2.Type != s.Type || s2.Start != s.Start || s2.StartOffset != s.StartOffset {
		t.Fatalf("round-trip mismatch: %+v vs %+v", s, s2)
	}
	if s2.Extra["custom_key"] != "keepme" {
		t.Fatalf("round-trip dropped unknown key: %+v", s2.Extra)
	}
}

func TestParseNoSettingsBlock(t *testing.T) {
	_, ok, err := Parse("just a plain description")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false when no [settings] block present")
	}
}
