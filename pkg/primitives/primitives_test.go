package primitives

import (
	"testing"
	"time"
)

func TestNormalizeWeekly(t *testing.T) {
	tests := []struct {
		name    string
		in      []WeekdayCode
		want    []WeekdayCode
		wantErr bool
	}{
		{"sorts", []WeekdayCode{WE, MO, FR}, []WeekdayCode{FR, MO, WE}, false},
		{"dedupes rejected", []WeekdayCode{MO, MO}, nil, true},
		{"unknown code rejected", []WeekdayCode{"XX"}, nil, true},
		{"empty ok", []WeekdayCode{}, []WeekdayCode{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeWeekly(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v want %v", got, tt.want)
				}
			}
		})
	}
}

func TestWeekdayActive(t *testing.T) {
	w, err := NewWeekly(MO, WE, FR)
	if err != nil {
		t.Fatal(err)
	}
	mon := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC) // a Monday
	tue := mon.AddDate(0, 0, 1)
	if !w.Active(mon) {
		t.Errorf("expected Monday active")
	}
	if w.Active(tue) {
		t.Errorf("expected Tuesday inactive")
	}
	if !(*Weekday)(nil).Active(tue) {
		t.Errorf("nil weekday should be active every day")
	}
}

func TestDateParity(t *testing.T) {
	p, err := NewDateParity(ParityOdd)
	if err != nil {
		t.Fatal(err)
	}
	odd := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)
	even := time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)
	if !p.Active(odd) {
		t.Errorf("expected day 3 active for odd parity")
	}
	if p.Active(even) {
		t.Errorf("expected day 4 inactive for odd parity")
	}
}

func TestDateIntervalOverlaps(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, time.February, d, 0, 0, 0, 0, time.UTC) }
	a := DateInterval{Start: day(1), End: day(10)}
	b := DateInterval{Start: day(10), End: day(20)}
	if a.Overlaps(b) {
		t.Errorf("half-open boundary touch must not overlap")
	}
	c := DateInterval{Start: day(9), End: day(15)}
	if !a.Overlaps(c) {
		t.Errorf("expected overlap")
	}
}

func TestSplitOvernight(t *testing.T) {
	segs := Split(22*3600, 2*3600)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].StartSeconds != 22*3600 || segs[0].EndSeconds != 24*3600 {
		t.Errorf("unexpected first segment: %+v", segs[0])
	}
	if segs[1].StartSeconds != 0 || segs[1].EndSeconds != 2*3600 {
		t.Errorf("unexpected second segment: %+v", segs[1])
	}
}

func TestHolidayResolver(t *testing.T) {
	r := NewHolidayResolver(true)
	xmas := time.Date(2026, time.December, 25, 0, 0, 0, 0, time.UTC)
	tok, ok := r.Resolve(xmas)
	if !ok || tok != "Christmas" {
		t.Errorf("expected Christmas, got %v %v", tok, ok)
	}

	thanksgiving := time.Date(2026, time.November, 26, 0, 0, 0, 0, time.UTC)
	tok, ok = r.Resolve(thanksgiving)
	if !ok || tok != "Thanksgiving" {
		t.Errorf("expected Thanksgiving on 4th Thursday, got %v %v", tok, ok)
	}

	if err := r.ResolveToken("NotAHoliday"); err == nil {
		t.Errorf("expected strict-mode error for unknown token")
	}
}

func TestDatePatternWildcards(t *testing.T) {
	p := DatePattern("0000-12-25")
	if !p.Valid() {
		t.Fatalf("expected valid pattern")
	}
	if !p.Matches(time.Date(2030, time.December, 25, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected wildcard year to match")
	}
	if p.Matches(time.Date(2030, time.December, 26, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected day mismatch to fail")
	}
}

func TestEstimateSymbolicTimeDeterministic(t *testing.T) {
	loc, _ := time.LoadLocation("America/Chicago")
	date := time.Date(2026, time.June, 21, 0, 0, 0, 0, loc)
	s1, ok1 := EstimateSymbolicTime(date, SunSet, 41.85, -87.65, loc, 0, 5)
	s2, ok2 := EstimateSymbolicTime(date, SunSet, 41.85, -87.65, loc, 0, 5)
	if !ok1 || !ok2 || s1 != s2 {
		t.Fatalf("estimate must be deterministic: %v %v %v %v", s1, ok1, s2, ok2)
	}
	// Summer sunset in Chicago should land in the evening, not the morning.
	if s1 < 18*3600 || s1 > 22*3600 {
		t.Errorf("unexpected sunset estimate: %d seconds", s1)
	}
}
