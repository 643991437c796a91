package fppfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/robbiet76/CalendarScheduler/pkg/primitives"
)

func TestDayEnumRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		w    *primitives.Weekday
		want int
	}{
		{"everyday-nil", nil, DayEveryday},
		{"weekdays", weekly(t, primitives.MO, primitives.TU, primitives.WE, primitives.TH, primitives.FR), DayWeekdays},
		{"weekends", weekly(t, primitives.SU, primitives.SA), DayWeekends},
		{"single-monday", weekly(t, primitives.MO), DayMonday},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DayEnumFromWeekday(tc.w)
			if err != nil {
				t.Fatalf("DayEnumFromWeekday: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
			back, err := WeekdayFromDayEnum(got)
			if err != nil {
				t.Fatalf("WeekdayFromDayEnum: %v", err)
			}
			if !back.Equal(tc.w) {
				t.Errorf("round-trip mismatch: got %+v, want %+v", back, tc.w)
			}
		})
	}
}

func TestDayEnumUnsupportedCombination(t *testing.T) {
	w := weekly(t, primitives.MO, primitives.WE, primitives.FR)
	if _, err := DayEnumFromWeekday(w); err == nil {
		t.Fatal("expected an error for a weekday combination FPP's dayEnum can't represent")
	}
}

func TestReadWriteRowsRoundTrip(t *testing.T) {
	rows := []Row{
		{Type: "playlist", Target: "Show A", StartTime: "18:00:00", EndTime: "24:00:00", StartDate: "2024-02-01", EndDate: "2024-02-29", DayEnum: DayEveryday, Enabled: true},
	}
	raw, err := WriteRows(rows)
	if err != nil {
		t.Fatalf("WriteRows: %v", err)
	}
	back, err := ReadRows(raw)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(back) != 1 || back[0].EndTime != "24:00:00" {
		t.Fatalf("expected 24:00:00 end time preserved verbatim, got %+v", back)
	}
}

func TestWriteAtomicCreatesBackupAndReplaces(t *testing.T) {
	dir := t.TempDir()
	live := filepath.Join(dir, "schedule.json")
	backup := filepath.Join(dir, "schedule.backup.json")

	original := []Row{{Type: "playlist", Target: "Old", DayEnum: DayEveryday, Enabled: true}}
	raw, _ := WriteRows(original)
	if err := os.WriteFile(live, raw, 0o644); err != nil {
		t.Fatalf("seed live file: %v", err)
	}

	updated := []Row{{Type: "playlist", Target: "New", DayEnum: DayEveryday, Enabled: true}}
	if err := WriteAtomic(context.Background(), live, backup, updated); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	gotLive, err := os.ReadFile(live)
	if err != nil {
		t.Fatalf("read live: %v", err)
	}
	rows, err := ReadRows(gotLive)
	if err != nil {
		t.Fatalf("ReadRows live: %v", err)
	}
	if len(rows) != 1 || rows[0].Target != "New" {
		t.Fatalf("expected live file to contain the update, got %+v", rows)
	}

	gotBackup, err := os.ReadFile(backup)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	backupRows, err := ReadRows(gotBackup)
	if err != nil {
		t.Fatalf("ReadRows backup: %v", err)
	}
	if len(backupRows) != 1 || backupRows[0].Target != "Old" {
		t.Fatalf("expected backup to hold the prior state, got %+v", backupRows)
	}
}

func TestWriteAtomicRefusesEmpty(t *testing.T) {
	dir := t.TempDir()
	live := filepath.Join(dir, "schedule.json")
	backup := filepath.Join(dir, "schedule.backup.json")
	if err := WriteAtomic(context.Background(), live, backup, nil); err == nil {
		t.Fatal("expected an error writing an empty scheduler file")
	}
}

func weekly(t *testing.T, codes ...primitives.WeekdayCode) *primitives.Weekday {
	t.Helper()
	w, err := primitives.NewWeekly(codes...)
	if err != nil {
		t.Fatalf("NewWeekly: %v", err)
	}
	return w
}
