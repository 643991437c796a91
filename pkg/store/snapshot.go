package store

import "github.com/robbiet76/CalendarScheduler/pkg/model"

// CalendarSnapshot is the last raw provider read, cached so a run that only
// needs to diagnose or preview doesn't have to hit the provider again.
type CalendarSnapshot struct {
	CalendarID  string                   `json:"calendar_id"`
	Events      []model.RawCalendarEvent `json:"events"`
	GeneratedAt int64                    `json:"generated_at"`
}

// CalendarSnapshotStore persists CalendarSnapshot.
type CalendarSnapshotStore struct {
	Path string
}

func (s CalendarSnapshotStore) Load() (CalendarSnapshot, bool, error) {
	var snap CalendarSnapshot
	exists, err := readJSON(s.Path, &snap)
	if err != nil {
		return CalendarSnapshot{}, false, err
	}
	return snap, exists, nil
}

func (s CalendarSnapshotStore) Save(snap CalendarSnapshot) error {
	return writeJSONAtomic(s.Path, snap)
}
