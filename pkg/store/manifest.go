package store

import "github.com/robbiet76/CalendarScheduler/pkg/model"

// ManifestStore persists the current, reconciled Manifest to manifest.json.
type ManifestStore struct {
	Path string
}

// Load returns the persisted manifest, or an empty one (version 0, no
// events) if the file has never been written.
func (s ManifestStore) Load() (model.Manifest, error) {
	var m model.Manifest
	exists, err := readJSON(s.Path, &m)
	if err != nil {
		return model.Manifest{}, err
	}
	if !exists {
		return model.Manifest{Events: map[string]model.ManifestEvent{}}, nil
	}
	if m.Events == nil {
		m.Events = map[string]model.ManifestEvent{}
	}
	return m, nil
}

// Save persists m, bumping its version and stamping generatedAt. The
// caller supplies generatedAt (an epoch) since this package never calls
// time.Now() directly, keeping persistence deterministic under test.
func (s ManifestStore) Save(m model.Manifest, generatedAt int64) error {
	m.GeneratedAt = generatedAt
	m.Version++
	if m.Events == nil {
		m.Events = map[string]model.ManifestEvent{}
	}
	return writeJSONAtomic(s.Path, m)
}
