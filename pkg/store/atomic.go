// Package store implements the four persistence collaborators from
// spec.md §4.10 (C10): the manifest, the tombstone document, the FPP
// per-identity/per-state timestamp cache, and the calendar snapshot cache.
// All four write via temp-file-then-rename so a crash mid-write never
// leaves a partially-written document behind.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/robbiet76/CalendarScheduler/pkg/errs"
)

// writeJSONAtomic marshals v and replaces path with it atomically: write to
// a sibling temp file in the same directory (so the final rename is on the
// same filesystem), fsync, then rename over the destination.
func writeJSONAtomic(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.KindIO, "mkdir_failed", "could not create store directory", err)
	}

	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errs.Wrap(errs.KindIO, "marshal_failed", "could not marshal store document", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errs.Wrap(errs.KindIO, "tempfile_failed", "could not create staging file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errs.Wrap(errs.KindIO, "write_failed", "could not write staging file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errs.Wrap(errs.KindIO, "sync_failed", "could not sync staging file", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.KindIO, "close_failed", "could not close staging file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errs.Wrap(errs.KindIO, "rename_failed", "could not replace store file", err)
	}
	return nil
}

// readJSON loads and unmarshals path into v. A missing file is reported via
// the returned bool rather than an error, since every store here has a
// well-defined empty-document default for first run.
func readJSON(path string, v interface{}) (exists bool, err error) {
	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return false, nil
		}
		return false, errs.Wrap(errs.KindIO, "read_failed", "could not read store file", readErr)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, errs.Wrap(errs.KindIO, "unmarshal_failed", "could not parse store file", err)
	}
	return true, nil
}
