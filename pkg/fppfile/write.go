package fppfile

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/robbiet76/CalendarScheduler/pkg/errs"
)

const lockRetryInterval = 50 * time.Millisecond

// WriteAtomic implements the FPP write protocol's final steps (spec.md
// §4.9 step 5): it refuses an empty row set, encodes the rows, copies the
// current live file (if any) over the single backup file (overwritten each
// run), stages the new content in a sibling temp file, then takes an
// exclusive lock on the sibling "<livePath>.lock" file and renames the
// staged file over the live file while holding it.
func WriteAtomic(ctx context.Context, livePath, backupPath string, rows []Row) error {
	if len(rows) == 0 {
		return errs.New(errs.KindValidation, "empty_schedule", "refusing to write an empty scheduler file")
	}
	raw, err := WriteRows(rows)
	if err != nil {
		return err
	}

	dir := filepath.Dir(livePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.KindIO, "mkdir_failed", "could not create scheduler directory", err)
	}

	if existing, readErr := os.ReadFile(livePath); readErr == nil {
		if err := os.WriteFile(backupPath, existing, 0o644); err != nil {
			return errs.Wrap(errs.KindIO, "backup_failed", "could not write scheduler backup", err)
		}
	} else if !os.IsNotExist(readErr) {
		return errs.Wrap(errs.KindIO, "backup_read_failed", "could not read live scheduler file for backup", readErr)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(livePath)+".staging-*")
	if err != nil {
		return errs.Wrap(errs.KindIO, "tempfile_failed", "could not create staging scheduler file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errs.Wrap(errs.KindIO, "write_failed", "could not write staging scheduler file", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.KindIO, "close_failed", "could not close staging scheduler file", err)
	}

	lock := flock.New(livePath + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return errs.Wrap(errs.KindConcurrency, "lock_failed", "could not acquire scheduler file lock", err)
	}
	if !locked {
		return errs.ConcurrentRun("another run holds the scheduler file lock")
	}
	defer lock.Unlock()

	if err := os.Rename(tmpPath, livePath); err != nil {
		return errs.Wrap(errs.KindIO, "rename_failed", "could not replace scheduler file", err)
	}
	return nil
}
