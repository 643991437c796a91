// Package engine wires the Raw Ingest Adapters, Resolution, Normalization,
// Ordering, Diff, Authority, Reconciliation, Apply, and Persistence
// components into the two control-plane operations a run actually
// performs: Preview (pure planning) and Apply (plan + execute).
package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/robbiet76/CalendarScheduler/pkg/apply"
	"github.com/robbiet76/CalendarScheduler/pkg/config"
	"github.com/robbiet76/CalendarScheduler/pkg/errs"
	"github.com/robbiet76/CalendarScheduler/pkg/fppfile"
	"github.com/robbiet76/CalendarScheduler/pkg/order"
	"github.com/robbiet76/CalendarScheduler/pkg/reconcile"
	"github.com/robbiet76/CalendarScheduler/pkg/store"
)

// CalendarSource is everything the engine needs from a calendar provider:
// the read side (ListEvents) and the write side (apply.CalendarWriter).
// Satisfied by *pkg/provider.CalendarClient.
type CalendarSource interface {
	ListEvents(ctx context.Context) ([]*calendar.Event, error)
	apply.CalendarWriter
}

// Engine holds the configuration and provider handle a run needs; it
// carries no in-memory cross-run state of its own (everything durable
// lives under Config.StateDir via pkg/store).
type Engine struct {
	Config   config.Config
	Calendar CalendarSource // nil when no calendar provider is configured

	// mu serializes concurrent Preview/Apply calls within one process;
	// cross-process exclusion during Apply-FPP is fppfile.WriteAtomic's
	// flock (spec.md §5).
	mu sync.Mutex
}

// New builds an Engine from configuration and an already-authenticated
// calendar client (nil if calendar sync is not configured).
func New(cfg config.Config, calendarClient CalendarSource) *Engine {
	return &Engine{Config: cfg, Calendar: calendarClient}
}

func (e *Engine) manifestStore() store.ManifestStore {
	return store.ManifestStore{Path: filepath.Join(e.Config.StateDir, "manifest.json")}
}

func (e *Engine) tombstoneStore() store.TombstoneStore {
	return store.TombstoneStore{Path: filepath.Join(e.Config.StateDir, "tombstones.json")}
}

func (e *Engine) fppTimestampStore() store.FPPTimestampStore {
	return store.FPPTimestampStore{Path: filepath.Join(e.Config.StateDir, "fpp_timestamps.json")}
}

func (e *Engine) calendarSnapshotStore() store.CalendarSnapshotStore {
	return store.CalendarSnapshotStore{Path: filepath.Join(e.Config.StateDir, "calendar_snapshot.json")}
}

func (e *Engine) orderContext(loc *time.Location) order.Context {
	return order.Context{Location: loc, Lat: e.Config.FPP.Latitude, Lon: e.Config.FPP.Longitude, OffsetStepMin: 5}
}

func (e *Engine) location() (*time.Location, error) {
	loc, err := time.LoadLocation(e.Config.FPP.Timezone)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, "invalid_timezone", "cannot load configured timezone", err)
	}
	return loc, nil
}

func (e *Engine) reconcileSyncMode() reconcile.SyncMode {
	switch e.Config.SyncMode {
	case config.ModeCalendarToFPP:
		return reconcile.SyncCalendarToFPP
	case config.ModeFPPToCalendar:
		return reconcile.SyncFPPToCalendar
	default:
		return reconcile.SyncBoth
	}
}

func (e *Engine) applyPolicy() apply.Policy {
	switch e.Config.SyncMode {
	case config.ModeCalendarToFPP:
		return apply.Policy{FPP: true, Calendar: false, FailOnBlocked: e.Config.FailOnBlocked}
	case config.ModeFPPToCalendar:
		return apply.Policy{FPP: false, Calendar: true, FailOnBlocked: e.Config.FailOnBlocked}
	default:
		return apply.Policy{FPP: true, Calendar: true, FailOnBlocked: e.Config.FailOnBlocked}
	}
}

// loadFPPRows reads the current scheduler file from disk.
func (e *Engine) loadFPPRows() ([]fppfile.Row, int64, error) {
	path := e.Config.FPP.SchedulerPath
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, 0, errs.Wrap(errs.KindIO, "scheduler_read_failed", "could not read scheduler file", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, errs.Wrap(errs.KindIO, "scheduler_stat_failed", "could not stat scheduler file", err)
	}
	rows, err := fppfile.ReadRows(data)
	if err != nil {
		return nil, 0, err
	}
	return rows, info.ModTime().Unix(), nil
}
