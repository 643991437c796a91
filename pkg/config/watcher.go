package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads Config from its backing file whenever it changes on
// disk, notifying registered callbacks with the freshly parsed value.
// Used to pick up a config file another process just rewrote (e.g. via
// `set_calendar` / `set_sync_mode`) without requiring a process restart.
type Watcher struct {
	configPath string
	callbacks  []func(Config)
	mu         sync.RWMutex
}

// NewWatcher creates a configuration watcher for the given config path.
func NewWatcher(configPath string) *Watcher {
	return &Watcher{
		configPath: configPath,
		callbacks:  make([]func(Config), 0),
	}
}

// OnConfigChange registers a callback invoked whenever the configuration
// file changes and reparses successfully.
func (w *Watcher) OnConfigChange(callback func(Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

func (w *Watcher) notifyCallbacks(cfg Config) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, callback := range w.callbacks {
		callback(cfg)
	}
}

// Start begins watching the configuration file for changes. It blocks
// until the context is cancelled or the watcher errors.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %v", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			slog.Error("failed to close file watcher", "error", err)
		}
	}()

	configDir := filepath.Dir(w.configPath)
	if err := watcher.Add(configDir); err != nil {
		return fmt.Errorf("failed to watch config directory: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-watcher.Events:
			if event.Name == w.configPath && (event.Op&(fsnotify.Write|fsnotify.Create) != 0) {
				slog.Info("config file changed, reloading", "path", w.configPath)
				if cfg, err := ReadConfig(w.configPath); err == nil {
					w.notifyCallbacks(cfg)
				} else {
					slog.Error("failed to reload config file", "error", err)
				}
			}
		case err := <-watcher.Errors:
			slog.Error("file watcher error", "error", err)
		}
	}
}
