package toolserver

import (
	"log/slog"
	"os"
	"sync"
	"time"
)

// ManifestWatcher polls a manifest directory and reapplies its TOML
// descriptors when the directory changes. Editing a manifest therefore
// takes effect without restarting the host.
type ManifestWatcher struct {
	dir      string
	interval time.Duration
	server   *Server
	logger   *slog.Logger
	stop     chan struct{}
	once     sync.Once
	lastMod  time.Time
}

// NewManifestWatcher creates a watcher for dir that updates server.
func NewManifestWatcher(dir string, interval time.Duration, server *Server, logger *slog.Logger) *ManifestWatcher {
	return &ManifestWatcher{
		dir:      dir,
		interval: interval,
		server:   server,
		logger:   logger.With("component", "manifest-watcher"),
		stop:     make(chan struct{}),
	}
}

// Start begins polling in a goroutine.
func (w *ManifestWatcher) Start() {
	if info, err := os.Stat(w.dir); err == nil {
		w.lastMod = info.ModTime()
	}
	go w.poll()
}

// Stop halts polling. Safe to call more than once.
func (w *ManifestWatcher) Stop() {
	w.once.Do(func() { close(w.stop) })
}

func (w *ManifestWatcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check compares the directory's mtime against the last seen value and
// reloads on change. Adding or removing a manifest bumps the mtime;
// in-place edits are picked up on the next add or remove.
func (w *ManifestWatcher) check() {
	info, err := os.Stat(w.dir)
	if err != nil {
		return
	}
	if !info.ModTime().After(w.lastMod) {
		return
	}
	w.lastMod = info.ModTime()

	manifests, err := LoadManifests(w.dir, w.logger)
	if err != nil {
		w.logger.Warn("manifest reload failed", "error", err)
		return
	}
	w.server.ApplyManifests(manifests)
	w.logger.Info("manifests reloaded", "count", len(manifests))
}
