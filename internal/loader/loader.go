// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package loader

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/juliocesarbiz/custom-airflow/internal/cronutil"
	"github.com/juliocesarbiz/custom-airflow/internal/logger"
	"github.com/juliocesarbiz/custom-airflow/internal/workflow"
)

// Loader scans Dir for definition files and maintains the active registry.
// It is the registry's sole writer; readers (the cron firing loop) only
// ever observe complete, never half-updated, entries.
type Loader struct {
	Dir    string
	Logger logger.Logger

	mu       sync.RWMutex
	entries  map[string]*workflow.Workflow
	sourceOf map[string]string // workflow name -> definition file path

	watcher *fsnotify.Watcher
}

// New creates a Loader rooted at dir.
func New(dir string, log logger.Logger) *Loader {
	if log == nil {
		log = logger.Default
	}
	return &Loader{
		Dir:      dir,
		Logger:   log,
		entries:  make(map[string]*workflow.Workflow),
		sourceOf: make(map[string]string),
	}
}

// Workflows returns a snapshot of the active registry.
func (l *Loader) Workflows() []*workflow.Workflow {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*workflow.Workflow, 0, len(l.entries))
	for _, w := range l.entries {
		out = append(out, w)
	}
	return out
}

// isDefinitionFile applies the loader's naming convention: non-hidden
// .yaml or .yml files whose basename does not begin with "__".
func isDefinitionFile(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "__") {
		return false
	}
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}

// Scan performs one pass over Dir, loading new or changed definitions into
// the registry. A per-file load failure is logged and that file is
// skipped without disturbing any existing registry entry — used by the
// driver's tick loop, where a single bad definition must never halt the
// live scheduler.
func (l *Loader) Scan(now time.Time) error {
	_, err := l.scan(now)
	return err
}

// ScanCollect behaves like Scan but additionally returns every per-file
// DefinitionError/LoaderError it encountered instead of only logging them,
// so a caller such as `validate` can report and fail on them.
func (l *Loader) ScanCollect(now time.Time) ([]error, error) {
	return l.scan(now)
}

func (l *Loader) scan(now time.Time) ([]error, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, de := range entries {
		if de.IsDir() || !isDefinitionFile(de.Name()) {
			continue
		}
		path := filepath.Join(l.Dir, de.Name())
		info, err := de.Info()
		if err != nil {
			l.Logger.Warnf("loader: stat %s failed: %v", path, err)
			errs = append(errs, err)
			continue
		}

		w, err := parseFile(path)
		if err != nil {
			l.Logger.Warnf("loader: %v", err)
			errs = append(errs, err)
			continue
		}

		l.upsert(w, path, info.ModTime(), now)
	}
	return errs, nil
}

// upsert replaces or inserts a registry entry under a single lock so no
// reader ever observes a partially-updated entry.
func (l *Loader) upsert(w *workflow.Workflow, path string, mtime, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, ok := l.entries[w.Name]
	switch {
	case !ok:
		next, err := cronutil.Next(w.Schedule, now)
		if err != nil {
			l.Logger.Warnf("loader: %s: invalid cron expression %q: %v", path, w.Schedule, err)
			return
		}
		w.SetNextFire(next)
		w.SetSourceModTime(mtime)
		l.entries[w.Name] = w
		l.sourceOf[w.Name] = path

	case mtime.After(existing.SourceModTime()):
		next, err := cronutil.Next(w.Schedule, now)
		if err != nil {
			l.Logger.Warnf("loader: %s: invalid cron expression %q: %v", path, w.Schedule, err)
			return
		}
		w.SetNextFire(next)
		w.SetSourceModTime(mtime)
		l.entries[w.Name] = w
		l.sourceOf[w.Name] = path

	default:
		// No-op: unchanged since the last load.
	}
}

// Watch starts an fsnotify watch on Dir as a latency-shortening wake-up
// signal: on any filesystem event it triggers an out-of-band Scan. This is
// strictly an optimization — the driver's tick loop already calls Scan on
// a fixed cadence, and fsnotify events can be coalesced or dropped across
// platforms, so Watch never substitutes for the poll-and-compare-mtime
// algorithm in Scan, it only shortens the time to the next one.
func (l *Loader) Watch(done <-chan struct{}) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(l.Dir); err != nil {
		_ = w.Close()
		return err
	}
	l.watcher = w

	go func() {
		defer w.Close()
		for {
			select {
			case <-done:
				return
			case _, ok := <-w.Events:
				if !ok {
					return
				}
				if err := l.Scan(time.Now().UTC()); err != nil {
					l.Logger.Warnf("loader: watch-triggered scan failed: %v", err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.Logger.Warnf("loader: fsnotify error: %v", err)
			}
		}
	}()
	return nil
}
