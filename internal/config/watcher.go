package config

import (
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mla/mla/chart-go/internal/chart"
)

const reloadDebounce = 100 * time.Millisecond

// CatalogWatcher serves the latest successfully loaded catalog and reloads
// it when the file changes on disk. A file that fails to parse keeps the
// previous catalog in place.
type CatalogWatcher struct {
	path     string
	current  atomic.Pointer[Catalog]
	onReload func(*Catalog)

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchCatalog loads path and starts watching its directory. Editors that
// replace files by rename are handled because the directory is watched.
func WatchCatalog(path string, onReload func(*Catalog)) (*CatalogWatcher, error) {
	c, err := LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}
	w := &CatalogWatcher{
		path:     filepath.Clean(path),
		onReload: onReload,
		watcher:  fw,
		done:     make(chan struct{}),
	}
	w.current.Store(c)
	go w.loop()
	return w, nil
}

// Current returns the active catalog.
func (w *CatalogWatcher) Current() *Catalog {
	return w.current.Load()
}

func (w *CatalogWatcher) EntityView(typeID string) (chart.TypeView, bool) {
	return w.Current().EntityView(typeID)
}

func (w *CatalogWatcher) LinkView(typeID string) (chart.TypeView, bool) {
	return w.Current().LinkView(typeID)
}

// Close stops watching and waits for the reload loop to exit.
func (w *CatalogWatcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *CatalogWatcher) loop() {
	defer close(w.done)

	var pending time.Time
	ticker := time.NewTicker(reloadDebounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.Now()
			}

		case <-ticker.C:
			if pending.IsZero() || time.Since(pending) < reloadDebounce {
				continue
			}
			pending = time.Time{}
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("catalog watch error", "path", w.path, "error", err)
		}
	}
}

func (w *CatalogWatcher) reload() {
	c, err := LoadCatalog(w.path)
	if err != nil {
		slog.Warn("catalog reload failed, keeping previous", "error", err)
		return
	}
	w.current.Store(c)
	slog.Info("catalog reloaded", "path", w.path, "entityTypes", len(c.Entities), "linkTypes", len(c.Links))
	if w.onReload != nil {
		w.onReload(c)
	}
}
