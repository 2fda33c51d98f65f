package catalog

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watcher rebuilds the catalog when the inventory file changes. Editors
// typically write files with a burst of events, so changes are debounced.
type Watcher struct {
	catalog  *Catalog
	path     string
	debounce time.Duration
	log      *log.Logger

	fsw  *fsnotify.Watcher
	done chan struct{}
}

// NewWatcher creates a watcher for the given inventory path.
func NewWatcher(catalog *Catalog, path string, logger *log.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the file: many editors replace the file on
	// save, which drops a watch registered on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Watcher{
		catalog:  catalog,
		path:     path,
		debounce: 200 * time.Millisecond,
		log:      logger,
		fsw:      fsw,
		done:     make(chan struct{}),
	}, nil
}

// Start runs the watch loop until Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Stop terminates the watch loop.
func (w *Watcher) Stop() {
	close(w.done)
	_ = w.fsw.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("inventory watcher error")
		case <-fire:
			timer = nil
			fire = nil
			w.log.WithField("path", w.path).Info("inventory changed, rebuilding catalog")
			if err := w.catalog.Rebuild(ctx); err != nil {
				w.log.WithError(err).Error("catalog rebuild after inventory change failed")
			}
		}
	}
}
