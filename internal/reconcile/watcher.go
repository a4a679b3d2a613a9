package reconcile

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher forwards filesystem events for task documents in one directory.
type Watcher struct {
	fsw    *fsnotify.Watcher
	dir    string
	ext    string
	notify func(path string)
	log    *zap.Logger
}

// NewWatcher starts watching dir. notify receives the path of every
// created, written, removed or renamed document with extension ext.
// The watcher must be released with [Watcher.Run] or [Watcher.Close].
func NewWatcher(dir, ext string, notify func(path string), log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	err = fsw.Add(dir)
	if err != nil {
		_ = fsw.Close()

		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	return &Watcher{fsw: fsw, dir: dir, ext: ext, notify: notify, log: log}, nil
}

// Run delivers events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	w.log.Debug("watching task directory", zap.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}

			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}

			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher without running it.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, w.ext) {
		return
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	w.log.Debug("document changed", zap.String("path", event.Name), zap.Stringer("op", event.Op))

	w.notify(event.Name)
}
