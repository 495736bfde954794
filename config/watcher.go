package config

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/facebookgo/stackerr"
	"github.com/fsnotify/fsnotify"

	"github.com/puku-sh/editormru/log"
	"github.com/puku-sh/editormru/workbench"
)

// Watcher is workbench.SettingsProvider, which limit settings are read from config
// file and reloaded when file changes.
type Watcher struct {
	log  log.Logger
	path string
	fsw  *fsnotify.Watcher

	mu      sync.Mutex
	limit   workbench.LimitSettings
	changed workbench.Emitter[workbench.LimitSettings]
}

var _ workbench.SettingsProvider = (*Watcher)(nil)

// NewWatcher reads limit settings from file at path and starts watching its directory.
// Directory is watched rather than file, because editors often replace file on save.
func NewWatcher(l log.Logger, path string) (*Watcher, error) {
	path = filepath.Clean(path)
	conf, err := Load(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, stackerr.Wrap(err)
	}
	err = fsw.Add(filepath.Dir(path))
	if err != nil {
		fsw.Close()
		return nil, stackerr.Wrap(err)
	}
	return &Watcher{
		log:   l.WithFields(log.Fields{"config": path}),
		path:  path,
		fsw:   fsw,
		limit: ParseLimit(conf.Limit),
	}, nil
}

func (w *Watcher) Limit() workbench.LimitSettings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.limit
}

func (w *Watcher) OnDidChangeLimit(f func(workbench.LimitSettings)) workbench.Unsubscribe {
	return w.changed.On(f)
}

// Run handles file events until ctx is done or watcher is closed.
// Should be run in goroutine.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warnf("Config watch error: %v", err)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if err := w.Reload(); err != nil {
		w.log.Warnf("Config reload failed, previous limit is kept: %v", err)
	}
}

// Reload reads limit settings from file. Listeners are notified only if settings changed.
func (w *Watcher) Reload() error {
	conf, err := Load(w.path)
	if err != nil {
		return err
	}
	limit := ParseLimit(conf.Limit)
	w.mu.Lock()
	if limit == w.limit {
		w.mu.Unlock()
		return nil
	}
	w.limit = limit
	w.mu.Unlock()
	w.log.Infof("Limit changed: %+v", limit)
	w.changed.Fire(limit)
	return nil
}

func (w *Watcher) Close() error {
	return stackerr.Wrap(w.fsw.Close())
}
