package vault

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// EventType classifies a store change notification.
type EventType int

const (
	// EventModify is a content change to an existing entity.
	EventModify EventType = iota
	// EventCreate is the appearance of a new entity.
	EventCreate
	// EventDelete is the removal (or rename-away) of an entity.
	EventDelete
)

// Event is one store change notification. The refresh scheduler treats
// all events identically; Type and Path exist for logging and cache
// maintenance only.
type Event struct {
	Type EventType
	Path string // vault-relative
}

// Watcher converts filesystem notifications under a vault root into
// store change events. Hidden directories are not watched.
type Watcher struct {
	vault   *FS
	watcher *fsnotify.Watcher
	events  chan Event
	done    chan struct{}
}

// NewWatcher starts watching the vault's directory tree.
func NewWatcher(v *FS) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		vault:   v,
		watcher: fsw,
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
	}

	if err := w.watchTree(v.root); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

// Events returns the change feed. The channel closes when the watcher
// is closed.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Close stops the watcher and closes the event feed.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	defer close(w.events)

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warningf("watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") {
		return
	}

	rel := w.vault.rel(ev.Name)

	switch {
	case ev.Op.Has(fsnotify.Create):
		// New directories need their own watch for nested changes.
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.watchTree(ev.Name)
		}
		w.emit(Event{Type: EventCreate, Path: rel})
	case ev.Op.Has(fsnotify.Write):
		w.emit(Event{Type: EventModify, Path: rel})
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		if c := w.vault.Cache(); c != nil {
			c.Evict(rel)
		}
		w.emit(Event{Type: EventDelete, Path: rel})
	}
}

// emit drops events rather than blocking: the scheduler only counts
// arrivals, so a dropped event during a burst changes nothing.
func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
	}
}
