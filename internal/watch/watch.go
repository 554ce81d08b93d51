// Package watch reports manifest changes under the contribution tree.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ShayCichocki/contribgate/internal/logging"
)

// Handler receives the absolute path of a created or modified manifest.
type Handler func(path string)

// Options configures a Watcher.
type Options struct {
	// Root is the directory watched recursively.
	Root string
	// Extension selects manifest files. Defaults to .yaml.
	Extension string
	// Debounce coalesces bursts of events per file. Defaults to 300ms.
	Debounce time.Duration
	Logger   logging.Logger
}

// Watcher calls a handler once per burst of writes to a manifest.
// Handler calls are serialized.
type Watcher struct {
	opts    Options
	handler Handler
	fsw     *fsnotify.Watcher
	log     logging.Logger

	mu     sync.Mutex
	timers map[string]*pending
	seq    uint64
	closed bool

	handlerMu sync.Mutex
}

// New starts watching opts.Root and every directory below it.
func New(opts Options, handler Handler) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watch: nil handler")
	}
	if opts.Extension == "" {
		opts.Extension = ".yaml"
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	if info, err := os.Stat(opts.Root); err != nil {
		return nil, fmt.Errorf("watch %s: %w", opts.Root, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: not a directory", opts.Root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		opts:    opts,
		handler: handler,
		fsw:     fsw,
		log:     log,
		timers:  make(map[string]*pending),
	}
	if err := w.addTree(opts.Root, false); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and its subdirectories. With schedule set, manifests
// already present are reported, since they may have been written before
// the directory was watched.
func (w *Watcher) addTree(dir string, schedule bool) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != w.opts.Root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if err := w.fsw.Add(p); err != nil {
				return fmt.Errorf("watch %s: %w", p, err)
			}
			w.log.Debug("watching directory", "path", p)
			return nil
		}
		if schedule && w.isManifest(p) {
			w.schedule(p)
		}
		return nil
	})
}

func (w *Watcher) isManifest(p string) bool {
	return filepath.Ext(p) == w.opts.Extension && !strings.HasPrefix(filepath.Base(p), ".")
}

// Run delivers events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
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
			w.log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name, true); err != nil {
				w.log.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !w.isManifest(event.Name) {
		return
	}
	w.schedule(event.Name)
}

// pending is the debounce timer of one path. A timer that already fired
// but lost the race for w.mu to a newer schedule carries a stale seq.
type pending struct {
	timer *time.Timer
	seq   uint64
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if p, ok := w.timers[path]; ok {
		p.timer.Stop()
	}
	w.seq++
	seq := w.seq
	w.timers[path] = &pending{
		timer: time.AfterFunc(w.opts.Debounce, func() { w.fire(path, seq) }),
		seq:   seq,
	}
}

func (w *Watcher) fire(path string, seq uint64) {
	w.mu.Lock()
	p, ok := w.timers[path]
	if !ok || p.seq != seq {
		w.mu.Unlock()
		return
	}
	delete(w.timers, path)
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.log.Debug("manifest changed", "path", path)
	w.handler(path)
}

// Close stops the watcher and drops pending events.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	for path, p := range w.timers {
		p.timer.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
	return w.fsw.Close()
}
