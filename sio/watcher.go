package sio

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Comcast/morphs/core"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a Watcher waits for a directory to
// stop changing before reloading.
var DefaultDebounce = 200 * time.Millisecond

// Watcher rereads a directory of morph files when they change.
//
// Editors tend to write files in bursts, so changes are debounced.
type Watcher struct {
	Dir      string
	Debounce time.Duration

	// Reload gets the morphs (and any errors) from the directory.
	// It's called from the Watcher's goroutine.
	Reload func(morphs []*core.Morph, errs []error)

	Verbose bool

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

func NewWatcher(dir string, reload func([]*core.Morph, []error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		Dir:      dir,
		Debounce: DefaultDebounce,
		Reload:   reload,
		watcher:  fw,
		done:     make(chan struct{}),
	}, nil
}

func (w *Watcher) logf(format string, args ...interface{}) {
	if w.Verbose {
		log.Printf(format, args...)
	}
}

// Start adds the directory to the watch list and starts the event
// loop.  The loop stops when ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.Dir); err != nil {
		w.watcher.Close()
		return err
	}
	go w.loop(ctx)
	return nil
}

// Stop closes the underlying watcher.  Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.Stop()

	var (
		timer   = time.NewTimer(w.Debounce)
		pending bool
	)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("warning: watching %s: %s", w.Dir, err)
		case e, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !core.IsMorphFile(e.Name) {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logf("Watcher %s %s", e.Op, e.Name)
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.Debounce)
			pending = true
		case <-timer.C:
			pending = false
			morphs, errs := core.ReadMorphDir(w.Dir)
			w.logf("Watcher reloading %d morphs from %s (%d errors)", len(morphs), w.Dir, len(errs))
			if w.Reload != nil {
				w.Reload(morphs, errs)
			}
		}
	}
}
