package discovery

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watcher keeps a live view of registered instances by watching the
// instances directory for file changes.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	logger  *log.Logger

	mu        sync.RWMutex
	instances []Instance
	changes   chan struct{}
	done      chan struct{}
}

// NewWatcher starts watching the given instances directory. The initial
// listing is loaded synchronously before any events arrive.
func NewWatcher(dir string, logger *log.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		dir:     dir,
		watcher: fsw,
		logger:  logger,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	w.reload()
	go w.loop()
	return w, nil
}

// Changes signals after each reload. The channel holds one pending
// notification; coalesced bursts deliver a single signal.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Instances returns the current snapshot of registered instances.
func (w *Watcher) Instances() []Instance {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Instance, len(w.instances))
	copy(out, w.instances)
	return out
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("instance watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload() {
	instances, err := listDir(w.dir)
	if err != nil {
		w.logger.Warn("failed to list instances", "error", err)
		return
	}
	w.mu.Lock()
	w.instances = instances
	w.mu.Unlock()

	select {
	case w.changes <- struct{}{}:
	default:
	}
}
