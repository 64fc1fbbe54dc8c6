package workspace

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"sonarbind/internal/events"
	"sonarbind/internal/logging"
)

// Watcher observes scope roots for changes to scanner configuration files
// and publishes a ClueFilesChanged event for the affected scopes. Bursts of
// writes are coalesced through a short debounce window.
type Watcher struct {
	service   *Service
	bus       *events.Bus
	logger    *logging.Logger
	filenames map[string]bool

	fw       *fsnotify.Watcher
	debounce *debouncer

	mu      sync.Mutex
	pending map[string]bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher creates a watcher for the given clue filenames.
func NewWatcher(service *Service, bus *events.Bus, logger *logging.Logger, filenames []string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(filenames))
	for _, n := range filenames {
		set[n] = true
	}

	return &Watcher{
		service:   service,
		bus:       bus,
		logger:    logger,
		filenames: set,
		fw:        fw,
		debounce:  newDebouncer(500 * time.Millisecond),
		pending:   make(map[string]bool),
		done:      make(chan struct{}),
	}, nil
}

// WatchScope starts watching a scope's root directory. Only the root itself
// is watched: scanner configuration files live at the top of a workspace.
func (w *Watcher) WatchScope(scopeID, root string) error {
	if err := w.fw.Add(root); err != nil {
		return err
	}
	w.logger.Debug("Watching scope root", map[string]interface{}{
		"scope": scopeID,
		"root":  root,
	})
	return nil
}

// Start launches the event loop.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if !w.filenames[filepath.Base(ev.Name)] {
				continue
			}
			w.markChanged(ev.Name)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", map[string]interface{}{
				"error": err.Error(),
			})

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) markChanged(path string) {
	scopes := w.service.ScopesForPath(path)
	if len(scopes) == 0 {
		return
	}

	w.mu.Lock()
	for _, id := range scopes {
		w.pending[id] = true
	}
	w.mu.Unlock()

	w.debounce.trigger(w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	ids := make([]string, 0, len(w.pending))
	for id := range w.pending {
		ids = append(ids, id)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	w.logger.Debug("Scanner configuration files changed", map[string]interface{}{
		"scopes": ids,
	})
	w.bus.Publish(events.ClueFilesChanged{ScopeIDs: ids})
}

// Stop shuts the watcher down and waits for the loop to exit.
func (w *Watcher) Stop() {
	close(w.done)
	w.debounce.cancel()
	_ = w.fw.Close()
	w.wg.Wait()
}

// debouncer delays execution until a quiet period has passed.
type debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	timer   *time.Timer
	pending func()
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay}
}

// trigger schedules or resets the debounced function.
func (d *debouncer) trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = fn
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		fn := d.pending
		d.pending = nil
		d.mu.Unlock()

		if fn != nil {
			fn()
		}
	})
}

// cancel drops any pending execution.
func (d *debouncer) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
	}
}
