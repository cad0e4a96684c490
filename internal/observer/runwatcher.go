package observer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RunChangeCallback is called when run documents change.
// runIDs are the identifiers of the runs whose files were written.
type RunChangeCallback func(runIDs []string)

// RunWatcher monitors the runs directory for new or updated run
// documents, so the web UI can pick up runs started from the CLI
// or the scheduler without polling.
type RunWatcher struct {
	watcher  *fsnotify.Watcher
	callback RunChangeCallback
	debounce time.Duration

	// Debounce state
	pending map[string]struct{}
	timer   *time.Timer
	mu      sync.Mutex

	cancel context.CancelFunc
}

// NewRunWatcher creates a watcher over the given runs directory
func NewRunWatcher(runsDir string, callback RunChangeCallback) (*RunWatcher, error) {
	if err := os.MkdirAll(runsDir, 0o755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(runsDir); err != nil {
		watcher.Close()
		return nil, err
	}

	rw := &RunWatcher{
		watcher:  watcher,
		callback: callback,
		debounce: 500 * time.Millisecond, // Debounce rapid writes
		pending:  make(map[string]struct{}),
	}

	return rw, nil
}

// Start begins watching for file changes
func (rw *RunWatcher) Start(ctx context.Context) {
	ctx, rw.cancel = context.WithCancel(ctx)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-rw.watcher.Events:
				if !ok {
					return
				}
				rw.handleEvent(event)
			case _, ok := <-rw.watcher.Errors:
				if !ok {
					return
				}
				// Keep watching on errors
			}
		}
	}()
}

// Stop stops watching for file changes
func (rw *RunWatcher) Stop() {
	if rw.cancel != nil {
		rw.cancel()
	}
	rw.watcher.Close()
}

func (rw *RunWatcher) handleEvent(event fsnotify.Event) {
	// Only care about run documents
	if !strings.HasSuffix(event.Name, ".json") {
		return
	}

	// Only care about writes and creates
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	runID := strings.TrimSuffix(filepath.Base(event.Name), ".json")

	rw.mu.Lock()
	defer rw.mu.Unlock()

	rw.pending[runID] = struct{}{}

	// Reset or start debounce timer
	if rw.timer != nil {
		rw.timer.Stop()
	}
	rw.timer = time.AfterFunc(rw.debounce, rw.flush)
}

func (rw *RunWatcher) flush() {
	rw.mu.Lock()
	pending := rw.pending
	rw.pending = make(map[string]struct{})
	rw.mu.Unlock()

	if rw.callback == nil || len(pending) == 0 {
		return
	}

	runIDs := make([]string, 0, len(pending))
	for id := range pending {
		runIDs = append(runIDs, id)
	}
	rw.callback(runIDs)
}

// SetDebounce sets the debounce duration for batching file changes
func (rw *RunWatcher) SetDebounce(d time.Duration) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	rw.debounce = d
}
