package filewatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/emfoursolutions/trakbridge-sub003/domain/port/outbound"
)

// FsWatcher delivers raw change events from the native OS notification API.
// Debouncing and filtering belong to the monitor service, which needs exact
// control over acceptance timing.
type FsWatcher struct {
	watcher     *fsnotify.Watcher
	events      chan outbound.FileChangeEvent
	errors      chan error
	watchedDirs map[string]bool
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	running     bool
	closed      chan struct{}
}

func NewFSWatcher() (outbound.FileWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	fw := &FsWatcher{
		watcher:     fsWatcher,
		events:      make(chan outbound.FileChangeEvent, 1000),
		errors:      make(chan error, 100),
		watchedDirs: make(map[string]bool),
		ctx:         ctx,
		cancel:      cancel,
		running:     false,
		closed:      make(chan struct{}),
	}

	go fw.processEvents()

	return fw, nil
}

func (fw *FsWatcher) Watch(ctx context.Context, path string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}

	// directories are watched as-is (non-recursive); for file paths we
	// watch the parent directory and let the consumer filter events
	dir := absPath
	if info, err := os.Stat(absPath); err != nil || !info.IsDir() {
		dir = filepath.Dir(absPath)
	}

	if fw.watchedDirs[dir] {
		return nil
	}

	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	fw.watchedDirs[dir] = true
	fw.running = true

	return nil
}

func (fw *FsWatcher) Stop() error {
	fw.mu.Lock()

	if !fw.running {
		fw.mu.Unlock()
		return nil
	}

	fw.cancel()

	if err := fw.watcher.Close(); err != nil {
		fw.mu.Unlock()
		return fmt.Errorf("failed to close fsnotify watcher: %w", err)
	}

	fw.running = false
	fw.mu.Unlock()

	// wait for the event goroutine to finish
	<-fw.closed

	close(fw.events)
	close(fw.errors)

	return nil
}

func (fw *FsWatcher) Events() <-chan outbound.FileChangeEvent {
	return fw.events
}

func (fw *FsWatcher) Errors() <-chan error {
	return fw.errors
}

func (fw *FsWatcher) IsWatching() bool {
	fw.mu.RLock()
	defer fw.mu.RUnlock()
	return fw.running
}

func (fw *FsWatcher) GetWatchedPaths() []string {
	fw.mu.RLock()
	defer fw.mu.RUnlock()

	paths := make([]string, 0, len(fw.watchedDirs))
	for path := range fw.watchedDirs {
		paths = append(paths, path)
	}
	return paths
}

// processEvents converts fsnotify events and forwards them until Stop
func (fw *FsWatcher) processEvents() {
	defer close(fw.closed)

	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			changeEvent := convertEvent(event)
			if changeEvent == nil {
				continue
			}

			select {
			case fw.events <- *changeEvent:
			case <-fw.ctx.Done():
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}

			select {
			case fw.errors <- err:
			case <-fw.ctx.Done():
				return
			}
		}
	}
}

// convertEvent maps an fsnotify event to a FileChangeEvent. Chmod-only
// events are dropped.
func convertEvent(event fsnotify.Event) *outbound.FileChangeEvent {
	var eventType string

	switch {
	case event.Has(fsnotify.Create):
		eventType = "create"
	case event.Has(fsnotify.Write):
		eventType = "modify"
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		eventType = "delete"
	default:
		return nil
	}

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	return &outbound.FileChangeEvent{
		FilePath:  event.Name,
		EventType: eventType,
		IsDir:     isDir,
	}
}
