package filewatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/emfoursolutions/trakbridge-sub003/domain/port/outbound"
)

// fileState is the per-path snapshot the poller diffs against.
type fileState struct {
	size    int64
	modTime time.Time
	isDir   bool
}

// PollWatcher implements the FileWatcher port by scanning watched paths on
// a fixed interval. It is the fallback for filesystems where native change
// notification is unavailable (network mounts, some containers).
type PollWatcher struct {
	interval time.Duration
	events   chan outbound.FileChangeEvent
	errors   chan error
	paths    map[string]bool
	known    map[string]fileState
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	running  bool
	closed   chan struct{}
	started  sync.Once
}

func NewPollWatcher(interval time.Duration) outbound.FileWatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &PollWatcher{
		interval: interval,
		events:   make(chan outbound.FileChangeEvent, 1000),
		errors:   make(chan error, 100),
		paths:    make(map[string]bool),
		known:    make(map[string]fileState),
		ctx:      ctx,
		cancel:   cancel,
		closed:   make(chan struct{}),
	}
}

func (pw *PollWatcher) Watch(ctx context.Context, path string) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}

	if pw.paths[absPath] {
		return nil
	}

	pw.paths[absPath] = true
	pw.snapshot(absPath)
	pw.running = true

	// the scan loop starts with the first watched path
	pw.started.Do(func() {
		go pw.scanLoop()
	})

	return nil
}

func (pw *PollWatcher) Stop() error {
	pw.mu.Lock()

	if !pw.running {
		pw.mu.Unlock()
		return nil
	}

	pw.cancel()
	pw.running = false
	pw.mu.Unlock()

	<-pw.closed

	close(pw.events)
	close(pw.errors)

	return nil
}

func (pw *PollWatcher) Events() <-chan outbound.FileChangeEvent {
	return pw.events
}

func (pw *PollWatcher) Errors() <-chan error {
	return pw.errors
}

func (pw *PollWatcher) IsWatching() bool {
	pw.mu.RLock()
	defer pw.mu.RUnlock()
	return pw.running
}

func (pw *PollWatcher) GetWatchedPaths() []string {
	pw.mu.RLock()
	defer pw.mu.RUnlock()

	paths := make([]string, 0, len(pw.paths))
	for path := range pw.paths {
		paths = append(paths, path)
	}
	return paths
}

func (pw *PollWatcher) scanLoop() {
	defer close(pw.closed)

	ticker := time.NewTicker(pw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-pw.ctx.Done():
			return
		case <-ticker.C:
			pw.scan()
		}
	}
}

// scan diffs the current filesystem state against the last snapshot and
// emits create/modify/delete events.
func (pw *PollWatcher) scan() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	seen := make(map[string]fileState)

	for path := range pw.paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		if info.IsDir() {
			entries, err := os.ReadDir(path)
			if err != nil {
				pw.sendError(fmt.Errorf("failed to scan %s: %w", path, err))
				continue
			}
			for _, entry := range entries {
				entryInfo, err := entry.Info()
				if err != nil {
					continue
				}
				full := filepath.Join(path, entry.Name())
				seen[full] = fileState{
					size:    entryInfo.Size(),
					modTime: entryInfo.ModTime(),
					isDir:   entry.IsDir(),
				}
			}
		} else {
			seen[path] = fileState{
				size:    info.Size(),
				modTime: info.ModTime(),
				isDir:   false,
			}
		}
	}

	for path, state := range seen {
		prev, existed := pw.known[path]
		switch {
		case !existed:
			pw.sendEvent(path, "create", state.isDir)
		case state.modTime != prev.modTime || state.size != prev.size:
			pw.sendEvent(path, "modify", state.isDir)
		}
	}

	for path, state := range pw.known {
		if _, still := seen[path]; !still {
			pw.sendEvent(path, "delete", state.isDir)
		}
	}

	pw.known = seen
}

// snapshot primes the known state for a newly watched path so pre-existing
// files do not surface as create events.
func (pw *PollWatcher) snapshot(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	if !info.IsDir() {
		pw.known[path] = fileState{size: info.Size(), modTime: info.ModTime()}
		return
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return
	}
	for _, entry := range entries {
		entryInfo, err := entry.Info()
		if err != nil {
			continue
		}
		full := filepath.Join(path, entry.Name())
		pw.known[full] = fileState{
			size:    entryInfo.Size(),
			modTime: entryInfo.ModTime(),
			isDir:   entry.IsDir(),
		}
	}
}

func (pw *PollWatcher) sendEvent(path, eventType string, isDir bool) {
	event := outbound.FileChangeEvent{
		FilePath:  path,
		EventType: eventType,
		IsDir:     isDir,
	}

	select {
	case pw.events <- event:
	default:
		// chan full, drop
	}
}

func (pw *PollWatcher) sendError(err error) {
	select {
	case pw.errors <- err:
	default:
	}
}
