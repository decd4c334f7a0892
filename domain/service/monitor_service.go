package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/emfoursolutions/trakbridge-sub003/config"
	"github.com/emfoursolutions/trakbridge-sub003/domain/model"
	"github.com/emfoursolutions/trakbridge-sub003/domain/port/inbound"
	"github.com/emfoursolutions/trakbridge-sub003/domain/port/outbound"
)

// watchedExtensions is the allow-list for qualifying events.
var watchedExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".env":  true,
}

// MonitorOptions configures the watch loop.
type MonitorOptions struct {
	// WatchDir is the configuration directory, watched non-recursively.
	WatchDir string

	// EnvFile is an optional standalone file watched in addition to WatchDir.
	EnvFile string

	// DebounceWindow is the minimum interval between accepted events for
	// the same path. Defaults to one second.
	DebounceWindow time.Duration
}

type callbackEntry struct {
	id string
	fn inbound.ReloadCallback
}

type configMonitorService struct {
	provider  *config.Provider
	watcher   outbound.FileWatcher
	machineID outbound.MachineIDService
	logger    outbound.Logger
	opts      MonitorOptions

	mu           sync.RWMutex
	callbacks    []callbackEntry
	lastAccepted map[string]time.Time
	lastReload   time.Time
	running      bool

	reloadTotal  atomic.Uint64
	reloadFailed atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	closed chan struct{}
}

func NewConfigMonitorService(
	provider *config.Provider,
	watcher outbound.FileWatcher,
	machineID outbound.MachineIDService,
	logger outbound.Logger,
	opts MonitorOptions,
) *configMonitorService {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = time.Second
	}

	return &configMonitorService{
		provider:     provider,
		watcher:      watcher,
		machineID:    machineID,
		logger:       logger,
		opts:         opts,
		lastAccepted: make(map[string]time.Time),
	}
}

// begins watching the configuration directory and processing events.
// Startup problems are logged and leave the monitor stopped.
func (s *configMonitorService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("Config monitor already running")
		return nil
	}

	info, err := os.Stat(s.opts.WatchDir)
	if err != nil || !info.IsDir() {
		s.logger.Error("Config watch directory does not exist, monitoring disabled",
			"dir", s.opts.WatchDir)
		return model.ErrWatchDirNotFound
	}

	if err := s.watcher.Watch(ctx, s.opts.WatchDir); err != nil {
		s.logger.Error("Failed to watch config directory",
			"dir", s.opts.WatchDir, "error", err)
		return err
	}

	if s.opts.EnvFile != "" {
		// best effort: a missing .env file is not a startup failure
		if err := s.watcher.Watch(ctx, s.opts.EnvFile); err != nil {
			s.logger.Warn("Failed to watch env file",
				"path", s.opts.EnvFile, "error", err)
		}
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.closed = make(chan struct{})

	go s.processEvents()

	s.running = true
	s.logger.Info("Config monitor started",
		"dir", s.opts.WatchDir, "debounce", s.opts.DebounceWindow.String())
	return nil
}

// halts monitoring and blocks until the watch loop has exited.
// Safe to call when not running.
func (s *configMonitorService) Stop() error {
	s.mu.Lock()

	if !s.running {
		s.mu.Unlock()
		return nil
	}

	s.logger.Info("Stopping config monitor")

	s.cancel()

	if err := s.watcher.Stop(); err != nil {
		s.logger.Error("Error stopping file watcher", "error", err)
	}

	closed := s.closed
	s.running = false
	s.mu.Unlock()

	// join semantics: wait for the watch loop goroutine
	<-closed

	s.logger.Info("Config monitor stopped")
	return nil
}

// handles file system events in a loop
func (s *configMonitorService) processEvents() {
	defer close(s.closed)

	for {
		select {
		case <-s.ctx.Done():
			return

		case event, ok := <-s.watcher.Events():
			if !ok {
				return
			}
			s.handleEvent(event)

		case err, ok := <-s.watcher.Errors():
			if !ok {
				return
			}
			s.logger.Error("File watcher error", "error", err)
		}
	}
}

func (s *configMonitorService) handleEvent(event outbound.FileChangeEvent) {
	path, ok := s.qualifies(event)
	if !ok {
		return
	}

	if !s.debounceAccept(path, time.Now()) {
		s.logger.Debug("Suppressed duplicate config event", "path", path)
		return
	}

	s.logger.Info("Config file changed, triggering reload",
		"path", path, "type", event.EventType)
	s.Reload()
}

// qualifies applies the event filter: directory-level events are ignored,
// and the path must match the watched extension set. Path resolution
// failures are logged distinctly from extension rejections; both drop
// the event.
func (s *configMonitorService) qualifies(event outbound.FileChangeEvent) (string, bool) {
	if event.IsDir {
		return "", false
	}

	path, err := filepath.Abs(event.FilePath)
	if err != nil {
		s.logger.Debug("Failed to resolve event path, ignoring",
			"path", event.FilePath, "error", err)
		return "", false
	}

	if !watchedExtensions[strings.ToLower(filepath.Ext(path))] {
		return "", false
	}

	return path, true
}

// debounceAccept reports whether an event for path is accepted. The
// last-accepted map is updated only on acceptance, so the window does not
// slide on suppressed events.
func (s *configMonitorService) debounceAccept(path string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.lastAccepted[path]; ok && now.Sub(last) < s.opts.DebounceWindow {
		return false
	}

	s.lastAccepted[path] = now
	return true
}

// Reload re-reads the configuration through the provider and fans out to
// registered callbacks. Reload failures abort before any callback runs;
// callback failures are isolated from each other.
func (s *configMonitorService) Reload() {
	if !s.provider.Reloadable() {
		s.logger.Warn("Configuration provider does not support reload, skipping")
		return
	}

	s.reloadTotal.Add(1)

	cfg, err := s.provider.Reload()
	if err != nil {
		s.reloadFailed.Add(1)
		s.logger.Error("Configuration reload failed, previous config remains active",
			"error", err)
		return
	}

	s.mu.Lock()
	s.lastReload = time.Now()
	callbacks := make([]callbackEntry, len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.mu.Unlock()

	s.logger.Info("Configuration reloaded", "callbacks", len(callbacks))

	for _, entry := range callbacks {
		s.invokeCallback(entry, cfg)
	}
}

// invokeCallback runs one callback, converting errors and panics into log
// entries so one bad callback cannot block the others or kill the loop.
func (s *configMonitorService) invokeCallback(entry callbackEntry, cfg *config.Config) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Reload callback panicked", "id", entry.id, "panic", r)
		}
	}()

	if err := entry.fn(cfg); err != nil {
		s.logger.Error("Reload callback failed", "id", entry.id, "error", err)
	}
}

// AddReloadCallback registers cb and returns its registration ID.
// Registering the same function more than once is allowed.
func (s *configMonitorService) AddReloadCallback(cb inbound.ReloadCallback) string {
	id := uuid.NewString()

	s.mu.Lock()
	s.callbacks = append(s.callbacks, callbackEntry{id: id, fn: cb})
	s.mu.Unlock()

	s.logger.Debug("Registered reload callback", "id", id)
	return id
}

// RemoveReloadCallback unregisters by ID; unknown IDs are a no-op.
func (s *configMonitorService) RemoveReloadCallback(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, entry := range s.callbacks {
		if entry.id == id {
			s.callbacks = append(s.callbacks[:i], s.callbacks[i+1:]...)
			s.logger.Debug("Removed reload callback", "id", id)
			return
		}
	}
}

// GetStatus returns a read-only snapshot of the monitor.
func (s *configMonitorService) GetStatus() model.MonitorStatus {
	s.mu.RLock()
	status := model.MonitorStatus{
		Monitoring:     s.running,
		WatchDir:       s.opts.WatchDir,
		EnvFile:        s.opts.EnvFile,
		CallbackCount:  len(s.callbacks),
		LastReloadTime: s.lastReload,
	}
	s.mu.RUnlock()

	status.ReloadTotal = s.reloadTotal.Load()
	status.ReloadFailed = s.reloadFailed.Load()
	status.ConfigFiles = s.listConfigFiles()

	if s.machineID != nil {
		if id, err := s.machineID.GetMachineID(); err == nil {
			status.NodeID = id
		}
	}

	return status
}

// listConfigFiles returns the YAML files currently in the watched directory.
func (s *configMonitorService) listConfigFiles() []model.ConfigFileInfo {
	entries, err := os.ReadDir(s.opts.WatchDir)
	if err != nil {
		s.logger.Debug("Failed to list config directory",
			"dir", s.opts.WatchDir, "error", err)
		return nil
	}

	files := make([]model.ConfigFileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, model.ConfigFileInfo{
			Name:    entry.Name(),
			Path:    filepath.Join(s.opts.WatchDir, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return files
}
