package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emfoursolutions/trakbridge-sub003/config"
	"github.com/emfoursolutions/trakbridge-sub003/domain/port/outbound"
)

// Mock implementations
type mockLogger struct{}

func (m *mockLogger) Info(msg string, args ...any)  {}
func (m *mockLogger) Error(msg string, args ...any) {}
func (m *mockLogger) Debug(msg string, args ...any) {}
func (m *mockLogger) Warn(msg string, args ...any)  {}

type mockWatcher struct {
	events  chan outbound.FileChangeEvent
	errors  chan error
	mu      sync.Mutex
	watched []string
	running bool
}

func newMockWatcher() *mockWatcher {
	return &mockWatcher{
		events: make(chan outbound.FileChangeEvent, 10),
		errors: make(chan error, 10),
	}
}

func (m *mockWatcher) Watch(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watched = append(m.watched, path)
	m.running = true
	return nil
}

func (m *mockWatcher) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return nil
}

func (m *mockWatcher) Events() <-chan outbound.FileChangeEvent { return m.events }
func (m *mockWatcher) Errors() <-chan error                    { return m.errors }

func (m *mockWatcher) IsWatching() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *mockWatcher) GetWatchedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.watched...)
}

// writeConfigFile drops a loadable YAML config into dir and returns its path.
func writeConfigFile(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "config.yaml")
	content := "general:\n  environment: development\nlogging:\n  level: INFO\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newFileProvider(t *testing.T, dir string) *config.Provider {
	t.Helper()

	provider, err := config.NewFileProvider(writeConfigFile(t, dir))
	require.NoError(t, err)
	return provider
}

func TestReload_UnsupportedProviderSkipsCallbacks(t *testing.T) {
	provider := config.NewStaticProvider(config.DefaultConfig())
	svc := NewConfigMonitorService(provider, newMockWatcher(), nil, &mockLogger{}, MonitorOptions{})

	var calls int
	svc.AddReloadCallback(func(cfg *config.Config) error {
		calls++
		return nil
	})

	svc.Reload()

	assert.Equal(t, 0, calls)
	assert.Equal(t, uint64(0), svc.GetStatus().ReloadTotal)
}

func TestReload_InvokesCallbacksInRegistrationOrder(t *testing.T) {
	dir := t.TempDir()
	provider := newFileProvider(t, dir)
	svc := NewConfigMonitorService(provider, newMockWatcher(), nil, &mockLogger{}, MonitorOptions{WatchDir: dir})

	var mu sync.Mutex
	var order []string

	record := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	svc.AddReloadCallback(func(cfg *config.Config) error {
		record("first")
		return nil
	})
	svc.AddReloadCallback(func(cfg *config.Config) error {
		record("second")
		return fmt.Errorf("callback failure")
	})
	svc.AddReloadCallback(func(cfg *config.Config) error {
		record("third")
		panic("callback panic")
	})
	svc.AddReloadCallback(func(cfg *config.Config) error {
		record("fourth")
		return nil
	})

	svc.Reload()

	// a failing or panicking callback never blocks the ones after it
	assert.Equal(t, []string{"first", "second", "third", "fourth"}, order)

	status := svc.GetStatus()
	assert.Equal(t, uint64(1), status.ReloadTotal)
	assert.Equal(t, uint64(0), status.ReloadFailed)
	assert.False(t, status.LastReloadTime.IsZero())
}

func TestReload_FailedReloadSkipsCallbacks(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfigFile(t, dir)
	provider, err := config.NewFileProvider(configPath)
	require.NoError(t, err)

	svc := NewConfigMonitorService(provider, newMockWatcher(), nil, &mockLogger{}, MonitorOptions{WatchDir: dir})

	var calls int
	svc.AddReloadCallback(func(cfg *config.Config) error {
		calls++
		return nil
	})

	// corrupt the backing file so the reload fails
	require.NoError(t, os.WriteFile(configPath, []byte("general: [broken"), 0644))

	svc.Reload()

	assert.Equal(t, 0, calls)
	status := svc.GetStatus()
	assert.Equal(t, uint64(1), status.ReloadTotal)
	assert.Equal(t, uint64(1), status.ReloadFailed)

	// previous configuration remains in effect
	assert.Equal(t, "development", provider.Current().General.Environment)
}

func TestReload_CallbacksReceiveFreshConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfigFile(t, dir)
	provider, err := config.NewFileProvider(configPath)
	require.NoError(t, err)

	svc := NewConfigMonitorService(provider, newMockWatcher(), nil, &mockLogger{}, MonitorOptions{WatchDir: dir})

	var seen string
	svc.AddReloadCallback(func(cfg *config.Config) error {
		seen = cfg.Logging.Level
		return nil
	})

	content := "general:\n  environment: development\nlogging:\n  level: DEBUG\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	svc.Reload()

	assert.Equal(t, "DEBUG", seen)
	assert.Equal(t, "DEBUG", provider.Current().Logging.Level)
}

func TestAddRemoveReloadCallback(t *testing.T) {
	provider := config.NewStaticProvider(config.DefaultConfig())
	svc := NewConfigMonitorService(provider, newMockWatcher(), nil, &mockLogger{}, MonitorOptions{})

	cb := func(cfg *config.Config) error { return nil }

	// duplicate registrations of the same function are permitted
	id1 := svc.AddReloadCallback(cb)
	id2 := svc.AddReloadCallback(cb)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, svc.GetStatus().CallbackCount)

	svc.RemoveReloadCallback(id1)
	assert.Equal(t, 1, svc.GetStatus().CallbackCount)

	// removing an unknown ID is a no-op
	svc.RemoveReloadCallback("no-such-id")
	assert.Equal(t, 1, svc.GetStatus().CallbackCount)
}

func TestDebounceAccept(t *testing.T) {
	provider := config.NewStaticProvider(config.DefaultConfig())
	svc := NewConfigMonitorService(provider, newMockWatcher(), nil, &mockLogger{},
		MonitorOptions{DebounceWindow: time.Second})

	base := time.Now()
	path := "/config/streams.yaml"

	assert.True(t, svc.debounceAccept(path, base))
	assert.False(t, svc.debounceAccept(path, base.Add(999*time.Millisecond)))

	// an event at exactly the window boundary is accepted
	assert.True(t, svc.debounceAccept(path, base.Add(time.Second)))

	// a different path has its own window
	assert.True(t, svc.debounceAccept("/config/other.yaml", base.Add(time.Millisecond)))
}

func TestDebounce_WindowDoesNotSlideOnSuppressedEvents(t *testing.T) {
	provider := config.NewStaticProvider(config.DefaultConfig())
	svc := NewConfigMonitorService(provider, newMockWatcher(), nil, &mockLogger{},
		MonitorOptions{DebounceWindow: time.Second})

	base := time.Now()
	path := "/config/streams.yaml"

	require.True(t, svc.debounceAccept(path, base))
	require.False(t, svc.debounceAccept(path, base.Add(600*time.Millisecond)))

	// 1.1s after the accepted event, 500ms after the suppressed one:
	// accepted, because suppression never updated the window
	assert.True(t, svc.debounceAccept(path, base.Add(1100*time.Millisecond)))
}

func TestQualifies(t *testing.T) {
	provider := config.NewStaticProvider(config.DefaultConfig())
	svc := NewConfigMonitorService(provider, newMockWatcher(), nil, &mockLogger{}, MonitorOptions{})

	tests := []struct {
		name  string
		event outbound.FileChangeEvent
		want  bool
	}{
		{"yaml file", outbound.FileChangeEvent{FilePath: "/etc/tb/config.yaml", EventType: "modify"}, true},
		{"yml file", outbound.FileChangeEvent{FilePath: "/etc/tb/streams.yml", EventType: "create"}, true},
		{"env file", outbound.FileChangeEvent{FilePath: "/etc/tb/.env", EventType: "modify"}, true},
		{"uppercase extension", outbound.FileChangeEvent{FilePath: "/etc/tb/CONFIG.YAML", EventType: "modify"}, true},
		{"text file", outbound.FileChangeEvent{FilePath: "/etc/tb/readme.txt", EventType: "modify"}, false},
		{"no extension", outbound.FileChangeEvent{FilePath: "/etc/tb/config", EventType: "modify"}, false},
		{"directory event", outbound.FileChangeEvent{FilePath: "/etc/tb/sub.yaml", EventType: "create", IsDir: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := svc.qualifies(tt.event)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStartStop(t *testing.T) {
	dir := t.TempDir()
	provider := newFileProvider(t, dir)
	watcher := newMockWatcher()
	svc := NewConfigMonitorService(provider, watcher, nil, &mockLogger{}, MonitorOptions{WatchDir: dir})

	require.NoError(t, svc.Start(context.Background()))
	assert.True(t, svc.GetStatus().Monitoring)
	assert.Contains(t, watcher.GetWatchedPaths(), dir)

	// second start is a logged no-op
	require.NoError(t, svc.Start(context.Background()))

	require.NoError(t, svc.Stop())
	assert.False(t, svc.GetStatus().Monitoring)

	// stopping a stopped monitor is safe
	require.NoError(t, svc.Stop())
}

func TestStart_MissingDirectoryDoesNotStart(t *testing.T) {
	dir := t.TempDir()
	provider := newFileProvider(t, dir)
	svc := NewConfigMonitorService(provider, newMockWatcher(), nil, &mockLogger{},
		MonitorOptions{WatchDir: filepath.Join(dir, "missing")})

	err := svc.Start(context.Background())

	assert.Error(t, err)
	assert.False(t, svc.GetStatus().Monitoring)
}

func TestWatchEventTriggersReload(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfigFile(t, dir)
	provider, err := config.NewFileProvider(configPath)
	require.NoError(t, err)

	watcher := newMockWatcher()
	svc := NewConfigMonitorService(provider, watcher, nil, &mockLogger{}, MonitorOptions{WatchDir: dir})

	var mu sync.Mutex
	var calls int
	svc.AddReloadCallback(func(cfg *config.Config) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	watcher.events <- outbound.FileChangeEvent{FilePath: configPath, EventType: "modify"}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, 2*time.Second, 10*time.Millisecond)

	// an unrelated file never triggers a reload
	watcher.events <- outbound.FileChangeEvent{FilePath: filepath.Join(dir, "notes.txt"), EventType: "modify"}

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}

func TestGetStatus_ListsConfigFiles(t *testing.T) {
	dir := t.TempDir()
	provider := newFileProvider(t, dir) // writes config.yaml
	require.NoError(t, os.WriteFile(filepath.Join(dir, "streams.yml"), []byte("a: 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	svc := NewConfigMonitorService(provider, newMockWatcher(), nil, &mockLogger{}, MonitorOptions{WatchDir: dir})

	status := svc.GetStatus()

	require.Len(t, status.ConfigFiles, 2)
	names := []string{status.ConfigFiles[0].Name, status.ConfigFiles[1].Name}
	assert.ElementsMatch(t, []string{"config.yaml", "streams.yml"}, names)
	for _, f := range status.ConfigFiles {
		assert.Greater(t, f.Size, int64(0))
		assert.False(t, f.ModTime.IsZero())
	}
}
