package filewatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emfoursolutions/trakbridge-sub003/domain/port/outbound"
)

func waitForEvent(t *testing.T, watcher outbound.FileWatcher, timeout time.Duration) *outbound.FileChangeEvent {
	t.Helper()

	select {
	case event := <-watcher.Events():
		return &event
	case err := <-watcher.Errors():
		t.Fatalf("Unexpected watcher error: %v", err)
		return nil
	case <-time.After(timeout):
		return nil
	}
}

func TestPollWatcher_DetectsCreateModifyDelete(t *testing.T) {
	tempDir := t.TempDir()

	watcher := NewPollWatcher(50 * time.Millisecond)
	defer watcher.Stop()

	require.NoError(t, watcher.Watch(context.Background(), tempDir))
	assert.True(t, watcher.IsWatching())

	testFile := filepath.Join(tempDir, "config.yaml")
	require.NoError(t, os.WriteFile(testFile, []byte("logging:\n  level: INFO\n"), 0644))

	event := waitForEvent(t, watcher, 2*time.Second)
	require.NotNil(t, event, "expected a create event")
	assert.Equal(t, "create", event.EventType)
	assert.Equal(t, testFile, event.FilePath)

	// size change guarantees detection regardless of mtime granularity
	require.NoError(t, os.WriteFile(testFile, []byte("logging:\n  level: DEBUG\n  dir: ./logs\n"), 0644))

	event = waitForEvent(t, watcher, 2*time.Second)
	require.NotNil(t, event, "expected a modify event")
	assert.Equal(t, "modify", event.EventType)

	require.NoError(t, os.Remove(testFile))

	event = waitForEvent(t, watcher, 2*time.Second)
	require.NotNil(t, event, "expected a delete event")
	assert.Equal(t, "delete", event.EventType)
}

func TestPollWatcher_PreExistingFilesAreNotReported(t *testing.T) {
	tempDir := t.TempDir()
	existing := filepath.Join(tempDir, "existing.yaml")
	require.NoError(t, os.WriteFile(existing, []byte("a: 1\n"), 0644))

	watcher := NewPollWatcher(50 * time.Millisecond)
	defer watcher.Stop()

	require.NoError(t, watcher.Watch(context.Background(), tempDir))

	event := waitForEvent(t, watcher, 300*time.Millisecond)
	assert.Nil(t, event, "pre-existing files must not surface as create events")
}

func TestPollWatcher_StopIsIdempotent(t *testing.T) {
	watcher := NewPollWatcher(50 * time.Millisecond)

	require.NoError(t, watcher.Watch(context.Background(), t.TempDir()))
	require.True(t, watcher.IsWatching())

	require.NoError(t, watcher.Stop())
	assert.False(t, watcher.IsWatching())
	require.NoError(t, watcher.Stop())
}

func TestPollWatcher_WatchSingleFile(t *testing.T) {
	tempDir := t.TempDir()
	envFile := filepath.Join(tempDir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DEBUG=true\n"), 0644))

	watcher := NewPollWatcher(50 * time.Millisecond)
	defer watcher.Stop()

	require.NoError(t, watcher.Watch(context.Background(), envFile))

	require.NoError(t, os.WriteFile(envFile, []byte("DEBUG=false\nLOG_LEVEL=ERROR\n"), 0644))

	event := waitForEvent(t, watcher, 2*time.Second)
	require.NotNil(t, event, "expected a modify event")
	assert.Equal(t, "modify", event.EventType)
	assert.Equal(t, envFile, event.FilePath)
}
