package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, EnvDevelopment, cfg.General.Environment)
	assert.True(t, cfg.General.Debug)
	assert.Equal(t, 8, cfg.Application.MaxWorkerThreads)
	assert.Equal(t, 100, cfg.Application.MaxConcurrentStreams)
	assert.Equal(t, DevSecretKeyPlaceholder, cfg.Security.SecretKey)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, 1.0, cfg.Monitor.DebounceSeconds)
}

func TestIsValidLogLevel(t *testing.T) {
	for _, level := range LogLevels {
		assert.True(t, IsValidLogLevel(level), level)
	}
	assert.True(t, IsValidLogLevel("warning"), "case insensitive")
	assert.False(t, IsValidLogLevel("TRACE"))
	assert.False(t, IsValidLogLevel(""))
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("general: [broken"), 0644))

	_, err := LoadConfig(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `general:
  environment: production
  debug: false
application:
  maxWorkerThreads: 16
logging:
  level: WARNING
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.General.Environment)
	assert.False(t, cfg.General.Debug)
	assert.Equal(t, 16, cfg.Application.MaxWorkerThreads)
	assert.Equal(t, "WARNING", cfg.Logging.Level)

	// untouched sections keep their defaults
	assert.Equal(t, 100, cfg.Application.MaxConcurrentStreams)
	assert.Equal(t, 10, cfg.Database.PoolSize)
}

func TestLoadConfig_EnvironmentVariablesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "application:\n  maxWorkerThreads: 16\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("MAX_WORKER_THREADS", "42")
	t.Setenv("SECRET_KEY", "env-provided-secret-key")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.Application.MaxWorkerThreads)
	assert.Equal(t, "env-provided-secret-key", cfg.Security.SecretKey)
}

func TestLoadConfig_EnvFileOverlay(t *testing.T) {
	dir := t.TempDir()

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("LOG_LEVEL=ERROR\nDEBUG=false\n"), 0644))

	path := filepath.Join(dir, "config.yaml")
	content := "monitor:\n  envFile: " + envPath + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ERROR", cfg.Logging.Level)
	assert.False(t, cfg.General.Debug)
}

func TestLoadConfig_InvalidEnvValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("general: {}\n"), 0644))

	t.Setenv("MAX_CONNECTIONS", "plenty")

	_, err := LoadConfig(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_CONNECTIONS")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generated", "config.yaml")

	original := DefaultConfig()
	original.General.Environment = EnvTesting
	original.General.Testing = true
	original.Application.MaxConcurrentStreams = 250

	require.NoError(t, SaveConfig(original, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, EnvTesting, loaded.General.Environment)
	assert.True(t, loaded.General.Testing)
	assert.Equal(t, 250, loaded.Application.MaxConcurrentStreams)
}

func TestFileProvider_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: INFO\n"), 0644))

	provider, err := NewFileProvider(path)
	require.NoError(t, err)

	assert.True(t, provider.Reloadable())
	assert.Equal(t, path, provider.SourcePath())
	assert.Equal(t, "INFO", provider.Current().Logging.Level)

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: DEBUG\n"), 0644))

	fresh, err := provider.Reload()
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", fresh.Logging.Level)
	assert.Equal(t, "DEBUG", provider.Current().Logging.Level)
}

func TestFileProvider_FailedReloadKeepsPreviousConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: INFO\n"), 0644))

	provider, err := NewFileProvider(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("logging: [broken"), 0644))

	_, err = provider.Reload()
	require.Error(t, err)
	assert.Equal(t, "INFO", provider.Current().Logging.Level)
}

func TestStaticProvider_DoesNotReload(t *testing.T) {
	provider := NewStaticProvider(DefaultConfig())

	assert.False(t, provider.Reloadable())
	assert.Empty(t, provider.SourcePath())

	_, err := provider.Reload()
	assert.Error(t, err)
}
