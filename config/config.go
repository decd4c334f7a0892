package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DevSecretKeyPlaceholder is the secret key shipped in the sample configuration.
// Deployments must replace it; the validator flags it.
const DevSecretKeyPlaceholder = "dev-secret-key-change-in-production"

// Recognized deployment environments. Any other value disables the
// environment-specific validation overlays.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTesting     = "testing"
)

// Config holds the full service configuration
type Config struct {
	// General configuration
	General struct {
		// Environment selects the deployment profile
		Environment string `yaml:"environment"`

		// Debug enables debug behavior across the service
		Debug bool `yaml:"debug"`

		// Testing marks the configuration as test-only
		Testing bool `yaml:"testing"`
	} `yaml:"general"`

	// Database configuration
	Database struct {
		// URI is the database connection string
		URI string `yaml:"uri"`

		// PoolSize is the connection pool size
		PoolSize int `yaml:"poolSize"`

		// PoolTimeout is the pool checkout timeout in seconds
		PoolTimeout int `yaml:"poolTimeout"`

		// SQLEcho records every statement to the log
		SQLEcho bool `yaml:"sqlEcho"`
	} `yaml:"database"`

	// Application limits and timeouts
	Application struct {
		// MaxWorkerThreads is the worker pool size
		MaxWorkerThreads int `yaml:"maxWorkerThreads"`

		// MaxConcurrentStreams caps simultaneously active streams
		MaxConcurrentStreams int `yaml:"maxConcurrentStreams"`

		// HTTPRequestTimeout is the outbound HTTP timeout in seconds
		HTTPRequestTimeout int `yaml:"httpRequestTimeout"`

		// StreamTimeout is the per-stream inactivity timeout in seconds
		StreamTimeout int `yaml:"streamTimeout"`

		// DatabaseTimeout is the per-query timeout in seconds
		DatabaseTimeout int `yaml:"databaseTimeout"`
	} `yaml:"application"`

	// Security configuration
	Security struct {
		// SecretKey signs sessions and encrypts stored credentials
		SecretKey string `yaml:"secretKey"`
	} `yaml:"security"`

	// Network limits
	Network struct {
		// MaxConnections is the global outbound connection cap
		MaxConnections int `yaml:"maxConnections"`

		// MaxConnectionsPerHost caps connections to a single host
		MaxConnectionsPerHost int `yaml:"maxConnectionsPerHost"`
	} `yaml:"network"`

	// Logging configuration
	Logging struct {
		Level       string `yaml:"level"` // "DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"
		Dir         string `yaml:"dir"`
		ChannelSize int    `yaml:"channelSize"`
		Output      string `yaml:"output"` // "stdout" or "file"
		FileName    string `yaml:"fileName"`
		MaxSizeMB   int    `yaml:"maxSizeMB"`
		MaxBackups  int    `yaml:"maxBackups"`
	} `yaml:"logging"`

	// Monitor configuration for the config watch loop
	Monitor struct {
		// Enabled starts the file watcher
		Enabled bool `yaml:"enabled"`

		// WatchDir is the directory holding the YAML configuration files
		WatchDir string `yaml:"watchDir"`

		// EnvFile is an optional .env file watched alongside WatchDir
		EnvFile string `yaml:"envFile"`

		// DebounceSeconds is the minimum interval between accepted
		// events for the same path
		DebounceSeconds float64 `yaml:"debounceSeconds"`

		// UsePolling forces the polling watcher instead of native
		// file notifications
		UsePolling bool `yaml:"usePolling"`

		// PollIntervalSeconds is the scan interval of the polling watcher
		PollIntervalSeconds int `yaml:"pollIntervalSeconds"`
	} `yaml:"monitor"`

	// HTTP monitoring endpoint configuration
	HTTP struct {
		// Enabled serves the status/health API
		Enabled bool `yaml:"enabled"`

		// Address to bind the monitoring server
		Address string `yaml:"address"`

		// Port to bind the monitoring server
		Port int `yaml:"port"`
	} `yaml:"http"`
}

// LogLevels is the accepted logging level enumeration.
var LogLevels = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

// IsValidLogLevel reports whether level is one of the five accepted levels.
func IsValidLogLevel(level string) bool {
	upper := strings.ToUpper(level)
	for _, l := range LogLevels {
		if upper == l {
			return true
		}
	}
	return false
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	c := &Config{}

	// General configuration
	c.General.Environment = EnvDevelopment
	c.General.Debug = true
	c.General.Testing = false

	// Database configuration
	c.Database.URI = "sqlite:///data/trakbridge.db"
	c.Database.PoolSize = 10
	c.Database.PoolTimeout = 30
	c.Database.SQLEcho = false

	// Application configuration
	c.Application.MaxWorkerThreads = 8
	c.Application.MaxConcurrentStreams = 100
	c.Application.HTTPRequestTimeout = 30
	c.Application.StreamTimeout = 120
	c.Application.DatabaseTimeout = 30

	// Security configuration
	c.Security.SecretKey = DevSecretKeyPlaceholder

	// Network configuration
	c.Network.MaxConnections = 100
	c.Network.MaxConnectionsPerHost = 10

	// Logging configuration
	c.Logging.Level = "INFO"
	c.Logging.Dir = "./logs"
	c.Logging.ChannelSize = 1000
	c.Logging.Output = "stdout"
	c.Logging.FileName = "trakbridge.log"
	c.Logging.MaxSizeMB = 50
	c.Logging.MaxBackups = 5

	// Monitor configuration
	c.Monitor.Enabled = true
	c.Monitor.WatchDir = "./config"
	c.Monitor.EnvFile = ".env"
	c.Monitor.DebounceSeconds = 1.0
	c.Monitor.UsePolling = false
	c.Monitor.PollIntervalSeconds = 2

	// HTTP configuration
	c.HTTP.Enabled = true
	c.HTTP.Address = "0.0.0.0"
	c.HTTP.Port = 8089

	return c
}

// LoadConfig loads the configuration from a YAML file, then applies the
// .env and process-environment overlay
func LoadConfig(path string) (*Config, error) {
	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Load the default configuration
	config := DefaultConfig()

	// Decode the YAML file
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables take precedence over the file
	if err := applyEnvOverlay(config, config.Monitor.EnvFile); err != nil {
		return nil, err
	}

	// Complete relative paths against the config file location
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if !filepath.IsAbs(config.Logging.Dir) {
		config.Logging.Dir = filepath.Join(dir, config.Logging.Dir)
	}
	if config.Monitor.WatchDir == "" {
		config.Monitor.WatchDir = dir
	} else if !filepath.IsAbs(config.Monitor.WatchDir) {
		config.Monitor.WatchDir = filepath.Join(dir, config.Monitor.WatchDir)
	}

	return config, nil
}

// SaveConfig saves the configuration to a file
func SaveConfig(config *Config, path string) error {
	// Encode the configuration to YAML
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// Create parent directory if necessary
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
