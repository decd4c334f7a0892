package config

import (
	"fmt"
	"sync"
)

// Provider owns the current configuration and, when constructed from a file,
// the ability to reload it. Reload capability is decided here at construction
// time rather than discovered through failures downstream.
type Provider struct {
	mu         sync.RWMutex
	current    *Config
	sourcePath string
	reloadable bool
}

// NewFileProvider loads the configuration from path and returns a reloadable
// provider bound to that file.
func NewFileProvider(path string) (*Provider, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	return &Provider{
		current:    cfg,
		sourcePath: path,
		reloadable: true,
	}, nil
}

// NewStaticProvider wraps an in-memory configuration. The provider is not
// reloadable; Reload returns an error without touching the current config.
func NewStaticProvider(cfg *Config) *Provider {
	return &Provider{
		current:    cfg,
		reloadable: false,
	}
}

// Current returns the active configuration.
func (p *Provider) Current() *Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// SourcePath returns the backing file path, empty for static providers.
func (p *Provider) SourcePath() string {
	return p.sourcePath
}

// Reloadable reports whether Reload is supported.
func (p *Provider) Reloadable() bool {
	return p.reloadable
}

// Reload re-reads the backing file and swaps the active configuration.
// On failure the previous configuration remains in effect.
func (p *Provider) Reload() (*Config, error) {
	if !p.reloadable {
		return nil, fmt.Errorf("configuration provider does not support reload")
	}

	cfg, err := LoadConfig(p.sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to reload config from %s: %w", p.sourcePath, err)
	}

	p.mu.Lock()
	p.current = cfg
	p.mu.Unlock()

	return cfg, nil
}
