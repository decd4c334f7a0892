package inbound

import (
	"context"

	"github.com/emfoursolutions/trakbridge-sub003/config"
	"github.com/emfoursolutions/trakbridge-sub003/domain/model"
)

// ReloadCallback is invoked with the fresh configuration after every
// successful reload. A returned error is logged and isolated; it never
// affects other callbacks or the reload outcome.
type ReloadCallback func(cfg *config.Config) error

// ConfigMonitorService watches the configuration directory and coordinates
// reloads and callback fan-out.
type ConfigMonitorService interface {
	// Start begins monitoring. Startup problems (missing directory,
	// watcher init failure) are logged and leave the monitor stopped;
	// they are also returned for callers that want to inspect them.
	Start(ctx context.Context) error

	// Stop halts monitoring and blocks until the watch loop has exited.
	// Safe to call when not running.
	Stop() error

	// Reload re-reads the configuration and notifies callbacks.
	Reload()

	// AddReloadCallback registers cb and returns its registration ID.
	// Duplicate registrations of the same function are permitted.
	AddReloadCallback(cb ReloadCallback) string

	// RemoveReloadCallback unregisters by ID; no-op when absent.
	RemoveReloadCallback(id string)

	// GetStatus returns a read-only snapshot of the monitor.
	GetStatus() model.MonitorStatus
}

// ConfigValidator checks a configuration against the declared field ranges,
// enumerations, and cross-field constraints.
type ConfigValidator interface {
	Validate(cfg *config.Config) model.ValidationReport
}

// HealthChecker aggregates per-concern configuration checks into a single
// health report.
type HealthChecker interface {
	CheckHealth(cfg *config.Config) model.HealthReport
}
