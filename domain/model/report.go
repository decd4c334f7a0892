package model

import "time"

// HealthStatus is the outcome of a concern check or a whole report.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ValidationReport holds the outcome of one validation run. Errors mean the
// configuration is unsafe to run; warnings are advisory and never block
// startup or reload. A report is rebuilt from scratch on every run.
type ValidationReport struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Valid reports whether the configuration passed without blocking errors.
func (r *ValidationReport) Valid() bool {
	return len(r.Errors) == 0
}

// ConcernHealth is the result of a single named concern check.
type ConcernHealth struct {
	Status   HealthStatus `json:"status"`
	Issues   []string     `json:"issues"`
	Warnings []string     `json:"warnings"`
}

// HealthReport aggregates the concern checks. Overall status is unhealthy
// as soon as one concern is unhealthy; warnings never affect status.
type HealthReport struct {
	ID        string                   `json:"id"`
	Timestamp time.Time                `json:"timestamp"`
	Status    HealthStatus             `json:"status"`
	Checks    map[string]ConcernHealth `json:"checks"`
	Issues    []string                 `json:"issues"`
	Warnings  []string                 `json:"warnings"`
}

// ConfigFileInfo describes one configuration file in the watched directory.
type ConfigFileInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// MonitorStatus is a read-only snapshot of the config monitor.
type MonitorStatus struct {
	Monitoring     bool             `json:"monitoring"`
	WatchDir       string           `json:"watchDir"`
	EnvFile        string           `json:"envFile,omitempty"`
	NodeID         string           `json:"nodeId,omitempty"`
	ConfigFiles    []ConfigFileInfo `json:"configFiles"`
	CallbackCount  int              `json:"callbackCount"`
	ReloadTotal    uint64           `json:"reloadTotal"`
	ReloadFailed   uint64           `json:"reloadFailed"`
	LastReloadTime time.Time        `json:"lastReloadTime"`
}
