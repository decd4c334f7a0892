package service

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/emfoursolutions/trakbridge-sub003/config"
	"github.com/emfoursolutions/trakbridge-sub003/domain/model"
	"github.com/emfoursolutions/trakbridge-sub003/domain/port/outbound"
)

// loopbackHosts are database hosts considered local for the production
// SSL advisory.
var loopbackHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

type configValidator struct {
	logger outbound.Logger
}

func NewConfigValidator(logger outbound.Logger) *configValidator {
	return &configValidator{logger: logger}
}

// Validate checks cfg against the declared ranges, enumerations, and
// cross-field constraints. The report is rebuilt on every call. Each check
// runs independently; a panic inside one check becomes a single error
// tagged with the concern name and the remaining checks still run.
func (v *configValidator) Validate(cfg *config.Config) model.ValidationReport {
	report := model.ValidationReport{
		Errors:   []string{},
		Warnings: []string{},
	}

	v.runCheck("database", &report, func(r *model.ValidationReport) { v.checkDatabase(cfg, r) })
	v.runCheck("application", &report, func(r *model.ValidationReport) { v.checkApplication(cfg, r) })
	v.runCheck("security", &report, func(r *model.ValidationReport) { v.checkSecurity(cfg, r) })
	v.runCheck("network", &report, func(r *model.ValidationReport) { v.checkNetwork(cfg, r) })
	v.runCheck("logging", &report, func(r *model.ValidationReport) { v.checkLogging(cfg, r) })

	switch strings.ToLower(cfg.General.Environment) {
	case config.EnvProduction:
		v.runCheck("production", &report, func(r *model.ValidationReport) { v.checkProduction(cfg, r) })
	case config.EnvDevelopment:
		v.runCheck("development", &report, func(r *model.ValidationReport) { v.checkDevelopment(cfg, r) })
	case config.EnvTesting:
		v.runCheck("testing", &report, func(r *model.ValidationReport) { v.checkTesting(cfg, r) })
	}

	v.logger.Debug("Configuration validated",
		"errors", len(report.Errors), "warnings", len(report.Warnings))

	return report
}

// runCheck shields the validation pass from a misbehaving check: a panic is
// converted into one error string so the other checks still execute.
func (v *configValidator) runCheck(concern string, report *model.ValidationReport, fn func(*model.ValidationReport)) {
	defer func() {
		if r := recover(); r != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("%s check failed: %v", concern, r))
		}
	}()

	fn(report)
}

func (v *configValidator) checkDatabase(cfg *config.Config, report *model.ValidationReport) {
	uri := cfg.Database.URI
	if uri == "" {
		report.Errors = append(report.Errors, "DATABASE_URI is required")
		return
	}

	if isSQLiteURI(uri) {
		if strings.ToLower(cfg.General.Environment) == config.EnvProduction {
			report.Warnings = append(report.Warnings,
				"SQLite is not recommended for production deployments")
		}

		if path := sqliteFilePath(uri); path != "" {
			dir := filepath.Dir(path)
			info, err := os.Stat(dir)
			if err != nil || !info.IsDir() {
				report.Errors = append(report.Errors,
					fmt.Sprintf("database directory does not exist: %s", dir))
			} else if !dirWritable(dir) {
				report.Errors = append(report.Errors,
					fmt.Sprintf("database directory is not writable: %s", dir))
			}
		}
	} else {
		u, err := url.Parse(uri)
		if err != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("DATABASE_URI is not a valid URI: %v", err))
			return
		}

		if u.Hostname() == "" {
			report.Errors = append(report.Errors, "DATABASE_URI must include a host")
		}
		if u.User == nil || u.User.Username() == "" {
			report.Errors = append(report.Errors, "DATABASE_URI must include a username")
		}
		if strings.Trim(u.Path, "/") == "" {
			report.Errors = append(report.Errors, "DATABASE_URI must include a database name")
		}
	}

	if cfg.Database.PoolSize > 100 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("DB_POOL_SIZE of %d is unusually large", cfg.Database.PoolSize))
	}
}

func (v *configValidator) checkApplication(cfg *config.Config, report *model.ValidationReport) {
	app := cfg.Application

	if app.MaxWorkerThreads < 1 {
		report.Errors = append(report.Errors, "MAX_WORKER_THREADS must be a positive integer")
	} else if app.MaxWorkerThreads > 100 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("MAX_WORKER_THREADS of %d is unusually large", app.MaxWorkerThreads))
	}

	if app.MaxConcurrentStreams < 1 {
		report.Errors = append(report.Errors, "MAX_CONCURRENT_STREAMS must be a positive integer")
	} else if app.MaxConcurrentStreams > 1000 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("MAX_CONCURRENT_STREAMS of %d is unusually large", app.MaxConcurrentStreams))
	}

	timeouts := []struct {
		name  string
		value int
	}{
		{"HTTP_REQUEST_TIMEOUT", app.HTTPRequestTimeout},
		{"STREAM_TIMEOUT", app.StreamTimeout},
		{"DATABASE_TIMEOUT", app.DatabaseTimeout},
	}
	for _, t := range timeouts {
		if t.value < 1 {
			report.Errors = append(report.Errors,
				fmt.Sprintf("%s must be a positive integer", t.name))
		} else if t.value > 3600 {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("%s of %d seconds is unusually long", t.name, t.value))
		}
	}
}

func (v *configValidator) checkSecurity(cfg *config.Config, report *model.ValidationReport) {
	key := cfg.Security.SecretKey

	if key == "" {
		report.Errors = append(report.Errors, "SECRET_KEY is required")
		return
	}

	if len(key) < 16 {
		report.Errors = append(report.Errors, "SECRET_KEY must be at least 16 characters")
	}

	if key == config.DevSecretKeyPlaceholder {
		if strings.ToLower(cfg.General.Environment) == config.EnvProduction {
			report.Errors = append(report.Errors,
				"SECRET_KEY must not use the development default in production")
		} else {
			report.Warnings = append(report.Warnings,
				"SECRET_KEY is still the development default")
		}
	}
}

func (v *configValidator) checkNetwork(cfg *config.Config, report *model.ValidationReport) {
	net := cfg.Network

	if net.MaxConnections < 1 {
		report.Errors = append(report.Errors, "MAX_CONNECTIONS must be a positive integer")
	}
	if net.MaxConnectionsPerHost < 1 {
		report.Errors = append(report.Errors, "MAX_CONNECTIONS_PER_HOST must be a positive integer")
	}

	// soft inconsistency, the per-host cap simply never binds
	if net.MaxConnections >= 1 && net.MaxConnectionsPerHost > net.MaxConnections {
		report.Warnings = append(report.Warnings,
			"MAX_CONNECTIONS_PER_HOST exceeds MAX_CONNECTIONS")
	}
}

func (v *configValidator) checkLogging(cfg *config.Config, report *model.ValidationReport) {
	if !config.IsValidLogLevel(cfg.Logging.Level) {
		report.Errors = append(report.Errors,
			fmt.Sprintf("LOG_LEVEL must be one of %s, got %q",
				strings.Join(config.LogLevels, ", "), cfg.Logging.Level))
	}

	dir := cfg.Logging.Dir
	if dir == "" {
		return
	}

	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		if !dirWritable(dir) {
			report.Errors = append(report.Errors,
				fmt.Sprintf("log directory is not writable: %s", dir))
		}
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		report.Errors = append(report.Errors,
			fmt.Sprintf("log directory could not be created: %s: %v", dir, err))
	}
}

func (v *configValidator) checkProduction(cfg *config.Config, report *model.ValidationReport) {
	if cfg.General.Debug {
		report.Errors = append(report.Errors, "DEBUG must be disabled in production")
	}

	if cfg.Database.SQLEcho {
		report.Warnings = append(report.Warnings,
			"SQL_ECHO records every statement and should be disabled in production")
	}

	if cfg.Application.HTTPRequestTimeout < 30 {
		report.Warnings = append(report.Warnings,
			"HTTP_REQUEST_TIMEOUT below 30 seconds may abort slow feeds in production")
	}

	if cfg.Application.MaxWorkerThreads < 4 {
		report.Warnings = append(report.Warnings,
			"MAX_WORKER_THREADS below 4 limits production throughput")
	}

	// best-effort heuristic: a non-loopback host is treated as external
	if u, err := url.Parse(cfg.Database.URI); err == nil {
		host := u.Hostname()
		if host != "" && !loopbackHosts[strings.ToLower(host)] && !uriHasSSL(u) {
			report.Warnings = append(report.Warnings,
				"external database connection without explicit SSL configuration")
		}
	}
}

func (v *configValidator) checkDevelopment(cfg *config.Config, report *model.ValidationReport) {
	if !cfg.General.Debug {
		report.Warnings = append(report.Warnings,
			"DEBUG is disabled in the development environment")
	}

	if cfg.Application.HTTPRequestTimeout > 60 {
		report.Warnings = append(report.Warnings,
			"HTTP_REQUEST_TIMEOUT above 60 seconds slows development feedback")
	}
}

func (v *configValidator) checkTesting(cfg *config.Config, report *model.ValidationReport) {
	if !cfg.General.Testing {
		report.Errors = append(report.Errors,
			"TESTING must be true in the testing environment")
	}

	if cfg.General.Debug {
		report.Warnings = append(report.Warnings,
			"DEBUG is enabled in the testing environment")
	}

	uri := strings.ToLower(cfg.Database.URI)
	if !strings.Contains(uri, ":memory:") && !strings.Contains(uri, "test") {
		report.Warnings = append(report.Warnings,
			"database URI does not look like a test database")
	}
}

// isSQLiteURI reports whether uri uses an embedded file-based database.
func isSQLiteURI(uri string) bool {
	return strings.HasPrefix(strings.ToLower(uri), "sqlite:")
}

// sqliteFilePath extracts the on-disk path from a sqlite URI. Returns ""
// for in-memory databases.
func sqliteFilePath(uri string) string {
	if strings.Contains(uri, ":memory:") {
		return ""
	}

	path := strings.TrimPrefix(uri, "sqlite://")
	// sqlite:///relative/path vs sqlite:////absolute/path
	if strings.HasPrefix(path, "//") {
		path = path[1:]
	} else {
		path = strings.TrimPrefix(path, "/")
	}
	return path
}

// uriHasSSL reports whether the URI query carries any ssl-related option.
func uriHasSSL(u *url.URL) bool {
	for key := range u.Query() {
		if strings.Contains(strings.ToLower(key), "ssl") {
			return true
		}
	}
	return false
}

// dirWritable probes dir by creating and removing a scratch file.
func dirWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".tb-write-check-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
