package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emfoursolutions/trakbridge-sub003/config"
	"github.com/emfoursolutions/trakbridge-sub003/domain/model"
	"github.com/emfoursolutions/trakbridge-sub003/domain/port/outbound"
)

// healthConcerns fixes the evaluation (and aggregation) order.
var healthConcerns = []string{"database", "application", "security", "logging"}

type healthChecker struct {
	logger outbound.Logger
}

func NewHealthChecker(logger outbound.Logger) *healthChecker {
	return &healthChecker{logger: logger}
}

// CheckHealth runs the four concern checks and aggregates them. The report
// is unhealthy as soon as one concern is unhealthy; issues and warnings are
// concatenated in concern evaluation order.
func (h *healthChecker) CheckHealth(cfg *config.Config) model.HealthReport {
	report := model.HealthReport{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Status:    model.HealthStatusHealthy,
		Checks:    make(map[string]model.ConcernHealth, len(healthConcerns)),
		Issues:    []string{},
		Warnings:  []string{},
	}

	for _, concern := range healthConcerns {
		result := h.checkConcern(concern, cfg)
		report.Checks[concern] = result

		if result.Status == model.HealthStatusUnhealthy {
			report.Status = model.HealthStatusUnhealthy
		}
		report.Issues = append(report.Issues, result.Issues...)
		report.Warnings = append(report.Warnings, result.Warnings...)
	}

	h.logger.Debug("Config health checked",
		"status", string(report.Status),
		"issues", len(report.Issues), "warnings", len(report.Warnings))

	return report
}

// checkConcern dispatches one concern, converting panics into a single
// issue so one broken check cannot take down the report.
func (h *healthChecker) checkConcern(concern string, cfg *config.Config) (result model.ConcernHealth) {
	defer func() {
		if r := recover(); r != nil {
			result = concernResult([]string{fmt.Sprintf("%s check failed: %v", concern, r)}, nil)
		}
	}()

	switch concern {
	case "database":
		return h.checkDatabase(cfg)
	case "application":
		return h.checkApplication(cfg)
	case "security":
		return h.checkSecurity(cfg)
	case "logging":
		return h.checkLogging(cfg)
	}
	return concernResult(nil, nil)
}

func (h *healthChecker) checkDatabase(cfg *config.Config) model.ConcernHealth {
	var issues, warnings []string

	uri := cfg.Database.URI
	if uri == "" {
		issues = append(issues, "database URI is not configured")
		return concernResult(issues, warnings)
	}

	if isSQLiteURI(uri) {
		if path := sqliteFilePath(uri); path != "" {
			dir := filepath.Dir(path)
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				issues = append(issues, fmt.Sprintf("database directory missing: %s", dir))
			}
		}
	}

	if cfg.Database.PoolSize > 100 {
		warnings = append(warnings,
			fmt.Sprintf("connection pool size of %d is unusually large", cfg.Database.PoolSize))
	}

	return concernResult(issues, warnings)
}

func (h *healthChecker) checkApplication(cfg *config.Config) model.ConcernHealth {
	var issues, warnings []string
	app := cfg.Application

	if app.MaxWorkerThreads < 1 {
		issues = append(issues, "worker thread count must be at least 1")
	} else if app.MaxWorkerThreads > 100 {
		warnings = append(warnings,
			fmt.Sprintf("worker thread count of %d is unusually large", app.MaxWorkerThreads))
	}

	if app.MaxConcurrentStreams < 1 {
		issues = append(issues, "concurrent stream limit must be at least 1")
	} else if app.MaxConcurrentStreams > 1000 {
		warnings = append(warnings,
			fmt.Sprintf("concurrent stream limit of %d is unusually large", app.MaxConcurrentStreams))
	}

	return concernResult(issues, warnings)
}

func (h *healthChecker) checkSecurity(cfg *config.Config) model.ConcernHealth {
	var issues, warnings []string
	key := cfg.Security.SecretKey

	switch {
	case key == "":
		issues = append(issues, "secret key is not configured")
	case len(key) < 16:
		issues = append(issues, "secret key is shorter than 16 characters")
	case key == config.DevSecretKeyPlaceholder:
		if strings.ToLower(cfg.General.Environment) == config.EnvProduction {
			issues = append(issues, "secret key is the development default")
		} else {
			warnings = append(warnings, "secret key is the development default")
		}
	}

	return concernResult(issues, warnings)
}

func (h *healthChecker) checkLogging(cfg *config.Config) model.ConcernHealth {
	var issues, warnings []string

	if !config.IsValidLogLevel(cfg.Logging.Level) {
		issues = append(issues, fmt.Sprintf("unknown log level %q", cfg.Logging.Level))
	}

	if dir := cfg.Logging.Dir; dir != "" {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			warnings = append(warnings,
				fmt.Sprintf("log directory does not exist yet: %s", dir))
		}
	}

	return concernResult(issues, warnings)
}

func concernResult(issues, warnings []string) model.ConcernHealth {
	status := model.HealthStatusHealthy
	if len(issues) > 0 {
		status = model.HealthStatusUnhealthy
	}
	if issues == nil {
		issues = []string{}
	}
	if warnings == nil {
		warnings = []string{}
	}
	return model.ConcernHealth{
		Status:   status,
		Issues:   issues,
		Warnings: warnings,
	}
}
