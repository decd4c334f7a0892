package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/emfoursolutions/trakbridge-sub003/adapter/inbound/rest"
	"github.com/emfoursolutions/trakbridge-sub003/adapter/outbound/filewatcher"
	"github.com/emfoursolutions/trakbridge-sub003/adapter/outbound/logging"
	"github.com/emfoursolutions/trakbridge-sub003/adapter/outbound/machineid"
	"github.com/emfoursolutions/trakbridge-sub003/config"
	"github.com/emfoursolutions/trakbridge-sub003/domain/port/outbound"
	"github.com/emfoursolutions/trakbridge-sub003/domain/service"
)

const version = "1.0.0"

func main() {
	var configPath string
	var generateConfig bool
	var validateOnly bool
	var showVersion bool

	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.BoolVar(&generateConfig, "generate-config", false, "Generate default configuration file")
	flag.BoolVar(&validateOnly, "validate", false, "Validate the configuration and exit")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("TrakBridge config monitor %s\n", version)
		os.Exit(0)
	}

	if generateConfig {
		cfg := config.DefaultConfig()
		if err := config.SaveConfig(cfg, configPath); err != nil {
			fmt.Printf("Error generating config file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration file generated at: %s\n", configPath)
		os.Exit(0)
	}

	provider, err := config.NewFileProvider(configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg := provider.Current()

	logger := logging.NewSlogAdapter(cfg)
	defer logger.Shutdown()

	validator := service.NewConfigValidator(logger)
	healthChecker := service.NewHealthChecker(logger)

	if validateOnly {
		report := validator.Validate(cfg)
		for _, e := range report.Errors {
			fmt.Printf("ERROR: %s\n", e)
		}
		for _, w := range report.Warnings {
			fmt.Printf("WARNING: %s\n", w)
		}
		if !report.Valid() {
			os.Exit(1)
		}
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	logger.Info("Starting TrakBridge config monitor",
		"version", version,
		"environment", cfg.General.Environment,
		"watch_dir", cfg.Monitor.WatchDir)

	// startup safety net: refuse to run on a configuration with
	// blocking errors, warnings are logged and tolerated
	report := validator.Validate(cfg)
	for _, w := range report.Warnings {
		logger.Warn("Configuration warning", "detail", w)
	}
	if !report.Valid() {
		for _, e := range report.Errors {
			logger.Error("Configuration error", "detail", e)
		}
		logger.Error("Configuration is invalid, refusing to start")
		logger.Shutdown()
		os.Exit(1)
	}

	watcher := newWatcher(cfg, logger)
	machineIDService := machineid.NewHardwareMachineID()

	monitor := service.NewConfigMonitorService(provider, watcher, machineIDService, logger,
		service.MonitorOptions{
			WatchDir:       cfg.Monitor.WatchDir,
			EnvFile:        cfg.Monitor.EnvFile,
			DebounceWindow: time.Duration(cfg.Monitor.DebounceSeconds * float64(time.Second)),
		})

	// re-apply the log level after every successful reload
	monitor.AddReloadCallback(func(fresh *config.Config) error {
		logger.UpdateLevel(fresh.Logging.Level)
		return nil
	})

	// surface config problems introduced by a reload, without blocking it
	monitor.AddReloadCallback(func(fresh *config.Config) error {
		rep := validator.Validate(fresh)
		for _, e := range rep.Errors {
			logger.Error("Reloaded configuration error", "detail", e)
		}
		for _, w := range rep.Warnings {
			logger.Warn("Reloaded configuration warning", "detail", w)
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Monitor.Enabled {
		if err := monitor.Start(ctx); err != nil {
			// monitoring is best effort, the service still serves
			// validation and health checks
			logger.Warn("Config monitoring not started", "error", err)
		}
	}
	defer monitor.Stop()

	var server *http.Server
	if cfg.HTTP.Enabled {
		router := mux.NewRouter()
		handler := rest.NewHandler(monitor, validator, healthChecker, provider, logger)
		handler.SetupRoutes(router)

		httpAddr := fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)
		server = &http.Server{
			Addr:         httpAddr,
			Handler:      router,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}

		go func() {
			logger.Info("Monitoring API listening", "addr", httpAddr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "error", err)
			}
		}()
	}

	// wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info("Shutting down", "signal", sig.String())

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
	}
}

// newWatcher picks the native notification watcher, or the polling
// fallback when configured or when native init fails.
func newWatcher(cfg *config.Config, logger outbound.Logger) outbound.FileWatcher {
	pollInterval := time.Duration(cfg.Monitor.PollIntervalSeconds) * time.Second

	if cfg.Monitor.UsePolling {
		return filewatcher.NewPollWatcher(pollInterval)
	}

	watcher, err := filewatcher.NewFSWatcher()
	if err != nil {
		logger.Warn("Native file notifications unavailable, falling back to polling",
			"error", err, "interval", pollInterval.String())
		return filewatcher.NewPollWatcher(pollInterval)
	}
	return watcher
}
