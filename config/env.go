package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// applyEnvOverlay overrides config fields from a .env file and the process
// environment. Process environment wins over the .env file, which wins over
// the YAML file. Keys use the upper-snake names of the deployment surface.
func applyEnvOverlay(config *Config, envFile string) error {
	vars := map[string]string{}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			fileVars, err := godotenv.Read(envFile)
			if err != nil {
				return fmt.Errorf("failed to parse env file %s: %w", envFile, err)
			}
			for k, v := range fileVars {
				vars[k] = v
			}
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}

	setString := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid value for %s: %q", key, v)
		}
		*dst = n
		return nil
	}
	setBool := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid value for %s: %q", key, v)
		}
		*dst = b
		return nil
	}

	setString("ENVIRONMENT", &config.General.Environment)
	setString("DATABASE_URI", &config.Database.URI)
	setString("SECRET_KEY", &config.Security.SecretKey)
	setString("LOG_LEVEL", &config.Logging.Level)
	setString("LOG_DIR", &config.Logging.Dir)

	intKeys := []struct {
		key string
		dst *int
	}{
		{"DB_POOL_SIZE", &config.Database.PoolSize},
		{"DB_POOL_TIMEOUT", &config.Database.PoolTimeout},
		{"MAX_WORKER_THREADS", &config.Application.MaxWorkerThreads},
		{"MAX_CONCURRENT_STREAMS", &config.Application.MaxConcurrentStreams},
		{"HTTP_REQUEST_TIMEOUT", &config.Application.HTTPRequestTimeout},
		{"STREAM_TIMEOUT", &config.Application.StreamTimeout},
		{"DATABASE_TIMEOUT", &config.Application.DatabaseTimeout},
		{"MAX_CONNECTIONS", &config.Network.MaxConnections},
		{"MAX_CONNECTIONS_PER_HOST", &config.Network.MaxConnectionsPerHost},
	}
	for _, k := range intKeys {
		if err := setInt(k.key, k.dst); err != nil {
			return err
		}
	}

	boolKeys := []struct {
		key string
		dst *bool
	}{
		{"DEBUG", &config.General.Debug},
		{"TESTING", &config.General.Testing},
		{"SQL_ECHO", &config.Database.SQLEcho},
	}
	for _, k := range boolKeys {
		if err := setBool(k.key, k.dst); err != nil {
			return err
		}
	}

	return nil
}
