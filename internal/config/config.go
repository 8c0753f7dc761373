package config

import (
	"os"
	"strings"
	"time"

	"github.com/runtime-insight/agent/pkg/models"
)

const (
	// Sender settings
	Timeout = 10 * time.Second

	// Device specs are cached this long
	StaticRefreshInterval = 1 * time.Hour

	// Environment file path
	EnvFilePath = "/etc/runtime-insight/env"

	// Default metrics config file path
	MetricsFilePath = "/etc/runtime-insight/metrics.yaml"
)

// Agent info (injected at build time via -ldflags "-X")
var (
	Version   = "0.3.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// LoadEnvFile loads environment variables from the given KEY=VALUE file.
// Variables already present in the environment win.
func LoadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist is not an error
		}
		return err
	}

	lines := strings.Split(string(data), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	}

	return nil
}

// GetServerURL returns the HTTP collector URL; empty means stream to stdout
func GetServerURL() string {
	return os.Getenv("INSIGHT_SERVER_URL")
}

// GetToken returns the collector token, which is optional
func GetToken() string {
	return os.Getenv("INSIGHT_TOKEN")
}

// GetMetricsFilePath returns the metrics config file path from env or default
func GetMetricsFilePath() string {
	if path := os.Getenv("INSIGHT_CONFIG"); path != "" {
		return path
	}
	return MetricsFilePath
}

// GetFormat returns the stream format name (json or cbor)
func GetFormat() string {
	return os.Getenv("INSIGHT_FORMAT")
}

// GetFlagPolicy returns how unspecified flags in partial configs are treated
func GetFlagPolicy() models.FlagPolicy {
	switch strings.ToLower(os.Getenv("INSIGHT_UNSET_FLAGS")) {
	case "disabled", "false", "0":
		return models.UnsetFlagsDisabled
	default:
		return models.UnsetFlagsEnabled
	}
}

// IsDebugMode checks if debug mode is enabled
func IsDebugMode() bool {
	return envBool("INSIGHT_DEBUG")
}

// IsJSONLogging checks if logs should be JSON formatted
func IsJSONLogging() bool {
	return envBool("INSIGHT_LOG_JSON")
}

func envBool(key string) bool {
	v := os.Getenv(key)
	return v == "true" || v == "1"
}
