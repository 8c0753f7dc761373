package config

import (
	"fmt"
	"os"

	"github.com/runtime-insight/agent/pkg/models"
	"gopkg.in/yaml.v3"
)

// LoadMetricsFile reads a partial metrics config from a YAML file. A missing
// file yields a nil map, which resolves to the default config under any flag policy.
func LoadMetricsFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read metrics config: %w", err)
	}

	out := map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse metrics config %s: %w", path, err)
	}
	return out, nil
}

// LoadMetricsConfig reads the YAML file and resolves it with the given flag policy
func LoadMetricsConfig(path string, policy models.FlagPolicy) (models.MetricsConfig, error) {
	args, err := LoadMetricsFile(path)
	if err != nil {
		return models.DefaultMetricsConfig(), err
	}
	return models.ParseMetricsConfig(args, policy), nil
}
