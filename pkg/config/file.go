package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile builds a DeploymentConfig from defaults overridden by a YAML
// file, with environment variables applied on top. Fields absent from
// the file keep their defaults.
func LoadFile(path string) (DeploymentConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	return applyEnv(cfg)
}
