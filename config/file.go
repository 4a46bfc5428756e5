package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads the YAML file at path over cfg.  Keys missing from
// the file keep the value already in cfg, so callers seed cfg with
// Defaults first.  Durations are written as Go duration strings.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// Dump renders cfg as YAML with the password masked, for --dry-run.
func Dump(cfg *Config) ([]byte, error) {
	c := *cfg
	if c.Password != "" {
		c.Password = "****"
	}
	return yaml.Marshal(&c)
}
