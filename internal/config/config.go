// Package config loads the optional tiles.yaml ambient configuration file
// (data directory, worker count, server ports), the same
// gopkg.in/yaml.v3 library the teacher already depends on for
// `geo spec --yaml`, repurposed here for config loading instead of
// OpenAPI export.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-geo/internal/tileerr"
)

// Config is the full set of ambient settings a tiles-* command reads.
type Config struct {
	DataDir string `yaml:"data_dir"`
	Workers int    `yaml:"workers"`
	Server  Server `yaml:"server"`
}

// Server holds the HTTP listen settings for tiles-server.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Default returns a Config with sane defaults for running against a
// local data directory.
func Default() Config {
	return Config{
		DataDir: "./data",
		Workers: 4,
		Server:  Server{Host: "0.0.0.0", Port: 8086},
	}
}

// Load reads and parses a YAML config file at path, starting from
// Default() so a file only needs to set the fields it wants to override.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %q: %w", path, tileErr(tileerr.ErrIO, err))
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %q: %w", path, tileErr(tileerr.ErrConfig, err))
	}
	if cfg.Workers <= 0 {
		return Config{}, fmt.Errorf("config: workers must be positive: %w", tileerr.ErrConfig)
	}
	return cfg, nil
}

func tileErr(kind, cause error) error {
	return fmt.Errorf("%w: %v", kind, cause)
}
