package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mcuadros/go-defaults"
	"gopkg.in/yaml.v3"
)

// Config is the optional configuration file. It is only ever read.
type Config struct {
	// Devices are the name substrings used when none are given on the
	// command line.
	Devices  []string `yaml:"devices"`
	Adapter  string   `yaml:"adapter" default:"hci0"`
	LogLevel string   `yaml:"log_level" default:"info"`
}

func configPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "lockbt", "config.yaml")
}

// loadConfig reads path on top of the defaults. A missing file is only an
// error when required is set.
func loadConfig(path string, required bool) (*Config, error) {
	cfg := &Config{}
	defaults.SetDefaults(cfg)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// patternsFor picks the device name patterns: command line arguments win
// over the config file.
func patternsFor(args []string, cfg *Config) []string {
	if len(args) > 0 {
		return args
	}
	return cfg.Devices
}
