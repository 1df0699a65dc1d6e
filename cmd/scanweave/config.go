package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/corvushq/scanweave/pipeline"
)

// AppConfig is the full scanweave configuration file.
type AppConfig struct {
	Pipeline pipeline.Config `yaml:"pipeline"`

	// DBPath is the corpus SQLite database.
	DBPath string `yaml:"db_path"`
	// Listen is the HTTP bind address for serve mode.
	Listen string `yaml:"listen"`
	// MCP enables the MCP stdio transport in serve mode.
	MCP bool `yaml:"mcp"`
}

// DefaultAppConfig returns the defaults a missing config file implies.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Pipeline: pipeline.DefaultConfig(),
		DBPath:   "data/corpus.db",
		Listen:   ":8086",
	}
}

// LoadAppConfig reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func LoadAppConfig(path string) (AppConfig, error) {
	cfg := DefaultAppConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
