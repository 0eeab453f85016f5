package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file, unmarshals it into Config, and applies
// defaults. A missing file yields the default config.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults fills in zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = "127.0.0.1"
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 18520
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "none"
	}
	if cfg.Storage.Dir == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			cfg.Storage.Dir = dir + "/agentflow"
		} else {
			cfg.Storage.Dir = "."
		}
	}
	if cfg.Storage.Key == "" {
		cfg.Storage.Key = "agent_tasks_demo"
	}
	if cfg.Agent.ContextPrompt == "" {
		cfg.Agent.ContextPrompt = "You are a helpful assistant working through tasks."
	}
	if cfg.Agent.TokenIntervalMs == 0 {
		cfg.Agent.TokenIntervalMs = 40
	}
}
