// Package config loads the demo-host configuration file.
package config

// Config is the root configuration for the demo host.
type Config struct {
	Gateway GatewayConfig `yaml:"gateway"`
	Storage StorageConfig `yaml:"storage"`
	Agent   AgentConfig   `yaml:"agent"`
}

// GatewayConfig holds the demo gateway address.
type GatewayConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig selects the persistence bridge backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // "file", "sqlite" or "none"
	Dir     string `yaml:"dir"`     // directory for the file store / sqlite db
	Key     string `yaml:"key"`     // storage bucket name
}

// AgentConfig holds conversation defaults.
type AgentConfig struct {
	ContextPrompt   string `yaml:"context_prompt"`    // seeds every new task's context
	TokenIntervalMs int    `yaml:"token_interval_ms"` // fake agent delay between tokens
}
