// Package config loads and persists mdkb configuration.
//
// Configuration lives in a YAML file at the platform config location
// ($XDG_CONFIG_HOME/mdkb/config.yaml) unless an explicit path is given.
// Environment variables override file values so the server can be pointed
// at a knowledge base without editing the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const AppName = "mdkb"

// Environment overrides, matching the names callers already use to point
// tooling at the knowledge base.
const (
	EnvRootDir   = "KNOWLEDGE_BASE_ROOT"
	EnvSystemDir = "KB_SYSTEM_DIR"
)

// KnowledgeBaseConfig locates the document tree.
type KnowledgeBaseConfig struct {
	// RootDirectory is the knowledge-base root. All document paths are
	// relative to it.
	RootDirectory string `yaml:"root_directory"`
	// SystemDirectory is the subdirectory (relative to the root) holding
	// generated documents such as the usage guide.
	SystemDirectory string `yaml:"system_directory"`
}

// ServerConfig holds transport settings for the HTTP mode.
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

// Config is the full user configuration.
type Config struct {
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base"`
	Server        ServerConfig        `yaml:"server"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		KnowledgeBase: KnowledgeBaseConfig{
			RootDirectory:   "./knowledge-base",
			SystemDirectory: "system",
		},
		Server: ServerConfig{
			Host:     "localhost",
			Port:     8000,
			LogLevel: "info",
		},
	}
}

// ConfigPath returns the standard config file path for the current platform.
func ConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Load loads config from the standard location. A missing file is not an
// error; defaults (plus environment overrides) are returned instead.
func Load() (*Config, error) {
	primary := ConfigPath()
	if _, err := os.Stat(primary); err != nil {
		cfg := DefaultConfig()
		cfg.applyEnv()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return LoadFrom(primary)
}

// LoadFrom loads config from a specific path, then applies environment
// overrides.
func LoadFrom(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays environment variables onto the config.
func (c *Config) applyEnv() {
	if root := os.Getenv(EnvRootDir); root != "" {
		c.KnowledgeBase.RootDirectory = root
	}
	if system := os.Getenv(EnvSystemDir); system != "" {
		c.KnowledgeBase.SystemDirectory = system
	}
}

// Validate checks that the resolved configuration can construct a store.
// Failures here are process-fatal at startup.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.KnowledgeBase.RootDirectory) == "" {
		return fmt.Errorf("knowledge_base.root_directory cannot be empty")
	}
	if strings.TrimSpace(c.KnowledgeBase.SystemDirectory) == "" {
		return fmt.Errorf("knowledge_base.system_directory cannot be empty")
	}
	if strings.Contains(c.KnowledgeBase.SystemDirectory, "..") {
		return fmt.Errorf("knowledge_base.system_directory must stay inside the root")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// Addr returns the host:port pair for the HTTP transport.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// Save writes the config to the standard location.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes the config to a specific path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
