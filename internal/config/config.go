package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds tabbridge settings loaded from .tabbridge.toml.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Bridge      BridgeConfig      `toml:"bridge"`
	Buffers     BuffersConfig     `toml:"buffers"`
	Screenshots ScreenshotsConfig `toml:"screenshots"`
	Logging     LoggingConfig     `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type BridgeConfig struct {
	DefaultTimeoutMs int `toml:"default_timeout_ms"`
	PingTimeoutMs    int `toml:"ping_timeout_ms"`
}

type BuffersConfig struct {
	Capacity         int `toml:"capacity"`
	MaxContentLength int `toml:"max_content_length"`
}

type ScreenshotsConfig struct {
	Dir    string `toml:"dir"`
	Prefix string `toml:"prefix"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns the built-in defaults used when no config file
// is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 7800,
			Host: "localhost",
		},
		Bridge: BridgeConfig{
			DefaultTimeoutMs: 10000,
			PingTimeoutMs:    2000,
		},
		Buffers: BuffersConfig{
			Capacity:         1000,
			MaxContentLength: 100000,
		},
		Screenshots: ScreenshotsConfig{
			Dir:    defaultScreenshotDir(),
			Prefix: "screenshot",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultScreenshotDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "screenshots"
	}
	return filepath.Join(home, ".tabbridge", "screenshots")
}

// Load reads configuration, merging file values over defaults. When
// path is empty the working directory and then the home directory are
// searched for .tabbridge.toml; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = findConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", path, err)
	}
	return cfg, nil
}

func findConfigFile() string {
	candidates := []string{".tabbridge.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".tabbridge.toml"))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func (c *Config) validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Bridge.DefaultTimeoutMs <= 0 {
		return fmt.Errorf("bridge.default_timeout_ms must be positive")
	}
	if c.Buffers.Capacity <= 0 {
		return fmt.Errorf("buffers.capacity must be positive")
	}
	return nil
}
