package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	Server ServerConfig `json:"server"`
	Store  StoreConfig  `json:"store"`
	Export ExportConfig `json:"export"`
	Fonts  FontsConfig  `json:"fonts"`
}

// ServerConfig holds configuration for the web app
type ServerConfig struct {
	// Addr is the listen address; port 0 lets the OS pick one.
	Addr        string `json:"addr"`
	OpenBrowser bool   `json:"open_browser"`
}

// StoreConfig selects where shared sessions live
type StoreConfig struct {
	Kind string `json:"kind"` // "memory" or "dir"
	Dir  string `json:"dir"`

	// ListLimit is used when a listing request carries no limit.
	ListLimit int `json:"list_limit"`
}

// ExportConfig holds configuration for rendering and encoding
type ExportConfig struct {
	JPEGQuality int    `json:"jpeg_quality"`
	Concurrency int    `json:"concurrency"`
	OutputDir   string `json:"output_dir"`
}

// FontsConfig points at optional caption fonts
type FontsConfig struct {
	Regular string `json:"regular"`
	Bold    string `json:"bold"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        "localhost:0",
			OpenBrowser: true,
		},
		Store: StoreConfig{
			Kind:      "memory",
			Dir:       "./sessions",
			ListLimit: 20,
		},
		Export: ExportConfig{
			JPEGQuality: 92,
			Concurrency: 0,
			OutputDir:   "./output",
		},
	}
}

// LoadFromFile loads configuration from a JSON file on top of the defaults
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads filename when it exists and falls back to the defaults otherwise
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}
	return LoadFromFile(filename)
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}

	switch c.Store.Kind {
	case "memory":
	case "dir":
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir is required when store.kind is dir")
		}
	default:
		return fmt.Errorf("store.kind must be memory or dir, got %q", c.Store.Kind)
	}

	if c.Store.ListLimit < 1 || c.Store.ListLimit > 50 {
		return fmt.Errorf("store.list_limit must be between 1 and 50")
	}

	if c.Export.JPEGQuality < 1 || c.Export.JPEGQuality > 100 {
		return fmt.Errorf("export.jpeg_quality must be between 1 and 100")
	}

	if c.Export.Concurrency < 0 {
		return fmt.Errorf("export.concurrency cannot be negative")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "imged", "config.json")
}
