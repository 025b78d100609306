// Package config manages application-level configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fonzi/openvpn3-gui/internal/fileutil"
)

const (
	// AppName is the application identifier used for XDG paths.
	AppName = "openvpn3-gui"
	// ConfigFileName is the name of the main configuration file.
	ConfigFileName = "config.json"
	// RecentFileName is the name of the recent-config list file.
	RecentFileName = "recent_configs.txt"
)

// Config represents the application configuration.
type Config struct {
	// OpenVPN3Path is the openvpn3 binary; empty means PATH lookup.
	OpenVPN3Path string `json:"openvpn3_path"`
	// PingTarget is the address probed for latency.
	PingTarget string `json:"ping_target"`
	// LastConfigPath remembers the most recently used VPN config.
	LastConfigPath string `json:"last_config_path,omitempty"`
	// ShowGraph controls traffic graph visibility.
	ShowGraph bool `json:"show_graph"`
	// AutoReconnect is a stored preference; no reconnection logic
	// consumes it yet.
	AutoReconnect bool `json:"auto_reconnect"`
	// RememberChallengeSecret enables keyring storage of the last
	// submitted challenge response per VPN config.
	RememberChallengeSecret bool `json:"remember_challenge_secret"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OpenVPN3Path: "",
		PingTarget:   "8.8.8.8",
		ShowGraph:    true,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.PingTarget == "" {
		return fmt.Errorf("ping target must not be empty")
	}
	return nil
}

// Paths holds the resolved configuration file locations.
type Paths struct {
	ConfigDir  string
	ConfigFile string
	RecentFile string
}

// GetPaths returns the configuration paths following XDG Base Directory spec.
func GetPaths() (*Paths, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configHome = filepath.Join(homeDir, ".config")
	}

	configDir := filepath.Join(configHome, AppName)
	return &Paths{
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, ConfigFileName),
		RecentFile: filepath.Join(configDir, RecentFileName),
	}, nil
}

// EnsurePaths creates the configuration directory.
func (p *Paths) EnsurePaths() error {
	if err := os.MkdirAll(p.ConfigDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// Load reads the configuration from disk. A missing file yields the
// defaults, not an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to disk atomically.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := fileutil.AtomicWrite(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Manager provides high-level configuration management.
// It is safe for concurrent use from multiple goroutines.
type Manager struct {
	paths  *Paths       // Immutable after construction
	config *Config      // Protected by mu
	mu     sync.RWMutex // Protects config only
}

// NewManager creates a new configuration manager. It ensures the config
// directory exists and loads the configuration.
func NewManager() (*Manager, error) {
	paths, err := GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get config paths: %w", err)
	}
	return NewManagerWithPaths(paths)
}

// NewManagerWithPaths creates a configuration manager over explicit
// paths. This is primarily used for testing.
func NewManagerWithPaths(paths *Paths) (*Manager, error) {
	if err := paths.EnsurePaths(); err != nil {
		return nil, fmt.Errorf("failed to create config directories: %w", err)
	}

	cfg, err := Load(paths.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &Manager{
		paths:  paths,
		config: cfg,
	}, nil
}

// GetConfig returns a copy of the current configuration.
// The returned copy is safe to read without holding locks.
func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := *m.config
	return &cfg
}

// GetRecentFile returns the path of the recent-config list file.
func (m *Manager) GetRecentFile() string {
	return m.paths.RecentFile
}

// UpdateField atomically updates a single config field using a mutator
// function and saves the result. If validation fails, the original
// config is preserved.
func (m *Manager) UpdateField(mutator func(cfg *Config)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	configCopy := *m.config
	mutator(&configCopy)
	if err := configCopy.Validate(); err != nil {
		return err
	}

	*m.config = configCopy
	return Save(m.paths.ConfigFile, m.config)
}
