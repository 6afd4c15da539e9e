package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/CTAG07/Tidewatch/pkg/feed"
	"github.com/CTAG07/Tidewatch/pkg/rendering"
	"github.com/natefinch/atomic"
)

// ServerConfig holds the configuration for the HTTP servers.
type ServerConfig struct {
	ServerAddr      string `json:"server_addr"`
	ApiAddr         string `json:"api_addr"`
	LogLevel        string `json:"log_level"`
	DataDir         string `json:"data_dir"`
	DatabasePath    string `json:"database_path"`
	StaticPath      string `json:"static_path"`
	DefaultChannel  string `json:"default_channel"`
	AssessOnIngest  bool   `json:"assess_on_ingest"`
	RetainSnapshots int    `json:"retain_snapshots"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server    *ServerConfig      `json:"server_config"`
	Rendering *rendering.Config  `json:"rendering_config"`
	Assess    *feed.AssessConfig `json:"assess_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ServerAddr:      ":7377",
		ApiAddr:         ":7378",
		LogLevel:        "info",
		DataDir:         "./data",
		DatabasePath:    "./data/tidewatch.db?_journal_mode=WAL&_busy_timeout=5000",
		StaticPath:      "./data/static/",
		DefaultChannel:  "",
		AssessOnIngest:  true,
		RetainSnapshots: 30,
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	renderCfg := rendering.DefaultConfig()
	renderCfg.TemplateDir = "./data/templates"

	config := &Config{
		Server:    DefaultServerConfig(),
		Rendering: renderCfg,
		Assess:    feed.DefaultAssessConfig(),
	}

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Log a warning instead of failing, as the server can still run with defaults.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// ConfigManager handles thread-safe access to configuration and pushes
// rendering config updates to the rendering manager.
type ConfigManager struct {
	config     *Config
	mu         sync.RWMutex
	configPath string
	logger     *slog.Logger
	rm         *rendering.Manager
}

// NewConfigManager loads the config and initializes the manager.
func NewConfigManager(path string) (*ConfigManager, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	cm := &ConfigManager{
		config:     cfg,
		configPath: path,
		// Log to stdout before the application-specific logger is set.
		logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})),
	}

	return cm, nil
}

// SetRenderingManager registers the rendering manager to receive config updates.
func (cm *ConfigManager) SetRenderingManager(rm *rendering.Manager) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.rm = rm
	if rm != nil {
		rm.SetConfig(cm.config.Rendering)
	}
}

// SetLogger sets the logger. That's about it.
func (cm *ConfigManager) SetLogger(logger *slog.Logger) {
	cm.logger = logger
}

// Get returns a thread-safe copy of the current configuration.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	// Return a dereferenced copy to prevent external modification of the internal state
	return *cm.config
}

// Update updates the configuration, saves it to disk, and pushes the
// rendering portion to the rendering manager.
func (cm *ConfigManager) Update(newConfig Config) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	// If we have a rendering manager, try to apply the new config to it first.
	if cm.rm != nil {
		oldRenderConfig := cm.config.Rendering

		cm.rm.SetConfig(newConfig.Rendering)
		if err := cm.rm.Refresh(); err != nil {
			// Rollback to old config
			cm.rm.SetConfig(oldRenderConfig)
			_ = cm.rm.Refresh()
			return fmt.Errorf("rendering configuration rejected: %w", err)
		}
	}

	*cm.config = newConfig

	data, err := json.MarshalIndent(cm.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := atomic.WriteFile(cm.configPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
