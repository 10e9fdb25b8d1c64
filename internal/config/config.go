// Package config provides YAML-based configuration with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrMissingBackendURL is returned by Validate when no backend base URL is
// configured. The server refuses to start in that case; there is no default.
var ErrMissingBackendURL = errors.New("backend base URL is not configured: set BACKEND_URL or backend.base_url in config.yaml")

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Storage StorageConfig `yaml:"storage"`
	Session SessionConfig `yaml:"session"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bind_address"`
	EnableCORS   bool   `yaml:"enable_cors"`
	AllowOrigins string `yaml:"allow_origins"`
	ReadTimeout  int    `yaml:"read_timeout_seconds"`
	WriteTimeout int    `yaml:"write_timeout_seconds"`
	IdleTimeout  int    `yaml:"idle_timeout_seconds"`
	BodyLimit    string `yaml:"body_limit"`
}

// BackendConfig describes the remote analysis service.
type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// StorageConfig contains settings for the ephemeral upload store.
type StorageConfig struct {
	TempDirectory string `yaml:"temp_directory"`
	MaxUploadSize int64  `yaml:"max_upload_size_bytes"`
	MaxFiles      int    `yaml:"max_files_per_upload"`
}

// SessionConfig contains session lifecycle settings.
type SessionConfig struct {
	TimeoutMinutes         int `yaml:"timeout_minutes"`
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`
}

// CacheConfig bounds the in-memory analysis result cache.
type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxEntries int  `yaml:"max_entries"`
}

// LoggingConfig contains logging options.
type LoggingConfig struct {
	Level                string `yaml:"level"`
	EnableRequestLogging bool   `yaml:"enable_request_logging"`
}

// DefaultConfig returns the default configuration. The backend base URL is
// deliberately left empty; startup fails unless the operator supplies one.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 120,
			IdleTimeout:  120,
			BodyLimit:    "100M",
		},
		Backend: BackendConfig{
			BaseURL:        "",
			APIKey:         "",
			TimeoutSeconds: 120,
		},
		Storage: StorageConfig{
			TempDirectory: "./data/uploads",
			MaxUploadSize: 50 * 1024 * 1024,
			MaxFiles:      20,
		},
		Session: SessionConfig{
			TimeoutMinutes:         30,
			CleanupIntervalMinutes: 5,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 64,
		},
		Logging: LoggingConfig{
			Level:                "info",
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file, creating a default file
// on first run, then applies environment overrides.
func LoadConfig(configPath string) (*AppConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save writes the configuration to a YAML file.
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# PDF Analyzer configuration\n# Auto-generated on first run. BACKEND_URL must be set via\n# environment or backend.base_url below.\n\n")
	if err := os.WriteFile(configPath, append(header, output...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that required settings are present.
func (c *AppConfig) Validate() error {
	if c.Backend.BaseURL == "" {
		return ErrMissingBackendURL
	}
	return nil
}

func (c *AppConfig) applyEnvironmentOverrides() {
	if url := os.Getenv("BACKEND_URL"); url != "" {
		c.Backend.BaseURL = url
	}
	if key := os.Getenv("API_KEY"); key != "" {
		c.Backend.APIKey = key
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if dir := os.Getenv("UPLOAD_TEMP_DIR"); dir != "" {
		c.Storage.TempDirectory = dir
	}
}

func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.TempDirectory) {
		c.Storage.TempDirectory = filepath.Join(configDir, c.Storage.TempDirectory)
	}
}

// GetServerAddr returns the server bind address.
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates the upload temp directory.
func (c *AppConfig) EnsureDirectories() error {
	if err := os.MkdirAll(c.Storage.TempDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.Storage.TempDirectory, err)
	}
	return nil
}
