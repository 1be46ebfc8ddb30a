package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/PortableShelf/internal/shared/paths"
)

// Config holds all application configuration.
type Config struct {
	Library   LibraryConfig   `yaml:"library" toml:"library"`
	Launch    LaunchConfig    `yaml:"launch" toml:"launch"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Remote    RemoteConfig    `yaml:"remote" toml:"remote"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
}

// LibraryConfig locates the managed apps and controls scanning.
type LibraryConfig struct {
	AppsDir        string   `envconfig:"SHELF_APPS_DIR" yaml:"apps_dir" toml:"apps_dir"`
	IconsDir       string   `envconfig:"SHELF_ICONS_DIR" yaml:"icons_dir" toml:"icons_dir"`
	StorePath      string   `envconfig:"SHELF_STORE_PATH" yaml:"store_path" toml:"store_path"`
	IconExt        string   `envconfig:"SHELF_ICON_EXT" default:"ico" yaml:"icon_ext" toml:"icon_ext"`
	ScanPatterns   []string `envconfig:"SHELF_SCAN_PATTERNS" default:"**/*.exe" yaml:"scan_patterns" toml:"scan_patterns"`
	DetectBinaries bool     `envconfig:"SHELF_DETECT_BINARIES" default:"false" yaml:"detect_binaries" toml:"detect_binaries"`
	StrictRename   bool     `envconfig:"SHELF_STRICT_RENAME" default:"false" yaml:"strict_rename" toml:"strict_rename"`
}

// LaunchConfig controls process spawning.
type LaunchConfig struct {
	// ElevateCommand wraps elevated launches on platforms without a UAC verb.
	ElevateCommand string `envconfig:"SHELF_ELEVATE_CMD" default:"pkexec" yaml:"elevate_command" toml:"elevate_command"`
}

// ServerConfig holds daemon listen configuration.
type ServerConfig struct {
	Host string `envconfig:"SHELF_HOST" default:"127.0.0.1" yaml:"host" toml:"host"`
	Port string `envconfig:"SHELF_PORT" default:"7420" yaml:"port" toml:"port"`
}

// RemoteConfig points the CLI at a running daemon.
type RemoteConfig struct {
	Addr           string `envconfig:"SHELF_REMOTE" yaml:"addr" toml:"addr"`
	TimeoutSeconds int    `envconfig:"SHELF_REMOTE_TIMEOUT" default:"10" yaml:"timeout_seconds" toml:"timeout_seconds"`
	Retries        int    `envconfig:"SHELF_REMOTE_RETRIES" default:"2" yaml:"retries" toml:"retries"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development" toml:"development"`
}

// RateLimitConfig holds daemon rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50" yaml:"rps" toml:"rps"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled" toml:"enabled"`
}

// Load loads configuration from environment variables and fills in the
// default data directory layout.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.resolve()
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadWithFile loads the environment and then overlays a YAML or TOML file.
// Keys present in the file win over the environment.
func LoadWithFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}
	if err := cfg.Overlay(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Overlay decodes the file at path over c. The format is picked by extension.
func (c *Config) Overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.resolve()
	return nil
}

// Addr returns the daemon listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// Default returns default configuration.
func Default() *Config {
	cfg := &Config{
		Library: LibraryConfig{
			IconExt:      paths.DefaultIconExt,
			ScanPatterns: []string{"**/*.exe"},
		},
		Launch: LaunchConfig{
			ElevateCommand: "pkexec",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: "7420",
		},
		Remote: RemoteConfig{
			TimeoutSeconds: 10,
			Retries:        2,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
	cfg.resolve()
	return cfg
}

func (c *Config) resolve() {
	if c.Library.AppsDir == "" {
		c.Library.AppsDir = paths.AppsDir()
	}
	if c.Library.IconsDir == "" {
		c.Library.IconsDir = paths.IconsDir()
	}
	if c.Library.StorePath == "" {
		c.Library.StorePath = paths.StorePath()
	}
	if c.Library.IconExt == "" {
		c.Library.IconExt = paths.DefaultIconExt
	}
	if len(c.Library.ScanPatterns) == 0 {
		c.Library.ScanPatterns = []string{"**/*.exe"}
	}
	for _, dir := range []*string{&c.Library.AppsDir, &c.Library.IconsDir, &c.Library.StorePath} {
		if abs, err := filepath.Abs(*dir); err == nil {
			*dir = abs
		}
	}
}
