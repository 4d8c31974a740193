// Package config loads checklist settings from a YAML file and CHECKLIST_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g.
// CHECKLIST_DOCUMENT_ID.
const EnvPrefix = "CHECKLIST"

// Config holds all settings.
type Config struct {
	// DocumentID and AccessKey identify the remote spreadsheet. Both must be
	// set for remote sync.
	DocumentID string `mapstructure:"document_id"`
	AccessKey  string `mapstructure:"access_key"`
	BaseURL    string `mapstructure:"base_url"`

	DBPath  string `mapstructure:"db_path"`
	LogFile string `mapstructure:"log_file"`

	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
	DebounceInterval time.Duration `mapstructure:"debounce_interval"`
	HTTPTimeout      time.Duration `mapstructure:"http_timeout"`

	DashboardPort int  `mapstructure:"dashboard_port"`
	AppendOnAdd   bool `mapstructure:"append_on_add"`
}

// Dir returns the per-user settings directory, ~/.checklist.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".checklist"
	}
	return filepath.Join(home, ".checklist")
}

// DefaultPath is the config file used when none is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		BaseURL:          "https://sheets.googleapis.com/v4/spreadsheets",
		DBPath:           filepath.Join(Dir(), "checklist.db"),
		LogFile:          filepath.Join(Dir(), "checklist.log"),
		RefreshInterval:  5 * time.Minute,
		DebounceInterval: 500 * time.Millisecond,
		DashboardPort:    8080,
	}
}

// IsRemoteConfigured reports whether both spreadsheet credentials are set.
func (c *Config) IsRemoteConfigured() bool {
	return strings.TrimSpace(c.DocumentID) != "" && strings.TrimSpace(c.AccessKey) != ""
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh_interval must not be negative")
	}
	if c.DebounceInterval < 0 {
		return fmt.Errorf("debounce_interval must not be negative")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must not be negative")
	}
	if c.DashboardPort < 0 || c.DashboardPort > 65535 {
		return fmt.Errorf("dashboard_port out of range: %d", c.DashboardPort)
	}
	return nil
}

// Load reads the config file at path, if it exists, and applies environment
// overrides on top of the defaults. An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	return load(path, true)
}

// LoadFile is Load without environment overrides. Use it to edit and Save
// the file without writing overrides into it.
func LoadFile(path string) (*Config, error) {
	return load(path, false)
}

func load(path string, env bool) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	def := Default()
	v.SetDefault("document_id", def.DocumentID)
	v.SetDefault("access_key", def.AccessKey)
	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("db_path", def.DBPath)
	v.SetDefault("log_file", def.LogFile)
	v.SetDefault("refresh_interval", def.RefreshInterval)
	v.SetDefault("debounce_interval", def.DebounceInterval)
	v.SetDefault("http_timeout", def.HTTPTimeout)
	v.SetDefault("dashboard_port", def.DashboardPort)
	v.SetDefault("append_on_add", def.AppendOnAdd)

	if env {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		v.AutomaticEnv()
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.DBPath = expandHome(cfg.DBPath)
	cfg.LogFile = expandHome(cfg.LogFile)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// fileConfig is the on-disk layout. Durations are written as strings
// ("5m0s") so the file stays readable.
type fileConfig struct {
	DocumentID       string `yaml:"document_id,omitempty"`
	AccessKey        string `yaml:"access_key,omitempty"`
	BaseURL          string `yaml:"base_url,omitempty"`
	DBPath           string `yaml:"db_path,omitempty"`
	LogFile          string `yaml:"log_file,omitempty"`
	RefreshInterval  string `yaml:"refresh_interval,omitempty"`
	DebounceInterval string `yaml:"debounce_interval,omitempty"`
	HTTPTimeout      string `yaml:"http_timeout,omitempty"`
	DashboardPort    int    `yaml:"dashboard_port,omitempty"`
	AppendOnAdd      bool   `yaml:"append_on_add,omitempty"`
}

func durationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

// Save writes cfg to path as YAML. The file is replaced atomically and is
// readable only by the owner since it holds the access key.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(fileConfig{
		DocumentID:       cfg.DocumentID,
		AccessKey:        cfg.AccessKey,
		BaseURL:          cfg.BaseURL,
		DBPath:           cfg.DBPath,
		LogFile:          cfg.LogFile,
		RefreshInterval:  durationString(cfg.RefreshInterval),
		DebounceInterval: durationString(cfg.DebounceInterval),
		HTTPTimeout:      durationString(cfg.HTTPTimeout),
		DashboardPort:    cfg.DashboardPort,
		AppendOnAdd:      cfg.AppendOnAdd,
	})
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename config: %w", err)
	}
	return nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
