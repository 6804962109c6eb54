package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	duration "github.com/ChannelMeter/iso8601duration"
	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Calendars       []CalendarConfig   `yaml:"calendars"`
	DefaultCalendar string             `yaml:"default_calendar,omitempty"`
	Notification    NotificationConfig `yaml:"notification"`
	Logging         LoggingConfig      `yaml:"logging"`
}

// CalendarConfig bootstraps one named calendar and the directories whose
// dropped CSV/ICS files feed into it.
type CalendarConfig struct {
	Name       string   `yaml:"name"`
	Timezone   string   `yaml:"timezone"`
	ImportDirs []string `yaml:"import_dirs,omitempty"`
}

// NotificationConfig controls the upcoming-event notifier.
type NotificationConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Lead       string `yaml:"lead"`        // ISO-8601 duration, e.g. PT15M
	DurationMS int    `yaml:"duration_ms"` // notification display time
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LeadDuration parses the notifier's lead window.
func (n NotificationConfig) LeadDuration() (time.Duration, error) {
	d, err := duration.FromString(n.Lead)
	if err != nil {
		return 0, fmt.Errorf("invalid lead duration %q: %w", n.Lead, err)
	}
	return d.ToDuration(), nil
}

// ExpandPaths expands ~ and environment variables in the import
// directories.
func (c *CalendarConfig) ExpandPaths() error {
	for i, dir := range c.ImportDirs {
		expanded := os.ExpandEnv(dir)
		if len(expanded) > 0 && expanded[0] == '~' {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}
			expanded = filepath.Join(homeDir, expanded[1:])
		}
		c.ImportDirs[i] = expanded
	}
	return nil
}

// Validate checks if the configuration is valid and fills defaults.
func (c *Config) Validate() error {
	if len(c.Calendars) == 0 {
		return fmt.Errorf("at least one calendar must be configured")
	}

	names := make(map[string]bool)
	for i, cal := range c.Calendars {
		if cal.Name == "" {
			return fmt.Errorf("calendar %d: name cannot be empty", i)
		}
		if names[cal.Name] {
			return fmt.Errorf("calendar %d: duplicate name %q", i, cal.Name)
		}
		names[cal.Name] = true

		if cal.Timezone == "" {
			return fmt.Errorf("calendar %d: timezone cannot be empty", i)
		}
		if _, err := time.LoadLocation(cal.Timezone); err != nil {
			return fmt.Errorf("calendar %d: invalid timezone %q", i, cal.Timezone)
		}

		if err := c.Calendars[i].ExpandPaths(); err != nil {
			return fmt.Errorf("calendar %d: %w", i, err)
		}
	}

	if c.DefaultCalendar == "" {
		c.DefaultCalendar = c.Calendars[0].Name
	}
	if !names[c.DefaultCalendar] {
		return fmt.Errorf("default calendar %q is not configured", c.DefaultCalendar)
	}

	if c.Notification.Lead == "" {
		c.Notification.Lead = "PT15M"
	}
	if _, err := c.Notification.LeadDuration(); err != nil {
		return err
	}
	if c.Notification.DurationMS <= 0 {
		c.Notification.DurationMS = 5000
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}

	return nil
}

// Load loads configuration from XDG-compliant locations.
func Load() (*Config, error) {
	configPath, err := xdg.SearchConfigFile("calsched/config.yaml")
	if err != nil {
		configPath, err = xdg.ConfigFile("calsched/config.yaml")
		if err != nil {
			return nil, fmt.Errorf("failed to determine config file path: %w", err)
		}
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s", configPath)
		}
	}

	return LoadFromFile(configPath)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Calendars: []CalendarConfig{
			{
				Name:     "personal",
				Timezone: "America/New_York",
			},
		},
		Notification: NotificationConfig{
			Enabled:    true,
			Lead:       "PT15M",
			DurationMS: 5000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// WriteDefaultConfig writes a default configuration to the XDG config
// directory.
func WriteDefaultConfig() (string, error) {
	configPath, err := xdg.ConfigFile("calsched/config.yaml")
	if err != nil {
		return "", fmt.Errorf("failed to determine config file path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	config := DefaultConfig()
	data, err := yaml.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return configPath, nil
}
