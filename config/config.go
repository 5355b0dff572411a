// Package config loads the panel configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Widget names accepted in [Config.Widgets].
const (
	WidgetStatusNotifier = "statusnotifier"
	WidgetMailbox        = "mailbox"
	WidgetNetLoad        = "netload"
	WidgetCPULoad        = "cpuload"
	WidgetBattery        = "battery"
	WidgetClock          = "clock"
)

var knownWidgets = map[string]bool{
	WidgetStatusNotifier: true,
	WidgetMailbox:        true,
	WidgetNetLoad:        true,
	WidgetCPULoad:        true,
	WidgetBattery:        true,
	WidgetClock:          true,
}

// Config holds the panel settings.
type Config struct {
	// X display to connect to. Empty means $DISPLAY.
	Display string `yaml:"display"`

	// Time between widget redraws.
	Interval time.Duration `yaml:"interval"`

	// Size of the widget buffer in pixels. Height is also the height of the
	// panel and of tray icons.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Widgets in drawing order, left to right.
	Widgets []string `yaml:"widgets"`

	// Power supply device shown by the battery widget.
	Battery string `yaml:"battery"`

	// Mail spool shown by the mailbox widget. Empty means $MAIL.
	Mailbox string `yaml:"mailbox"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Interval: 500 * time.Millisecond,
		Width:    500,
		Height:   20,
		Widgets: []string{
			WidgetMailbox,
			WidgetNetLoad,
			WidgetCPULoad,
			WidgetBattery,
			WidgetClock,
		},
		Battery: "BAT0",
	}
}

// Path returns the default location of the configuration file.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "panel", "config.yaml"), nil
}

// Load reads the configuration at path. Settings missing from the file keep
// their default values. A missing file yields [Default].
func Load(path string) (*Config, error) {
	cfg, err := LoadYAMLOrDefault(path, Default)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadYAMLOrDefault loads a YAML file over the value returned by defaultFn,
// or returns that value if the file doesn't exist.
func LoadYAMLOrDefault[T any](path string, defaultFn func() *T) (*T, error) {
	v := defaultFn()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return v, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("failed to parse YAML from %s: %w", path, err)
	}
	return v, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}

	if c.Width <= 0 || c.Width > 0xFFFF {
		return fmt.Errorf("width must be in [1, 65535], got %d", c.Width)
	}

	if c.Height <= 0 || c.Height > 0xFFFF {
		return fmt.Errorf("height must be in [1, 65535], got %d", c.Height)
	}

	seen := make(map[string]bool, len(c.Widgets))
	for _, name := range c.Widgets {
		if !knownWidgets[name] {
			return fmt.Errorf("unknown widget %q", name)
		}
		if seen[name] {
			return fmt.Errorf("widget %q listed twice", name)
		}
		seen[name] = true
	}

	return nil
}
