// Package config loads slidecore configuration from YAML files and
// applies defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vishalpatel2890/slidecore/export"
)

// Config is the top-level slidecore configuration.
type Config struct {
	Deck    DeckConfig               `yaml:"deck"`
	Edit    EditConfig               `yaml:"edit"`
	Capture CaptureConfig            `yaml:"capture"`
	Gate    GateConfig               `yaml:"gate"`
	Presets map[string]export.Preset `yaml:"presets"`
	Browser BrowserConfig            `yaml:"browser"`
	Audit   AuditConfig              `yaml:"audit"`
	Bridge  BridgeConfig             `yaml:"bridge"`
}

// DeckConfig identifies the deck being authored.
type DeckConfig struct {
	ID string `yaml:"id"`
}

// EditConfig tunes the live-edit persistence protocol.
type EditConfig struct {
	DebounceWindow time.Duration `yaml:"debounce_window"`
	SavedIndicator time.Duration `yaml:"saved_indicator"`
	ErrorIndicator time.Duration `yaml:"error_indicator"`
}

// CaptureConfig tunes the export pipeline.
type CaptureConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// GateConfig tunes the surface readiness gate.
type GateConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	MaxAttempts    int           `yaml:"max_attempts"`
	ObserveTimeout time.Duration `yaml:"observe_timeout"`
}

// BrowserConfig locates the rendering surface's browser.
type BrowserConfig struct {
	Remote string `yaml:"remote"`
}

// AuditConfig locates the audit event log.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// BridgeConfig configures the HTTP host bridge.
type BridgeConfig struct {
	Listen string `yaml:"listen"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Edit: EditConfig{
			DebounceWindow: 150 * time.Millisecond,
			SavedIndicator: 2 * time.Second,
			ErrorIndicator: 5 * time.Second,
		},
		Capture: CaptureConfig{Timeout: 30 * time.Second},
		Gate: GateConfig{
			PollInterval:   50 * time.Millisecond,
			MaxAttempts:    10,
			ObserveTimeout: 2 * time.Second,
		},
		Presets: export.DefaultPresets(),
		Audit:   AuditConfig{Path: "db/audit.db"},
		Bridge:  BridgeConfig{Listen: ":8090"},
	}
}

// LoadFile reads a YAML configuration file over the defaults. A missing
// file is not an error: the defaults stand.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Defaults()
	if c.Edit.DebounceWindow <= 0 {
		c.Edit.DebounceWindow = d.Edit.DebounceWindow
	}
	if c.Edit.SavedIndicator <= 0 {
		c.Edit.SavedIndicator = d.Edit.SavedIndicator
	}
	if c.Edit.ErrorIndicator <= 0 {
		c.Edit.ErrorIndicator = d.Edit.ErrorIndicator
	}
	if c.Capture.Timeout <= 0 {
		c.Capture.Timeout = d.Capture.Timeout
	}
	if c.Gate.PollInterval <= 0 {
		c.Gate.PollInterval = d.Gate.PollInterval
	}
	if c.Gate.MaxAttempts <= 0 {
		c.Gate.MaxAttempts = d.Gate.MaxAttempts
	}
	if c.Gate.ObserveTimeout <= 0 {
		c.Gate.ObserveTimeout = d.Gate.ObserveTimeout
	}
	if len(c.Presets) == 0 {
		c.Presets = d.Presets
	}
	if c.Audit.Path == "" {
		c.Audit.Path = d.Audit.Path
	}
	if c.Bridge.Listen == "" {
		c.Bridge.Listen = d.Bridge.Listen
	}
}
