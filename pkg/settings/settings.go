// Package settings manages persistent user settings for the ifdesc CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Fallbacks used when a setting is not configured.
const (
	DefaultOutputDir      = "."
	DefaultConnectTimeout = 10 * time.Second
	DefaultCommandTimeout = 30 * time.Second
	DefaultLogLevel       = "warn"
)

// Settings holds persistent user preferences
type Settings struct {
	// OutputDir receives check mode files, backups and the failure log
	OutputDir string `json:"output_dir,omitempty"`

	// Inventory is the device list used when -i is not specified
	Inventory string `json:"inventory,omitempty"`

	// Plan is the description plan used when -p is not specified
	Plan string `json:"plan,omitempty"`

	// KnownHosts enables SSH host key checking against this file
	KnownHosts string `json:"known_hosts,omitempty"`

	// ConnectTimeout and CommandTimeout are Go durations, e.g. "15s"
	ConnectTimeout string `json:"connect_timeout,omitempty"`
	CommandTimeout string `json:"command_timeout,omitempty"`

	// TakeBackups saves running-config before and after each change
	TakeBackups bool `json:"take_backups,omitempty"`

	// RollbackFile writes the commands that undo each change
	RollbackFile bool `json:"rollback_file,omitempty"`

	LogLevel string `json:"log_level,omitempty"`
}

// Names lists the settings accepted by Get and Set.
var Names = []string{
	"output_dir", "inventory", "plan", "known_hosts",
	"connect_timeout", "command_timeout", "take_backups", "rollback_file", "log_level",
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ifdesc_settings.json"
	}
	return filepath.Join(home, ".ifdesc", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Get returns the value of a setting as text, "" when unset.
func (s *Settings) Get(name string) (string, error) {
	switch name {
	case "output_dir":
		return s.OutputDir, nil
	case "inventory":
		return s.Inventory, nil
	case "plan":
		return s.Plan, nil
	case "known_hosts":
		return s.KnownHosts, nil
	case "connect_timeout":
		return s.ConnectTimeout, nil
	case "command_timeout":
		return s.CommandTimeout, nil
	case "take_backups":
		return formatBool(s.TakeBackups), nil
	case "rollback_file":
		return formatBool(s.RollbackFile), nil
	case "log_level":
		return s.LogLevel, nil
	}
	return "", unknownSetting(name)
}

// Set parses value and stores it. Durations and booleans are validated.
func (s *Settings) Set(name, value string) error {
	switch name {
	case "output_dir":
		s.OutputDir = value
	case "inventory":
		s.Inventory = value
	case "plan":
		s.Plan = value
	case "known_hosts":
		s.KnownHosts = value
	case "connect_timeout", "command_timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if name == "connect_timeout" {
			s.ConnectTimeout = value
		} else {
			s.CommandTimeout = value
		}
	case "take_backups", "rollback_file":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if name == "take_backups" {
			s.TakeBackups = b
		} else {
			s.RollbackFile = b
		}
	case "log_level":
		s.LogLevel = value
	default:
		return unknownSetting(name)
	}
	return nil
}

// GetOutputDir returns the output directory (with fallback)
func (s *Settings) GetOutputDir() string {
	if s.OutputDir != "" {
		return s.OutputDir
	}
	return DefaultOutputDir
}

// GetConnectTimeout returns the connect timeout (with fallback)
func (s *Settings) GetConnectTimeout() time.Duration {
	return durationOr(s.ConnectTimeout, DefaultConnectTimeout)
}

// GetCommandTimeout returns the per-command timeout (with fallback)
func (s *Settings) GetCommandTimeout() time.Duration {
	return durationOr(s.CommandTimeout, DefaultCommandTimeout)
}

// GetLogLevel returns the log level (with fallback)
func (s *Settings) GetLogLevel() string {
	if s.LogLevel != "" {
		return s.LogLevel
	}
	return DefaultLogLevel
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}

func durationOr(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func formatBool(b bool) string {
	if !b {
		return ""
	}
	return "true"
}

func unknownSetting(name string) error {
	return fmt.Errorf("unknown setting: %s (valid: %v)", name, Names)
}
