package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Audio device and stream settings
	Audio struct {
		InputDevice  string `yaml:"input_device"`
		OutputDevice string `yaml:"output_device"`
		SampleRate   uint32 `yaml:"sample_rate"`
		Channels     uint32 `yaml:"channels"`
		PeriodFrames uint32 `yaml:"period_frames"`
	} `yaml:"audio"`

	// Delay settings, all in milliseconds
	Delay struct {
		InitialMs int `yaml:"initial_ms"`
		MaxMs     int `yaml:"max_ms"`
		StepMs    int `yaml:"step_ms"`
	} `yaml:"delay"`

	// Gain settings as linear factors (1.0 = unity)
	Gain struct {
		Initial float64 `yaml:"initial"`
		Step    float64 `yaml:"step"`
	} `yaml:"gain"`

	// Record settings
	Record struct {
		File string `yaml:"file"`
	} `yaml:"record"`

	// Hotkey settings
	Hotkey struct {
		Toggle string `yaml:"toggle"`
	} `yaml:"hotkey"`

	// Log settings
	Log struct {
		Debug bool   `yaml:"debug"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Audio defaults: CD-rate stereo, ~2ms periods
	cfg.Audio.SampleRate = 44100
	cfg.Audio.Channels = 2
	cfg.Audio.PeriodFrames = 100

	// Delay defaults: 200ms is the usual DAF starting point
	cfg.Delay.InitialMs = 200
	cfg.Delay.MaxMs = 2000
	cfg.Delay.StepMs = 10

	// Gain defaults
	cfg.Gain.Initial = 1.0
	cfg.Gain.Step = 0.05

	return cfg
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadWithFallback attempts to load configuration from multiple locations
// Priority: explicit path > ~/.dafgenrc > /etc/dafgen/config.yaml
func LoadWithFallback(explicitPath string) (*Config, error) {
	// If explicit path is provided, use it
	if explicitPath != "" {
		return Load(explicitPath)
	}

	// Try user config (~/.dafgenrc)
	if userPath, err := UserConfigPath(); err == nil {
		if _, err := os.Stat(userPath); err == nil {
			cfg, err := Load(userPath)
			if err == nil {
				return cfg, nil
			}
		}
	}

	// Try system config (/etc/dafgen/config.yaml)
	systemConfigPath := "/etc/dafgen/config.yaml"
	if _, err := os.Stat(systemConfigPath); err == nil {
		cfg, err := Load(systemConfigPath)
		if err == nil {
			return cfg, nil
		}
	}

	// No config file found, return defaults
	return DefaultConfig(), nil
}

// UserConfigPath returns the per-user config file location (~/.dafgenrc)
func UserConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(homeDir, ".dafgenrc"), nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveLastUsed persists the last-used delay, gain and device selection to
// the per-user config so the next session starts from the same settings.
func SaveLastUsed(delayMs int, gain float64, inputDevice, outputDevice string) error {
	path, err := UserConfigPath()
	if err != nil {
		return err
	}

	// Preserve any hand-edited settings in the existing file.
	cfg, err := Load(path)
	if err != nil {
		cfg = DefaultConfig()
	}

	cfg.Delay.InitialMs = delayMs
	cfg.Gain.Initial = gain
	cfg.Audio.InputDevice = inputDevice
	cfg.Audio.OutputDevice = outputDevice

	return cfg.Save(path)
}
