package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultDutyCycle      = 0.5
)

// Duration unmarshals YAML values like "4ms" or "10s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}

	*d = Duration(parsed)
	return nil
}

// LogLevel unmarshals YAML values like "debug" or "warn".
type LogLevel slog.Level

func (l *LogLevel) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return fmt.Errorf("parsing log level %q: %w", raw, err)
	}

	*l = LogLevel(level)
	return nil
}

// Config represents the main application configuration
type Config struct {
	Settings  Settings          `yaml:"settings"`
	Generator *InstrumentConfig `yaml:"generator"`
	Analyzer  InstrumentConfig  `yaml:"analyzer"`
	Waveform  WaveformConfig    `yaml:"waveform"`
	Storage   StorageConfig     `yaml:"storage"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel       LogLevel `yaml:"logLevel"`
	ConnectTimeout Duration `yaml:"connectTimeout"`
}

// InstrumentConfig addresses a single instrument. Resource accepts a
// VISA resource string or a plain host:port pair.
type InstrumentConfig struct {
	Resource string `yaml:"resource"`
}

// WaveformConfig describes the WLAN burst to generate and measure.
type WaveformConfig struct {
	Standard    string   `yaml:"standard"`
	Bandwidth   string   `yaml:"bandwidth"`
	MCS         string   `yaml:"mcs"`
	BurstLength Duration `yaml:"burstLength"`
	DutyCycle   float64  `yaml:"dutyCycle"`
	Frequency   float64  `yaml:"frequency"` // Hz
	Power       float64  `yaml:"power"`     // dBm
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
}

// LoadConfig reads and validates the configuration file. A missing
// generator section is allowed: the analyzer then runs against an
// externally managed signal source.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	config := Config{
		Settings: Settings{
			LogLevel:       LogLevel(slog.LevelInfo),
			ConnectTimeout: Duration(defaultConnectTimeout),
		},
		Waveform: WaveformConfig{
			DutyCycle: defaultDutyCycle,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	if c.Analyzer.Resource == "" {
		return fmt.Errorf("analyzer resource is required")
	}
	if c.Generator != nil && c.Generator.Resource == "" {
		return fmt.Errorf("generator resource is empty")
	}
	if c.Generator != nil {
		if c.Waveform.BurstLength <= 0 {
			return fmt.Errorf("waveform burst length must be positive")
		}
		if c.Waveform.DutyCycle <= 0 || c.Waveform.DutyCycle > 1 {
			return fmt.Errorf("waveform duty cycle must be in (0, 1]")
		}
	}
	return nil
}
