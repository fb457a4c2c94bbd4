// Package config handles engine configuration loading and management.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	apperr "github.com/sift-ai/sift/internal/errors"
	"github.com/sift-ai/sift/internal/extract"
)

// Config is the on-disk engine configuration.
type Config struct {
	Scanner   ScannerConfig   `toml:"scanner"`
	Assembler AssemblerConfig `toml:"assembler"`
	Capture   CaptureConfig   `toml:"capture"`
	Logging   LoggingConfig   `toml:"logging"`
}

// ScannerConfig selects the delimiter convention and decoding options.
type ScannerConfig struct {
	// Preset names a built-in delimiter convention. Start/End override it
	// when set.
	Preset string `toml:"preset"`
	Start  string `toml:"start"`
	End    string `toml:"end"`

	MaxCallBytes  int  `toml:"max_call_bytes"`
	LenientRepair bool `toml:"lenient_repair"`
}

// AssemblerConfig controls how parse errors surface downstream.
type AssemblerConfig struct {
	// FallbackText re-emits malformed call spans as plain content instead
	// of dropping them.
	FallbackText bool `toml:"fallback_text"`
}

// CaptureConfig controls stream recording.
type CaptureConfig struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"`
}

// LoggingConfig controls diagnostics output.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".sift")

	return &Config{
		Scanner: ScannerConfig{
			Preset:       "medgemma",
			MaxCallBytes: extract.DefaultMaxCallBytes,
		},
		Assembler: AssemblerConfig{
			FallbackText: true,
		},
		Capture: CaptureConfig{
			Enabled: false,
			DBPath:  filepath.Join(dataDir, "capture.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads the configuration from the given path.
// If the file doesn't exist, returns defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, apperr.Wrap(err, apperr.CodeConfigLoad, "read config", apperr.CategoryConfig)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeConfigLoad, "parse config", apperr.CategoryConfig)
	}

	expandPaths(cfg)
	return cfg, nil
}

// Save saves the configuration to the given path.
func (c *Config) Save(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	file, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	return encoder.Encode(c)
}

// ScanConfig resolves the scanner section into the per-stream engine
// configuration: preset first, explicit delimiters on top.
func (c *Config) ScanConfig() (extract.Config, error) {
	var out extract.Config
	if c.Scanner.Preset != "" {
		preset, ok := extract.Preset(c.Scanner.Preset)
		if !ok {
			return extract.Config{}, apperr.New(apperr.CodeConfigInvalid,
				"unknown scanner preset "+c.Scanner.Preset, apperr.CategoryConfig)
		}
		out = preset
	}
	if c.Scanner.Start != "" {
		out.Start = c.Scanner.Start
	}
	if c.Scanner.End != "" {
		out.End = c.Scanner.End
	}
	if c.Scanner.MaxCallBytes != 0 {
		out.MaxCallBytes = c.Scanner.MaxCallBytes
	}
	out.LenientRepair = c.Scanner.LenientRepair

	if err := out.Validate(); err != nil {
		return extract.Config{}, err
	}
	return out, nil
}

// ConventionName returns the label used when capturing streams.
func (c *Config) ConventionName() string {
	if c.Scanner.Preset != "" {
		return c.Scanner.Preset
	}
	return "custom"
}

// expandPaths expands ~ in paths.
func expandPaths(cfg *Config) {
	homeDir, _ := os.UserHomeDir()

	if len(cfg.Capture.DBPath) > 0 && cfg.Capture.DBPath[0] == '~' {
		cfg.Capture.DBPath = filepath.Join(homeDir, cfg.Capture.DBPath[1:])
	}
	if len(cfg.Logging.File) > 0 && cfg.Logging.File[0] == '~' {
		cfg.Logging.File = filepath.Join(homeDir, cfg.Logging.File[1:])
	}
}
