package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/sift-ai/sift/internal/errors"
	"github.com/sift-ai/sift/internal/extract"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "medgemma", cfg.Scanner.Preset)
	assert.Equal(t, extract.DefaultMaxCallBytes, cfg.Scanner.MaxCallBytes)
	assert.True(t, cfg.Assembler.FallbackText)
	assert.False(t, cfg.Capture.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Scanner.Preset, cfg.Scanner.Preset)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[scanner]
preset = "gemma"
lenient_repair = true

[capture]
enabled = true
db_path = "~/captures/test.db"

[logging]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gemma", cfg.Scanner.Preset)
	assert.True(t, cfg.Scanner.LenientRepair)
	assert.True(t, cfg.Capture.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// ~ expansion.
	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "captures/test.db"), cfg.Capture.DBPath)

	// Unset sections keep their defaults.
	assert.True(t, cfg.Assembler.FallbackText)
}

func TestLoadMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not toml ["), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeConfigLoad))
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Scanner.Preset = "xml"
	cfg.Logging.Level = "warn"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "xml", loaded.Scanner.Preset)
	assert.Equal(t, "warn", loaded.Logging.Level)
}

func TestScanConfigResolvesPreset(t *testing.T) {
	cfg := Default()
	cfg.Scanner.Preset = "gemma"

	sc, err := cfg.ScanConfig()
	require.NoError(t, err)
	assert.Equal(t, "<start_function_call>call:", sc.Start)
	assert.Equal(t, "<end_function_call>", sc.End)
}

func TestScanConfigExplicitDelimitersOverridePreset(t *testing.T) {
	cfg := Default()
	cfg.Scanner.Preset = "medgemma"
	cfg.Scanner.Start = "{{call: "
	cfg.Scanner.End = ")}}"

	sc, err := cfg.ScanConfig()
	require.NoError(t, err)
	assert.Equal(t, "{{call: ", sc.Start)
	assert.Equal(t, ")}}", sc.End)
}

func TestScanConfigUnknownPreset(t *testing.T) {
	cfg := Default()
	cfg.Scanner.Preset = "nope"

	_, err := cfg.ScanConfig()
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeConfigInvalid))
}

func TestConventionName(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "medgemma", cfg.ConventionName())

	cfg.Scanner.Preset = ""
	assert.Equal(t, "custom", cfg.ConventionName())
}
