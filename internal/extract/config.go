package extract

import (
	"github.com/sift-ai/sift/internal/errors"
)

// DefaultMaxCallBytes caps how much call-body text a scanner will buffer
// before giving up on the call. Generous compared to real model output;
// exists so a stream that opens a call and never closes it cannot grow the
// accumulation buffer without bound.
const DefaultMaxCallBytes = 64 * 1024

// Config carries the delimiter convention and decoding options for one
// stream. The delimiter strings must be kept in lock-step with whatever the
// prompt layer instructs the model to emit; they are configuration, never
// literals baked into scanning logic. Each ScanState receives its own copy,
// so concurrent streams may use different conventions.
type Config struct {
	// Start is the literal marker that opens a call.
	Start string

	// End is the literal marker that closes a call. The scanner locates the
	// end of the call body by bracket balance; End is then absorbed into the
	// call's raw span. It may share its first character with the closing
	// bracket (e.g. ")}}"), and may be empty for conventions that rely on
	// bracket balance alone.
	End string

	// MaxCallBytes bounds the accumulation buffer for a single call.
	// Zero selects DefaultMaxCallBytes.
	MaxCallBytes int

	// LenientRepair enables a one-shot repair pass over brace-delimited
	// argument payloads that fail strict decoding.
	LenientRepair bool
}

// presets are the delimiter conventions of the model families this engine
// has been pointed at. Names line up with the prompt templates that teach
// the model the convention.
var presets = map[string]Config{
	"medgemma": {Start: "```tool_code", End: "```"},
	"gemma":    {Start: "<start_function_call>call:", End: "<end_function_call>"},
	"xml":      {Start: "<tool_call>", End: "</tool_call>"},
}

// Preset returns the named delimiter convention.
func Preset(name string) (Config, bool) {
	cfg, ok := presets[name]
	return cfg, ok
}

// PresetNames lists the known conventions.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.Start == "" {
		return errors.New(errors.CodeConfigInvalid, "start delimiter must not be empty", errors.CategoryConfig)
	}
	if c.MaxCallBytes == 0 {
		c.MaxCallBytes = DefaultMaxCallBytes
	}
	if c.MaxCallBytes < len(c.Start)+len(c.End) {
		return errors.New(errors.CodeConfigInvalid, "max call bytes smaller than the delimiters", errors.CategoryConfig)
	}
	return nil
}
