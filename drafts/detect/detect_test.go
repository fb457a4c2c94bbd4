package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuessMedGemmaSample(t *testing.T) {
	sample := "Sure:\n```tool_code\nprint(get_weather(location='Paris'))\n```\n"
	preset, ok := Guess(sample)
	require.True(t, ok)
	assert.Equal(t, "medgemma", preset)
}

func TestGuessGemmaSample(t *testing.T) {
	sample := `<start_function_call>call:ping{"host": "example.com"}<end_function_call>`
	preset, ok := Guess(sample)
	require.True(t, ok)
	assert.Equal(t, "gemma", preset)
}

func TestGuessPlainProse(t *testing.T) {
	_, ok := Guess("nothing to see here, just prose.")
	assert.False(t, ok)
}
