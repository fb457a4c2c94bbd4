package assemble

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sift-ai/sift/internal/extract"
	"github.com/sift-ai/sift/internal/registry"
)

func callEmission(name string, args map[string]extract.Value) extract.Emission {
	return extract.Call(&extract.CallRecord{Name: name, Args: args})
}

func TestCollectSeparatesContentAndCalls(t *testing.T) {
	emissions := []extract.Emission{
		extract.PlainText("before "),
		callEmission("lookup", map[string]extract.Value{"city": extract.StringValue("Paris")}),
		extract.PlainText(" after"),
	}

	result := New().Collect(emissions)

	assert.Equal(t, "before  after", result.Content)
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "lookup", result.ToolCalls[0].Name)
	assert.Equal(t, map[string]any{"city": "Paris"}, result.ToolCalls[0].Arguments)
	assert.True(t, result.ToolsCalled())
	assert.Empty(t, result.Diagnostics)
}

func TestCollectAssignsUniqueIDsAndOrderedIndexes(t *testing.T) {
	emissions := []extract.Emission{
		callEmission("first", nil),
		callEmission("second", nil),
	}

	result := New().Collect(emissions)

	require.Len(t, result.ToolCalls, 2)
	assert.Equal(t, 0, result.ToolCalls[0].Index)
	assert.Equal(t, 1, result.ToolCalls[1].Index)
	assert.True(t, strings.HasPrefix(result.ToolCalls[0].ID, "call-"))
	assert.NotEqual(t, result.ToolCalls[0].ID, result.ToolCalls[1].ID)
}

func TestCollectParseErrorBecomesDiagnostic(t *testing.T) {
	emissions := []extract.Emission{
		extract.PlainText("ok "),
		extract.Error(&extract.ParseError{
			Reason: extract.ReasonMalformedPayload,
			Detail: "unbalanced brackets",
			Raw:    "{{call: bad(}}",
		}),
	}

	result := New().Collect(emissions)

	assert.Equal(t, "ok ", result.Content)
	assert.False(t, result.ToolsCalled())
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, string(extract.ReasonMalformedPayload), result.Diagnostics[0].Reason)
	assert.Equal(t, "{{call: bad(}}", result.Diagnostics[0].Raw)
}

func TestCollectFallbackTextResurfacesRawSpan(t *testing.T) {
	emissions := []extract.Emission{
		extract.PlainText("ok "),
		extract.Error(&extract.ParseError{
			Reason: extract.ReasonTruncatedStream,
			Raw:    "{{call: cut(a=",
		}),
	}

	result := New(WithFallbackText()).Collect(emissions)

	assert.Equal(t, "ok {{call: cut(a=", result.Content)
	require.Len(t, result.Diagnostics, 1)
}

func TestCollectCallNotesBecomeDiagnostics(t *testing.T) {
	rec := &extract.CallRecord{
		Name: "foo",
		Args: map[string]extract.Value{"a": extract.NumberValue(2)},
		Notes: []extract.Note{
			{Reason: extract.ReasonDuplicateKey, Detail: `duplicate key "a"`},
		},
	}

	result := New().Collect([]extract.Emission{extract.Call(rec)})

	require.Len(t, result.ToolCalls, 1)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, string(extract.ReasonDuplicateKey), result.Diagnostics[0].Reason)
}

func TestCollectValidatesAgainstRegistry(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register(registry.NewDefinition("known", "a known tool").Build())

	result := New(WithRegistry(reg)).Collect([]extract.Emission{
		callEmission("known", nil),
		callEmission("unknown", nil),
	})

	require.Len(t, result.ToolCalls, 2)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, registry.IssueUnknownTool, result.Diagnostics[0].Reason)
}

func TestDeltaPlainText(t *testing.T) {
	a := New()

	d := a.Delta(extract.PlainText("hello"))
	require.NotNil(t, d)
	assert.Equal(t, "hello", d.Content)
	assert.Nil(t, d.ToolCall)

	assert.Nil(t, a.Delta(extract.PlainText("")))
}

func TestDeltaToolCallIndexesContinueAcrossDeltas(t *testing.T) {
	a := New()

	d1 := a.Delta(callEmission("one", nil))
	d2 := a.Delta(callEmission("two", nil))

	require.NotNil(t, d1.ToolCall)
	require.NotNil(t, d2.ToolCall)
	assert.Equal(t, 0, d1.ToolCall.Index)
	assert.Equal(t, 1, d2.ToolCall.Index)
}

func TestDeltaParseErrorCarriesFallbackContent(t *testing.T) {
	err := &extract.ParseError{Reason: extract.ReasonMalformedPayload, Raw: "raw span"}

	d := New().Delta(extract.Error(err))
	require.NotNil(t, d)
	require.NotNil(t, d.Diagnostic)
	assert.Empty(t, d.Content)

	d = New(WithFallbackText()).Delta(extract.Error(err))
	require.NotNil(t, d)
	assert.Equal(t, "raw span", d.Content)
}
