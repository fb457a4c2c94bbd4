package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sift-ai/sift/internal/extract"
)

func weatherRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewDefinition("get_weather", "Look up current weather").
		AddParam("location", "string", "City and country", true).
		AddEnum("temp_unit", "Unit for temperatures", false, "celsius", "fahrenheit").
		Build())
	r.Register(NewDefinition("ping", "Check host reachability").
		AddParam("host", "string", "Hostname", true).
		AddParam("count", "number", "Probe count", false).
		Build())
	return r
}

func TestListIsSorted(t *testing.T) {
	assert.Equal(t, []string{"get_weather", "ping"}, weatherRegistry().List())
}

func TestValidateKnownCall(t *testing.T) {
	issues := weatherRegistry().Validate(&extract.CallRecord{
		Name: "get_weather",
		Args: map[string]extract.Value{
			"location":  extract.StringValue("Riyadh"),
			"temp_unit": extract.StringValue("celsius"),
		},
	})
	assert.Empty(t, issues)
}

func TestValidateUnknownTool(t *testing.T) {
	issues := weatherRegistry().Validate(&extract.CallRecord{Name: "teleport"})
	require.Len(t, issues, 1)
	assert.Equal(t, IssueUnknownTool, issues[0].Reason)
}

func TestValidateMissingRequiredArgument(t *testing.T) {
	issues := weatherRegistry().Validate(&extract.CallRecord{Name: "get_weather"})
	require.Len(t, issues, 1)
	assert.Equal(t, IssueMissingArgument, issues[0].Reason)
	assert.Contains(t, issues[0].Detail, "location")
}

func TestValidateArgumentType(t *testing.T) {
	issues := weatherRegistry().Validate(&extract.CallRecord{
		Name: "ping",
		Args: map[string]extract.Value{
			"host":  extract.StringValue("example.com"),
			"count": extract.StringValue("three"),
		},
	})
	require.Len(t, issues, 1)
	assert.Equal(t, IssueArgumentType, issues[0].Reason)
}

func TestValidateEnumValue(t *testing.T) {
	issues := weatherRegistry().Validate(&extract.CallRecord{
		Name: "get_weather",
		Args: map[string]extract.Value{
			"location":  extract.StringValue("Paris"),
			"temp_unit": extract.StringValue("kelvin"),
		},
	})
	require.Len(t, issues, 1)
	assert.Equal(t, IssueArgumentValue, issues[0].Reason)
}
