// Package registry holds the tool definitions extracted calls are checked
// against. Validation never rejects a call; it annotates, so downstream
// consumers decide whether an unknown tool or a missing argument matters.
package registry

import (
	"fmt"
	"sort"

	"github.com/sift-ai/sift/internal/extract"
)

// Parameter describes one tool parameter.
type Parameter struct {
	Type        string   `json:"type"` // string, number, boolean, array, object
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
}

// Definition describes a tool's call surface.
type Definition struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Parameters  map[string]Parameter `json:"parameters"`
}

// Builder provides a fluent interface for building tool definitions.
type Builder struct {
	def *Definition
}

// NewDefinition creates a definition builder.
func NewDefinition(name, description string) *Builder {
	return &Builder{
		def: &Definition{
			Name:        name,
			Description: description,
			Parameters:  make(map[string]Parameter),
		},
	}
}

// AddParam adds a parameter to the definition.
func (b *Builder) AddParam(name, paramType, description string, required bool) *Builder {
	b.def.Parameters[name] = Parameter{
		Type:        paramType,
		Description: description,
		Required:    required,
	}
	return b
}

// AddEnum adds a string parameter restricted to the given values.
func (b *Builder) AddEnum(name, description string, required bool, values ...string) *Builder {
	b.def.Parameters[name] = Parameter{
		Type:        "string",
		Description: description,
		Required:    required,
		Enum:        values,
	}
	return b
}

// Build returns the definition.
func (b *Builder) Build() *Definition {
	return b.def
}

// Registry manages known tool definitions.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a definition to the registry.
func (r *Registry) Register(def *Definition) {
	r.defs[def.Name] = def
}

// Get retrieves a definition by name.
func (r *Registry) Get(name string) (*Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// List returns all registered tool names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Issue reasons reported by Validate.
const (
	IssueUnknownTool     = "unknown_tool"
	IssueMissingArgument = "missing_argument"
	IssueArgumentType    = "argument_type"
	IssueArgumentValue   = "argument_value"
)

// Issue is one validation finding against a call record.
type Issue struct {
	Reason string
	Detail string
}

// Validate checks a decoded call against the registered definitions.
func (r *Registry) Validate(rec *extract.CallRecord) []Issue {
	def, ok := r.defs[rec.Name]
	if !ok {
		return []Issue{{
			Reason: IssueUnknownTool,
			Detail: fmt.Sprintf("tool %q is not registered", rec.Name),
		}}
	}

	var issues []Issue
	names := make([]string, 0, len(def.Parameters))
	for name := range def.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		param := def.Parameters[name]
		value, present := rec.Args[name]
		if !present {
			if param.Required {
				issues = append(issues, Issue{
					Reason: IssueMissingArgument,
					Detail: fmt.Sprintf("%s: required argument %q missing", rec.Name, name),
				})
			}
			continue
		}
		if !typeMatches(param.Type, value.Kind) {
			issues = append(issues, Issue{
				Reason: IssueArgumentType,
				Detail: fmt.Sprintf("%s: argument %q should be %s", rec.Name, name, param.Type),
			})
			continue
		}
		if len(param.Enum) > 0 && !contains(param.Enum, value.Str) {
			issues = append(issues, Issue{
				Reason: IssueArgumentValue,
				Detail: fmt.Sprintf("%s: argument %q must be one of %v", rec.Name, name, param.Enum),
			})
		}
	}
	return issues
}

func typeMatches(paramType string, kind extract.ValueKind) bool {
	switch paramType {
	case "string":
		return kind == extract.ValueString
	case "number":
		return kind == extract.ValueNumber
	case "boolean":
		return kind == extract.ValueBool
	case "array":
		return kind == extract.ValueArray
	case "object":
		return kind == extract.ValueObject
	default:
		return true
	}
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
