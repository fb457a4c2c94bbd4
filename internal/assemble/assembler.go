// Package assemble is the downstream collaborator of the extraction engine:
// it folds ordered emission sequences into the externally-facing response
// shape. Plain text becomes content, call records become protocol tool
// calls, and parse errors become either diagnostics or a degraded
// plain-text fallback that re-surfaces the raw span instead of dropping it.
package assemble

import (
	"strings"

	"github.com/google/uuid"

	"github.com/sift-ai/sift/internal/extract"
	"github.com/sift-ai/sift/internal/registry"
	"github.com/sift-ai/sift/pkg/protocol"
)

// Assembler maps emissions onto protocol types for one response stream.
// Not safe for concurrent use; like the scanner, one per stream.
type Assembler struct {
	fallbackText bool
	registry     *registry.Registry
	nextIndex    int
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithFallbackText re-emits the raw span of malformed calls as content
// instead of only recording a diagnostic.
func WithFallbackText() Option {
	return func(a *Assembler) { a.fallbackText = true }
}

// WithRegistry validates every collected call against the given tool
// definitions and records findings as diagnostics.
func WithRegistry(reg *registry.Registry) Option {
	return func(a *Assembler) { a.registry = reg }
}

// New creates an assembler.
func New(opts ...Option) *Assembler {
	a := &Assembler{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Collect folds a complete emission sequence into a batch result.
func (a *Assembler) Collect(emissions []extract.Emission) *protocol.Result {
	var content strings.Builder
	result := &protocol.Result{}

	for _, e := range emissions {
		switch e.Kind {
		case extract.KindPlainText:
			content.WriteString(e.Text)
		case extract.KindToolCall:
			result.ToolCalls = append(result.ToolCalls, a.toolCall(e.Call))
			for _, note := range e.Call.Notes {
				result.Diagnostics = append(result.Diagnostics, protocol.Diagnostic{
					Reason: string(note.Reason),
					Detail: note.Detail,
				})
			}
			result.Diagnostics = append(result.Diagnostics, a.validate(e.Call)...)
		case extract.KindParseError:
			result.Diagnostics = append(result.Diagnostics, diagnostic(e.Err))
			if a.fallbackText {
				content.WriteString(e.Err.Raw)
			}
		}
	}

	result.Content = content.String()
	return result
}

// Delta maps a single emission onto a streamed delta. Returns nil when the
// emission produces no externally visible output (a suppressed parse error
// with fallback disabled still yields its diagnostic, so nil only happens
// for empty plain text).
func (a *Assembler) Delta(e extract.Emission) *protocol.Delta {
	switch e.Kind {
	case extract.KindPlainText:
		if e.Text == "" {
			return nil
		}
		return &protocol.Delta{Content: e.Text}
	case extract.KindToolCall:
		call := a.toolCall(e.Call)
		return &protocol.Delta{ToolCall: &call}
	case extract.KindParseError:
		d := diagnostic(e.Err)
		delta := &protocol.Delta{Diagnostic: &d}
		if a.fallbackText {
			delta.Content = e.Err.Raw
		}
		return delta
	default:
		return nil
	}
}

// validate returns registry findings for a call, or nil when no registry is
// configured.
func (a *Assembler) validate(rec *extract.CallRecord) []protocol.Diagnostic {
	if a.registry == nil {
		return nil
	}
	var out []protocol.Diagnostic
	for _, issue := range a.registry.Validate(rec) {
		out = append(out, protocol.Diagnostic{
			Reason: issue.Reason,
			Detail: issue.Detail,
		})
	}
	return out
}

func (a *Assembler) toolCall(rec *extract.CallRecord) protocol.ToolCall {
	args := make(map[string]any, len(rec.Args))
	for k, v := range rec.Args {
		args[k] = v.Interface()
	}
	call := protocol.ToolCall{
		ID:        "call-" + uuid.NewString(),
		Index:     a.nextIndex,
		Name:      rec.Name,
		Arguments: args,
	}
	a.nextIndex++
	return call
}

func diagnostic(err *extract.ParseError) protocol.Diagnostic {
	return protocol.Diagnostic{
		Reason: string(err.Reason),
		Detail: err.Detail,
		Raw:    err.Raw,
	}
}
